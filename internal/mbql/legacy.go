package mbql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidQuery is wrapped by every parse failure.
var ErrInvalidQuery = errors.New("invalid query")

// Parse decodes the legacy nested form of a structured query.
func Parse(data []byte) (Query, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Query{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return FromLegacy(raw)
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Query {
	q, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return q
}

// FromLegacy builds a Query from a decoded legacy map.
func FromLegacy(m map[string]any) (Query, error) {
	if m == nil {
		return New(), nil
	}
	stages, err := parseStages(normalizeMap(m), 0)
	if err != nil {
		return Query{}, err
	}
	return Query{stages: stages}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func parseStages(m map[string]any, depth int) ([]Stage, error) {
	var inner []Stage
	if src, ok := m["source-query"]; ok {
		sm, ok := src.(map[string]any)
		if !ok {
			return nil, invalid("source-query must be an object")
		}
		if _, native := sm["native"]; native {
			return nil, invalid("native source queries are not supported")
		}
		var err error
		if inner, err = parseStages(sm, depth+1); err != nil {
			return nil, err
		}
		if _, ok := m["source-table"]; ok {
			return nil, invalid("stage has both source-table and source-query")
		}
	}

	var st Stage
	for key, v := range m {
		switch key {
		case "source-query":
		case "source-table":
			switch t := v.(type) {
			case int64, string:
				st.sourceTable = t
			default:
				return nil, invalid("source-table must be an id or card reference")
			}
		case "joins":
			items, ok := v.([]any)
			if !ok {
				return nil, invalid("joins must be a list")
			}
			for _, it := range items {
				j, ok := it.(map[string]any)
				if !ok {
					return nil, invalid("join must be an object")
				}
				st.joins = append(st.joins, Join(j))
			}
		case "expressions":
			em, ok := v.(map[string]any)
			if !ok {
				return nil, invalid("expressions must be an object")
			}
			names := make([]string, 0, len(em))
			for name := range em {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				c, ok := em[name].([]any)
				if !ok {
					return nil, invalid("expression %q must be a clause", name)
				}
				st.expressions = append(st.expressions, NamedExpression{Name: name, Expr: Clause(c)})
			}
		case "filter":
			c, ok := v.([]any)
			if !ok {
				return nil, invalid("filter must be a clause")
			}
			st.filters = splitFilter(Clause(c))
		case "aggregation", "breakout", "order-by", "fields":
			cs, err := parseClauseList(key, v)
			if err != nil {
				return nil, err
			}
			*st.list(ClauseKind(key)) = cs
		case "limit":
			n, ok := asInt(v)
			if !ok {
				return nil, invalid("limit must be an integer")
			}
			st.limit = &n
		default:
			if st.extra == nil {
				st.extra = make(map[string]any)
			}
			st.extra[key] = v
		}
	}
	return append(inner, st), nil
}

func parseClauseList(key string, v any) ([]Clause, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, invalid("%s must be a list", key)
	}
	out := make([]Clause, 0, len(items))
	for _, it := range items {
		c, ok := it.([]any)
		if !ok {
			return nil, invalid("%s entries must be clauses", key)
		}
		out = append(out, Clause(c))
	}
	return out, nil
}

// splitFilter turns a top-level "and" into its separate filters.
func splitFilter(c Clause) []Clause {
	if c.Operator() != "and" {
		return []Clause{c}
	}
	var out []Clause
	for _, a := range c.Args() {
		if sub, ok := a.([]any); ok {
			out = append(out, Clause(sub))
		}
	}
	return out
}

// Legacy returns the nested legacy form of the query. The result is freshly
// allocated and stable: equal queries produce deeply equal maps.
func (q Query) Legacy() map[string]any {
	stages := q.stageList()
	var out map[string]any
	for i, st := range stages {
		m := legacyStage(st)
		if i > 0 {
			m["source-query"] = out
		}
		out = m
	}
	return out
}

func legacyStage(st Stage) map[string]any {
	m := make(map[string]any)
	for k, v := range st.extra {
		m[k] = normalize(v)
	}
	if st.sourceTable != nil {
		m["source-table"] = st.sourceTable
	}
	if len(st.joins) > 0 {
		joins := make([]any, len(st.joins))
		for i, j := range st.joins {
			joins[i] = normalizeMap(j)
		}
		m["joins"] = joins
	}
	if len(st.expressions) > 0 {
		em := make(map[string]any, len(st.expressions))
		for _, e := range st.expressions {
			em[e.Name] = normalizeSlice(e.Expr)
		}
		m["expressions"] = em
	}
	switch len(st.filters) {
	case 0:
	case 1:
		m["filter"] = normalizeSlice(st.filters[0])
	default:
		and := []any{"and"}
		for _, f := range st.filters {
			and = append(and, normalizeSlice(f))
		}
		m["filter"] = and
	}
	putList(m, "aggregation", st.aggregations)
	putList(m, "breakout", st.breakouts)
	putList(m, "order-by", st.orderBy)
	putList(m, "fields", st.fields)
	if st.limit != nil {
		m["limit"] = *st.limit
	}
	return m
}

func putList(m map[string]any, key string, cs []Clause) {
	if len(cs) == 0 {
		return
	}
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = normalizeSlice(c)
	}
	m[key] = out
}

// MarshalJSON encodes the legacy form. Object keys are sorted.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Legacy())
}

// UnmarshalJSON decodes the legacy form. Metadata and database id are not
// part of the encoding and are reset.
func (q *Query) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (q Query) String() string {
	b, _ := q.MarshalJSON()
	return string(b)
}
