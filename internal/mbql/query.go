// Package mbql models structured analytical queries as immutable values.
//
// A Query is an ordered list of stages. Stage 0 reads from a source table and
// is computed first; each later stage reads the result of the previous one.
// The last stage is the top level of the legacy nested form, where inner
// stages appear under "source-query". Every mutation returns a new Query and
// leaves the receiver untouched.
package mbql

import (
	"fmt"
	"reflect"
)

// Metadata resolves the columns a query can reference. A nil Metadata makes
// every reference valid.
type Metadata interface {
	// FieldName returns the column name of a field id.
	FieldName(id int64) (string, bool)
	// TableColumns returns the column names of a table.
	TableColumns(tableID int64) ([]string, bool)
	// Supports reports whether a database supports the named feature.
	Supports(databaseID int64, feature string) bool
}

// Query is an immutable structured query.
type Query struct {
	database int64
	stages   []Stage
	meta     Metadata
}

// New returns an empty query with a single stage and no source.
func New() Query {
	return Query{stages: []Stage{{}}}
}

// NewForTable returns a raw query over the given table.
func NewForTable(tableID int64) Query {
	return Query{stages: []Stage{{sourceTable: tableID}}}
}

func (q Query) stageList() []Stage {
	if len(q.stages) == 0 {
		return []Stage{{}}
	}
	return q.stages
}

func (q Query) with(stages []Stage) Query {
	return Query{database: q.database, meta: q.meta, stages: stages}
}

// index resolves a stage index; negative indexes count from the top stage.
func (q Query) index(i int) (int, bool) {
	n := len(q.stageList())
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

func (q Query) DatabaseID() int64 { return q.database }

func (q Query) WithDatabase(id int64) Query {
	q.database = id
	return q
}

func (q Query) Metadata() Metadata { return q.meta }

func (q Query) WithMetadata(m Metadata) Query {
	q.meta = m
	return q
}

// Supports reports whether the query's database supports a feature.
func (q Query) Supports(feature string) bool {
	if q.meta == nil {
		return true
	}
	return q.meta.Supports(q.database, feature)
}

func (q Query) StageCount() int { return len(q.stageList()) }

// Stage returns stage i. Out of range indexes return an empty stage.
func (q Query) Stage(i int) Stage {
	i, ok := q.index(i)
	if !ok {
		return Stage{}
	}
	return q.stageList()[i]
}

func (q Query) TopStage() Stage { return q.Stage(-1) }

// SourceTableID returns the table id the innermost stage reads from.
func (q Query) SourceTableID() (int64, bool) { return q.Stage(0).SourceTableID() }

// HasData reports whether the query has a source to read from.
func (q Query) HasData() bool { return q.Stage(0).sourceTable != nil }

// IsSummarized reports whether the top stage aggregates or groups.
func (q Query) IsSummarized() bool { return q.TopStage().IsSummarized() }

// HasAnyClauses reports whether any stage has clauses beyond its source.
func (q Query) HasAnyClauses() bool {
	for _, s := range q.stageList() {
		if s.HasClauses() {
			return true
		}
	}
	return false
}

// withStage copies the stage list and lets fn replace fields of stage i.
// fn must assign new slices rather than write into existing ones.
func (q Query) withStage(i int, fn func(*Stage)) Query {
	i, ok := q.index(i)
	if !ok {
		return q
	}
	stages := q.stageList()
	next := make([]Stage, len(stages))
	copy(next, stages)
	st := next[i]
	fn(&st)
	next[i] = st
	return q.with(next)
}

// SetTableID points the query at a new table. Every clause and every nested
// stage is discarded.
func (q Query) SetTableID(tableID int64) Query {
	return q.with([]Stage{{sourceTable: tableID}})
}

// SetSourceCard points the query at a saved question's results.
func (q Query) SetSourceCard(cardID int64) Query {
	return q.with([]Stage{{sourceTable: fmt.Sprintf("card__%d", cardID)}})
}

// Add appends a clause to a filter, aggregation, breakout, order-by or fields
// list. Other kinds are left unchanged; use AddJoin, AddExpression or
// SetLimit for them.
func (q Query) Add(stage int, kind ClauseKind, c Clause) Query {
	return q.withStage(stage, func(s *Stage) {
		l := s.list(kind)
		if l == nil {
			return
		}
		*l = appendClause(*l, c.canonical())
	})
}

// Replace swaps the clause at position i of a clause list.
func (q Query) Replace(stage int, kind ClauseKind, i int, c Clause) Query {
	return q.withStage(stage, func(s *Stage) {
		l := s.list(kind)
		if l == nil || i < 0 || i >= len(*l) {
			return
		}
		next := copyClauses(*l)
		next[i] = c.canonical()
		*l = next
	})
}

// Remove deletes entry i of any clause list. For KindLimit the index is
// ignored. Removing an aggregation drops order-by clauses that sort on it
// and renumbers the ones after it.
func (q Query) Remove(stage int, kind ClauseKind, i int) Query {
	return q.withStage(stage, func(s *Stage) {
		switch kind {
		case KindJoin:
			if i >= 0 && i < len(s.joins) {
				s.joins = append(append([]Join{}, s.joins[:i]...), s.joins[i+1:]...)
			}
		case KindExpression:
			if i >= 0 && i < len(s.expressions) {
				s.expressions = append(append([]NamedExpression{}, s.expressions[:i]...), s.expressions[i+1:]...)
			}
		case KindLimit:
			s.limit = nil
		default:
			l := s.list(kind)
			if l == nil || i < 0 || i >= len(*l) {
				return
			}
			*l = append(append([]Clause{}, (*l)[:i]...), (*l)[i+1:]...)
			if kind == KindAggregation {
				s.orderBy = renumberAggregationRefs(s.orderBy, i)
			}
		}
	})
}

// Clear empties a clause list.
func (q Query) Clear(stage int, kind ClauseKind) Query {
	return q.withStage(stage, func(s *Stage) {
		switch kind {
		case KindJoin:
			s.joins = nil
		case KindExpression:
			s.expressions = nil
		case KindLimit:
			s.limit = nil
		case KindAggregation:
			s.aggregations = nil
			s.orderBy = dropAggregationRefs(s.orderBy)
		default:
			if l := s.list(kind); l != nil {
				*l = nil
			}
		}
	})
}

func (q Query) AddJoin(stage int, j Join) Query {
	return q.withStage(stage, func(s *Stage) {
		s.joins = append(append([]Join{}, s.joins...), j.canonical())
	})
}

func (q Query) ReplaceJoin(stage, i int, j Join) Query {
	return q.withStage(stage, func(s *Stage) {
		if i < 0 || i >= len(s.joins) {
			return
		}
		next := append([]Join{}, s.joins...)
		next[i] = j.canonical()
		s.joins = next
	})
}

// AddExpression defines a custom column, replacing any existing one with the
// same name in place.
func (q Query) AddExpression(stage int, name string, expr Clause) Query {
	return q.withStage(stage, func(s *Stage) {
		next := append([]NamedExpression{}, s.expressions...)
		for i, e := range next {
			if e.Name == name {
				next[i] = NamedExpression{Name: name, Expr: expr.canonical()}
				s.expressions = next
				return
			}
		}
		s.expressions = append(next, NamedExpression{Name: name, Expr: expr.canonical()})
	})
}

func (q Query) RemoveExpression(stage int, name string) Query {
	return q.withStage(stage, func(s *Stage) {
		next := make([]NamedExpression, 0, len(s.expressions))
		for _, e := range s.expressions {
			if e.Name != name {
				next = append(next, e)
			}
		}
		s.expressions = next
	})
}

func (q Query) SetLimit(stage int, n int64) Query {
	return q.withStage(stage, func(s *Stage) {
		s.limit = &n
	})
}

// Nest wraps the query in a new empty top stage.
func (q Query) Nest() Query {
	stages := q.stageList()
	next := make([]Stage, len(stages), len(stages)+1)
	copy(next, stages)
	return q.with(append(next, Stage{}))
}

// Through returns the query made of stages 0..i, as seen by stage i.
func (q Query) Through(i int) Query {
	i, ok := q.index(i)
	if !ok {
		return q
	}
	stages := q.stageList()
	next := make([]Stage, i+1)
	copy(next, stages[:i+1])
	return q.with(next)
}

// ReplaceThrough replaces stages 0..i with the stages of sub and keeps the
// stages above i.
func (q Query) ReplaceThrough(i int, sub Query) Query {
	i, ok := q.index(i)
	if !ok {
		return q
	}
	stages := q.stageList()
	inner := sub.stageList()
	next := make([]Stage, 0, len(inner)+len(stages)-i-1)
	next = append(next, inner...)
	next = append(next, stages[i+1:]...)
	return q.with(next)
}

// Equal reports whether two queries have the same legacy form.
func Equal(a, b Query) bool {
	return reflect.DeepEqual(a.Legacy(), b.Legacy())
}

func appendClause(l []Clause, c Clause) []Clause {
	next := make([]Clause, len(l), len(l)+1)
	copy(next, l)
	return append(next, c)
}

func aggregationRef(c Clause) (int64, bool) {
	for _, a := range c.Args() {
		ref, ok := a.([]any)
		if !ok || len(ref) < 2 || ref[0] != "aggregation" {
			continue
		}
		return asInt(ref[1])
	}
	return 0, false
}

func renumberAggregationRefs(orderBy []Clause, removed int) []Clause {
	var out []Clause
	for _, c := range orderBy {
		idx, ok := aggregationRef(c)
		switch {
		case !ok || idx < int64(removed):
			out = append(out, c)
		case idx > int64(removed):
			out = append(out, NewClause(c.Operator(), []any{"aggregation", idx - 1}))
		}
	}
	return out
}

func dropAggregationRefs(orderBy []Clause) []Clause {
	var out []Clause
	for _, c := range orderBy {
		if _, ok := aggregationRef(c); !ok {
			out = append(out, c)
		}
	}
	return out
}
