package mbql

// Clause is a single MBQL expression with the operator at the head,
// e.g. ["=", ["field", 12, null], 42] or ["count"].
type Clause []any

// NewClause builds a canonical clause from an operator and its arguments.
func NewClause(op string, args ...any) Clause {
	c := make(Clause, 0, len(args)+1)
	c = append(c, op)
	for _, a := range args {
		c = append(c, normalize(a))
	}
	return c
}

// Operator returns the clause head, or "" when the clause is empty.
func (c Clause) Operator() string {
	if len(c) == 0 {
		return ""
	}
	s, _ := c[0].(string)
	return s
}

// Args returns the clause arguments following the operator.
func (c Clause) Args() []any {
	if len(c) < 2 {
		return nil
	}
	return c[1:]
}

func (c Clause) canonical() Clause {
	return Clause(normalizeSlice(c))
}

// Join is a join spec, an MBQL object such as
// {"source-table": 1, "alias": "Products", "condition": [...], "fields": "all"}.
type Join map[string]any

// Alias returns the join alias, or "" when it has none.
func (j Join) Alias() string {
	s, _ := j["alias"].(string)
	return s
}

func (j Join) canonical() Join {
	return Join(normalizeMap(j))
}

// NamedExpression is a custom column defined on a stage.
type NamedExpression struct {
	Name string
	Expr Clause
}

// ClauseKind names one of the clause lists held by a stage.
type ClauseKind string

const (
	KindJoin        ClauseKind = "joins"
	KindExpression  ClauseKind = "expressions"
	KindFilter      ClauseKind = "filter"
	KindAggregation ClauseKind = "aggregation"
	KindBreakout    ClauseKind = "breakout"
	KindOrderBy     ClauseKind = "order-by"
	KindFields      ClauseKind = "fields"
	KindLimit       ClauseKind = "limit"
)

// ParseClauseKind maps a clause list name to its kind.
func ParseClauseKind(s string) (ClauseKind, bool) {
	switch k := ClauseKind(s); k {
	case KindJoin, KindExpression, KindFilter, KindAggregation, KindBreakout, KindOrderBy, KindFields, KindLimit:
		return k, true
	}
	return "", false
}
