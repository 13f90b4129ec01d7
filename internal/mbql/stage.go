package mbql

// Stage is one level of a structured query. Stage 0 reads from a source
// table; every later stage reads the result of the stage before it.
type Stage struct {
	sourceTable  any
	joins        []Join
	expressions  []NamedExpression
	filters      []Clause
	aggregations []Clause
	breakouts    []Clause
	orderBy      []Clause
	fields       []Clause
	limit        *int64
	extra        map[string]any
}

// SourceTable returns the raw source-table value: an int64 table id or a
// "card__N" string. It is nil for nested stages and for new queries.
func (s Stage) SourceTable() any { return s.sourceTable }

// SourceTableID returns the integer source table id, if the stage has one.
func (s Stage) SourceTableID() (int64, bool) {
	id, ok := s.sourceTable.(int64)
	return id, ok
}

func (s Stage) Joins() []Join {
	out := make([]Join, len(s.joins))
	for i, j := range s.joins {
		out[i] = j.canonical()
	}
	return out
}

func (s Stage) Expressions() []NamedExpression {
	out := make([]NamedExpression, len(s.expressions))
	for i, e := range s.expressions {
		out[i] = NamedExpression{Name: e.Name, Expr: e.Expr.canonical()}
	}
	return out
}

// Expression looks up a custom column by name.
func (s Stage) Expression(name string) (Clause, bool) {
	for _, e := range s.expressions {
		if e.Name == name {
			return e.Expr.canonical(), true
		}
	}
	return nil, false
}

func (s Stage) Filters() []Clause      { return copyClauses(s.filters) }
func (s Stage) Aggregations() []Clause { return copyClauses(s.aggregations) }
func (s Stage) Breakouts() []Clause    { return copyClauses(s.breakouts) }
func (s Stage) OrderBy() []Clause      { return copyClauses(s.orderBy) }
func (s Stage) Fields() []Clause       { return copyClauses(s.fields) }

// Limit returns the row limit and whether one is set.
func (s Stage) Limit() (int64, bool) {
	if s.limit == nil {
		return 0, false
	}
	return *s.limit, true
}

// IsSummarized reports whether the stage aggregates or groups its input.
func (s Stage) IsSummarized() bool {
	return len(s.aggregations) > 0 || len(s.breakouts) > 0
}

// HasClauses reports whether the stage has anything beyond its source.
// Keys the model does not know, such as "page", count as clauses.
func (s Stage) HasClauses() bool {
	return len(s.joins) > 0 || len(s.expressions) > 0 || len(s.filters) > 0 ||
		len(s.aggregations) > 0 || len(s.breakouts) > 0 || len(s.orderBy) > 0 ||
		len(s.fields) > 0 || s.limit != nil || len(s.extra) > 0
}

// Len returns the number of entries in the given clause list. A set limit
// counts as one.
func (s Stage) Len(kind ClauseKind) int {
	switch kind {
	case KindJoin:
		return len(s.joins)
	case KindExpression:
		return len(s.expressions)
	case KindFilter:
		return len(s.filters)
	case KindAggregation:
		return len(s.aggregations)
	case KindBreakout:
		return len(s.breakouts)
	case KindOrderBy:
		return len(s.orderBy)
	case KindFields:
		return len(s.fields)
	case KindLimit:
		if s.limit != nil {
			return 1
		}
	}
	return 0
}

// list returns the clause slice backing kind. Joins, expressions and limit
// are not plain clause lists and return nil.
func (s *Stage) list(kind ClauseKind) *[]Clause {
	switch kind {
	case KindFilter:
		return &s.filters
	case KindAggregation:
		return &s.aggregations
	case KindBreakout:
		return &s.breakouts
	case KindOrderBy:
		return &s.orderBy
	case KindFields:
		return &s.fields
	}
	return nil
}

func copyClauses(in []Clause) []Clause {
	out := make([]Clause, len(in))
	for i, c := range in {
		out[i] = c.canonical()
	}
	return out
}
