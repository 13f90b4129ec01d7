package mbql

import (
	"fmt"
	"strings"
)

// columns is the set of column names visible to a stage. When known is false
// the names could not be resolved and every name reference is accepted.
type columns struct {
	known bool
	names map[string]bool
}

func unknownColumns() columns { return columns{} }

func newColumns() columns { return columns{known: true, names: make(map[string]bool)} }

func (c columns) has(name string) bool { return !c.known || c.names[name] }

func (c *columns) add(name string) {
	if c.known {
		c.names[name] = true
	}
}

// Clean drops clauses whose column references no longer resolve, then
// removes every stage above the first that has no clauses left. Unwrapping
// repeats until no empty nested stage remains, so the result is identical to
// a query built without the removed levels.
func (q Query) Clean() Query {
	return q.clean(-1)
}

// CleanUngrouped is Clean for a query whose stage i has just stopped grouping
// its rows. Stages after i were written against the grouped output, so when
// the columns of stage i cannot be resolved their name references are
// dropped instead of accepted.
func (q Query) CleanUngrouped(i int) Query {
	i, ok := q.index(i)
	if !ok {
		return q.Clean()
	}
	return q.clean(i)
}

func (q Query) clean(ungrouped int) Query {
	stages := q.stageList()
	kept := make([]Stage, 0, len(stages))
	in := q.sourceColumns(stages[0])
	for i, st := range stages {
		st = q.cleanStage(st, len(kept), in)
		// an empty nested stage is a pass-through: the next stage sees the same input
		if i == 0 || st.HasClauses() {
			kept = append(kept, st)
			in = q.outputColumns(st, in)
		}
		if i == ungrouped && !in.known {
			in = newColumns()
			for _, e := range st.expressions {
				in.add(e.Name)
			}
		}
	}
	return q.with(kept)
}

func (q Query) sourceColumns(st Stage) columns {
	id, ok := st.SourceTableID()
	if !ok || q.meta == nil {
		return unknownColumns()
	}
	names, ok := q.meta.TableColumns(id)
	if !ok {
		return unknownColumns()
	}
	cols := newColumns()
	for _, n := range names {
		cols.add(n)
	}
	return cols
}

// outputColumns returns what a stage exposes to the stage after it.
func (q Query) outputColumns(st Stage, in columns) columns {
	if !st.IsSummarized() {
		out := columns{known: in.known, names: make(map[string]bool, len(in.names))}
		for n := range in.names {
			out.names[n] = true
		}
		for _, e := range st.expressions {
			out.add(e.Name)
		}
		return out
	}
	out := newColumns()
	for _, b := range st.breakouts {
		name, ok := q.refName(b)
		if !ok {
			return unknownColumns()
		}
		out.add(uniqueName(out.names, name))
	}
	for _, a := range st.aggregations {
		out.add(uniqueName(out.names, AggregationName(a)))
	}
	return out
}

// refName returns the output column name of a breakout reference.
func (q Query) refName(c Clause) (string, bool) {
	d, ok := ParseDimension(c)
	if !ok {
		return "", false
	}
	switch d.kind {
	case DimensionField:
		if d.name != "" {
			return d.name, true
		}
		if q.meta == nil {
			return "", false
		}
		return q.meta.FieldName(d.fieldID)
	case DimensionExpression:
		return d.name, true
	}
	return "", false
}

func uniqueName(seen map[string]bool, name string) string {
	if !seen[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !seen[candidate] {
			return candidate
		}
	}
}

// AggregationName returns the column name an aggregation produces.
func AggregationName(c Clause) string {
	if c.Operator() == "aggregation-options" && len(c) > 2 {
		if opts, ok := c[2].(map[string]any); ok {
			if name, ok := opts["name"].(string); ok && name != "" {
				return name
			}
		}
		if inner, ok := c[1].([]any); ok {
			return AggregationName(Clause(inner))
		}
	}
	switch op := c.Operator(); op {
	case "distinct", "count", "sum", "avg", "min", "max", "median", "stddev", "var",
		"percentile", "share", "cum-sum", "cum-count", "count-where", "sum-where":
		return op
	case "":
		return "expression"
	default:
		return strings.ReplaceAll(op, "-", "_")
	}
}

func (q Query) cleanStage(st Stage, index int, in columns) Stage {
	exprNames := make(map[string]bool, len(st.expressions))
	for _, e := range st.expressions {
		exprNames[e.Name] = true
	}
	v := refValidator{q: q, stage: index, in: in, expressions: exprNames}

	var exprs []NamedExpression
	for _, e := range st.expressions {
		if v.valid(e.Expr) {
			exprs = append(exprs, e)
		}
	}
	if len(exprs) != len(st.expressions) {
		v.expressions = make(map[string]bool, len(exprs))
		for _, e := range exprs {
			v.expressions[e.Name] = true
		}
	}
	st.expressions = exprs

	st.filters = v.keep(st.filters)
	st.breakouts = v.keep(st.breakouts)

	var aggs []Clause
	orderBy := st.orderBy
	for _, a := range st.aggregations {
		if v.valid(a) {
			aggs = append(aggs, a)
			continue
		}
		orderBy = renumberAggregationRefs(orderBy, len(aggs))
	}
	st.aggregations = aggs
	v.aggregations = len(aggs)
	st.orderBy = v.keep(orderBy)
	st.fields = v.keep(st.fields)
	return st
}

type refValidator struct {
	q            Query
	stage        int
	in           columns
	expressions  map[string]bool
	aggregations int
}

func (v refValidator) keep(cs []Clause) []Clause {
	var out []Clause
	for _, c := range cs {
		if v.valid(c) {
			out = append(out, c)
		}
	}
	return out
}

// valid walks a clause and checks every column reference inside it.
func (v refValidator) valid(c Clause) bool {
	if d, ok := ParseDimension(c); ok {
		return v.validRef(d)
	}
	for i, a := range c {
		if i == 0 && c.Operator() != "" {
			continue
		}
		sub, ok := a.([]any)
		if !ok {
			continue
		}
		if !v.valid(Clause(sub)) {
			return false
		}
	}
	return true
}

func (v refValidator) validRef(d Dimension) bool {
	if _, joined := d.Option("join-alias"); joined {
		return true
	}
	switch d.kind {
	case DimensionField:
		if d.name != "" {
			return v.in.has(d.name)
		}
		if v.q.meta == nil {
			return true
		}
		name, ok := v.q.meta.FieldName(d.fieldID)
		if !ok {
			return false
		}
		if v.stage > 0 {
			return v.in.has(name)
		}
		return true
	case DimensionExpression:
		return v.expressions[d.name]
	case DimensionAggregation:
		return d.index >= 0 && d.index < int64(v.aggregations)
	}
	return true
}
