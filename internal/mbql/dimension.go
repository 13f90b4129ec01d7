package mbql

import "reflect"

// DimensionKind is the type of column reference.
type DimensionKind string

const (
	DimensionField       DimensionKind = "field"
	DimensionExpression  DimensionKind = "expression"
	DimensionAggregation DimensionKind = "aggregation"
)

// Dimension is a parsed column reference: a field by id or by name, a custom
// column, or an aggregation of the same stage.
type Dimension struct {
	kind    DimensionKind
	fieldID int64
	name    string
	index   int64
	options map[string]any
}

// FieldDimension references a field by id.
func FieldDimension(id int64, options map[string]any) Dimension {
	return Dimension{kind: DimensionField, fieldID: id, options: normalizeMap(options)}
}

// NamedFieldDimension references a column of the previous stage by name.
func NamedFieldDimension(name string, options map[string]any) Dimension {
	return Dimension{kind: DimensionField, name: name, options: normalizeMap(options)}
}

func ExpressionDimension(name string) Dimension {
	return Dimension{kind: DimensionExpression, name: name}
}

func AggregationDimension(index int64) Dimension {
	return Dimension{kind: DimensionAggregation, index: index}
}

// ParseDimension parses a reference clause. It reports false for anything
// that is not a field, expression or aggregation reference.
func ParseDimension(v any) (Dimension, bool) {
	ref, ok := normalize(v).([]any)
	if !ok || len(ref) < 2 {
		return Dimension{}, false
	}
	opts := func(i int) map[string]any {
		if len(ref) > i {
			m, _ := ref[i].(map[string]any)
			return m
		}
		return nil
	}
	switch ref[0] {
	case "field":
		switch id := ref[1].(type) {
		case int64:
			return Dimension{kind: DimensionField, fieldID: id, options: opts(2)}, true
		case string:
			return Dimension{kind: DimensionField, name: id, options: opts(2)}, true
		}
	case "expression":
		if name, ok := ref[1].(string); ok {
			return Dimension{kind: DimensionExpression, name: name, options: opts(2)}, true
		}
	case "aggregation":
		if idx, ok := ref[1].(int64); ok {
			return Dimension{kind: DimensionAggregation, index: idx, options: opts(2)}, true
		}
	}
	return Dimension{}, false
}

func (d Dimension) Kind() DimensionKind { return d.kind }

// FieldID returns the referenced field id for id-based field references.
func (d Dimension) FieldID() (int64, bool) {
	return d.fieldID, d.kind == DimensionField && d.name == ""
}

// Name returns the column name for name-based references and custom columns.
func (d Dimension) Name() string { return d.name }

func (d Dimension) AggregationIndex() int64 { return d.index }

// Option returns one reference option such as "join-alias" or "temporal-unit".
func (d Dimension) Option(key string) (any, bool) {
	v, ok := d.options[key]
	return v, ok
}

// MBQL returns the reference clause.
func (d Dimension) MBQL() Clause {
	var opts any
	if d.options != nil {
		opts = normalizeMap(d.options)
	}
	switch d.kind {
	case DimensionField:
		if d.name != "" {
			return Clause{"field", d.name, opts}
		}
		return Clause{"field", d.fieldID, opts}
	case DimensionExpression:
		if opts != nil {
			return Clause{"expression", d.name, opts}
		}
		return Clause{"expression", d.name}
	case DimensionAggregation:
		return Clause{"aggregation", d.index}
	}
	return nil
}

// Equal reports whether two dimensions reference the same column. Type hints
// in the options are ignored.
func (d Dimension) Equal(o Dimension) bool {
	if d.kind != o.kind || d.fieldID != o.fieldID || d.name != o.name || d.index != o.index {
		return false
	}
	return reflect.DeepEqual(identityOptions(d.options), identityOptions(o.options))
}

func identityOptions(m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		if k == "base-type" || k == "effective-type" {
			continue
		}
		out[k] = v
	}
	return out
}

// Filter is a view over a filter clause of the form [op, dimension, args...].
type Filter struct {
	Clause
}

func NewFilter(c Clause) Filter { return Filter{Clause: c.canonical()} }

// Dimension returns the filtered column.
func (f Filter) Dimension() (Dimension, bool) {
	args := f.Args()
	if len(args) == 0 {
		return Dimension{}, false
	}
	return ParseDimension(args[0])
}

// Arguments returns the filter values that follow the column.
func (f Filter) Arguments() []any {
	args := f.Args()
	if len(args) < 2 {
		return nil
	}
	return args[1:]
}

func (f Filter) IsOperator(op string) bool { return f.Operator() == op }

// IsDimension reports whether the filter applies to the given column, given
// as a Dimension or as a reference clause.
func (f Filter) IsDimension(ref any) bool {
	mine, ok := f.Dimension()
	if !ok {
		return false
	}
	other, ok := ref.(Dimension)
	if !ok {
		if other, ok = ParseDimension(ref); !ok {
			return false
		}
	}
	return mine.Equal(other)
}

// FilterViews returns the stage filters as Filter views.
func (s Stage) FilterViews() []Filter {
	out := make([]Filter, len(s.filters))
	for i, c := range s.filters {
		out[i] = NewFilter(c)
	}
	return out
}
