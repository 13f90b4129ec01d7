package metadata

import "strings"

// Operator is a filter operator offered for a column.
type Operator struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	// Arity is the number of values the operator takes after the column;
	// -1 means one or more.
	Arity int `json:"arity"`
}

var (
	opEquals         = Operator{"=", "Is", -1}
	opNotEquals      = Operator{"!=", "Is not", -1}
	opGreater        = Operator{">", "Greater than", 1}
	opLess           = Operator{"<", "Less than", 1}
	opBetween        = Operator{"between", "Between", 2}
	opGreaterOrEqual = Operator{">=", "Greater than or equal to", 1}
	opLessOrEqual    = Operator{"<=", "Less than or equal to", 1}
	opIsNull         = Operator{"is-null", "Is empty", 0}
	opNotNull        = Operator{"not-null", "Not empty", 0}
	opContains       = Operator{"contains", "Contains", 1}
	opNotContains    = Operator{"does-not-contain", "Does not contain", 1}
	opIsEmpty        = Operator{"is-empty", "Is empty", 0}
	opNotEmpty       = Operator{"not-empty", "Not empty", 0}
	opStartsWith     = Operator{"starts-with", "Starts with", 1}
	opEndsWith       = Operator{"ends-with", "Ends with", 1}
	opBefore         = Operator{"<", "Before", 1}
	opAfter          = Operator{">", "After", 1}
	opOn             = Operator{"=", "On", 1}
)

var (
	numberOperators = []Operator{
		opEquals, opNotEquals, opGreater, opLess, opBetween,
		opGreaterOrEqual, opLessOrEqual, opIsNull, opNotNull,
	}
	stringOperators = []Operator{
		opEquals, opNotEquals, opContains, opNotContains, opIsNull,
		opNotNull, opIsEmpty, opNotEmpty, opStartsWith, opEndsWith,
	}
	temporalOperators = []Operator{opOn, opBefore, opAfter, opBetween, opIsNull, opNotNull}
	booleanOperators  = []Operator{opEquals, opIsNull, opNotNull}
	defaultOperators  = []Operator{opEquals, opNotEquals, opIsNull, opNotNull}
)

func (f Field) IsNumeric() bool {
	switch f.BaseType {
	case "type/Integer", "type/BigInteger", "type/Float", "type/Decimal", "type/Number":
		return true
	}
	return false
}

func (f Field) IsString() bool {
	return f.BaseType == "type/Text" || strings.HasPrefix(f.BaseType, "type/Text")
}

func (f Field) IsTemporal() bool {
	switch f.BaseType {
	case "type/Date", "type/DateTime", "type/DateTimeWithTZ", "type/DateTimeWithLocalTZ", "type/Time":
		return true
	}
	return false
}

func (f Field) IsBoolean() bool { return f.BaseType == "type/Boolean" }

// FilterOperators returns the operators offered for a field, in display order.
func FilterOperators(f Field) []Operator {
	var ops []Operator
	switch {
	case f.IsNumeric():
		ops = numberOperators
	case f.IsString():
		ops = stringOperators
	case f.IsTemporal():
		ops = temporalOperators
	case f.IsBoolean():
		ops = booleanOperators
	default:
		ops = defaultOperators
	}
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// FilterOperator looks up an operator offered for a field by name.
func FilterOperator(f Field, name string) (Operator, bool) {
	for _, op := range FilterOperators(f) {
		if op.Name == name {
			return op, true
		}
	}
	return Operator{}, false
}
