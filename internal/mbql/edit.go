package mbql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEdit is returned by Apply for edits that do not fit the query.
var ErrInvalidEdit = errors.New("invalid edit")

// EditOp is what an Edit does to a clause list.
type EditOp string

const (
	OpAdd     EditOp = "add"
	OpReplace EditOp = "replace"
	OpRemove  EditOp = "remove"
	OpClear   EditOp = "clear"
)

// ParseEditOp maps an op name to its EditOp.
func ParseEditOp(s string) (EditOp, bool) {
	switch op := EditOp(s); op {
	case OpAdd, OpReplace, OpRemove, OpClear:
		return op, true
	}
	return "", false
}

// Edit is a single change to one clause list of one stage, in the form the
// notebook editor sends it. Clause holds the raw MBQL: a list for most
// kinds, an object for joins, a number for limit. Name selects the custom
// column for expression edits.
type Edit struct {
	Op     EditOp          `json:"op"`
	Stage  int             `json:"stage"`
	Kind   ClauseKind      `json:"kind"`
	Index  int             `json:"index,omitempty"`
	Name   string          `json:"name,omitempty"`
	Clause json.RawMessage `json:"clause,omitempty"`
}

func editErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEdit, fmt.Sprintf(format, args...))
}

// Apply performs e and returns the edited query. The result is not cleaned.
func (q Query) Apply(e Edit) (Query, error) {
	stage, ok := q.index(e.Stage)
	if !ok {
		return q, editErr("stage %d out of range", e.Stage)
	}
	if _, ok := ParseClauseKind(string(e.Kind)); !ok {
		return q, editErr("unknown clause kind %q", e.Kind)
	}
	st := q.Stage(stage)

	if e.Op == OpClear {
		return q.Clear(stage, e.Kind), nil
	}
	if e.Op == OpReplace || (e.Op == OpRemove && e.Kind != KindExpression && e.Kind != KindLimit) {
		if e.Index < 0 || e.Index >= st.Len(e.Kind) {
			return q, editErr("%s index %d out of range", e.Kind, e.Index)
		}
	}

	switch e.Kind {
	case KindJoin:
		return q.applyJoin(stage, e)
	case KindExpression:
		return q.applyExpression(stage, st, e)
	case KindLimit:
		return q.applyLimit(stage, e)
	}

	switch e.Op {
	case OpRemove:
		return q.Remove(stage, e.Kind, e.Index), nil
	case OpAdd, OpReplace:
		c, err := decodeClause(e.Clause)
		if err != nil {
			return q, err
		}
		if e.Op == OpAdd {
			return q.Add(stage, e.Kind, c), nil
		}
		return q.Replace(stage, e.Kind, e.Index, c), nil
	}
	return q, editErr("unknown op %q", e.Op)
}

func (q Query) applyJoin(stage int, e Edit) (Query, error) {
	switch e.Op {
	case OpRemove:
		return q.Remove(stage, KindJoin, e.Index), nil
	case OpAdd, OpReplace:
		var raw map[string]any
		if err := decodeRaw(e.Clause, &raw); err != nil || raw == nil {
			return q, editErr("join must be an object")
		}
		if e.Op == OpAdd {
			return q.AddJoin(stage, Join(raw)), nil
		}
		return q.ReplaceJoin(stage, e.Index, Join(raw)), nil
	}
	return q, editErr("unknown op %q", e.Op)
}

func (q Query) applyExpression(stage int, st Stage, e Edit) (Query, error) {
	name := e.Name
	if name == "" && e.Op != OpAdd && e.Index >= 0 && e.Index < len(st.expressions) {
		name = st.expressions[e.Index].Name
	}
	if name == "" {
		return q, editErr("expression edits need a name")
	}
	switch e.Op {
	case OpRemove:
		if _, ok := st.Expression(name); !ok {
			return q, editErr("no expression named %q", name)
		}
		return q.RemoveExpression(stage, name), nil
	case OpAdd, OpReplace:
		c, err := decodeClause(e.Clause)
		if err != nil {
			return q, err
		}
		return q.AddExpression(stage, name, c), nil
	}
	return q, editErr("unknown op %q", e.Op)
}

func (q Query) applyLimit(stage int, e Edit) (Query, error) {
	switch e.Op {
	case OpRemove:
		return q.Clear(stage, KindLimit), nil
	case OpAdd, OpReplace:
		var v any
		if err := decodeRaw(e.Clause, &v); err != nil {
			return q, editErr("limit must be a number")
		}
		n, ok := asInt(v)
		if !ok || n < 0 {
			return q, editErr("limit must be a non-negative integer")
		}
		return q.SetLimit(stage, n), nil
	}
	return q, editErr("unknown op %q", e.Op)
}

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return editErr("clause is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeClause(raw json.RawMessage) (Clause, error) {
	var l []any
	if err := decodeRaw(raw, &l); err != nil || len(l) == 0 {
		return nil, editErr("clause must be a non-empty list")
	}
	return Clause(l).canonical(), nil
}
