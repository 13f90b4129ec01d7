package notebook

import (
	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/metadata"
)

type stepDef struct {
	typ StepType
	// valid reports whether the step can appear at all. q is the stage query.
	valid func(q mbql.Query, stage int) bool
	// items returns how many per-clause steps the stage holds; nil for
	// steps shown once per stage.
	items  func(st mbql.Stage) int
	active func(st mbql.Stage) bool
	revert func(q mbql.Query, stage, item int) mbql.Query
}

func hasData(q mbql.Query, stage int) bool {
	return stage > 0 || q.HasData()
}

func hasDataAnd(feature string) func(mbql.Query, int) bool {
	return func(q mbql.Query, stage int) bool {
		return hasData(q, stage) && q.Supports(feature)
	}
}

func clearing(kinds ...mbql.ClauseKind) func(mbql.Query, int, int) mbql.Query {
	return func(q mbql.Query, stage, _ int) mbql.Query {
		for _, k := range kinds {
			q = q.Clear(stage, k)
		}
		return q
	}
}

// stepTable lists the steps of a stage in display order.
var stepTable = []*stepDef{
	{
		typ:    StepData,
		valid:  func(_ mbql.Query, stage int) bool { return stage == 0 },
		active: func(mbql.Stage) bool { return true },
	},
	{
		typ:    StepJoin,
		valid:  hasDataAnd(metadata.FeatureJoin),
		items:  func(st mbql.Stage) int { return st.Len(mbql.KindJoin) },
		active: func(mbql.Stage) bool { return false },
		revert: func(q mbql.Query, stage, item int) mbql.Query {
			return q.Remove(stage, mbql.KindJoin, item)
		},
	},
	{
		typ:    StepExpression,
		valid:  hasDataAnd(metadata.FeatureExpressions),
		active: func(st mbql.Stage) bool { return st.Len(mbql.KindExpression) > 0 },
		revert: clearing(mbql.KindExpression),
	},
	{
		typ:    StepFilter,
		valid:  hasData,
		active: func(st mbql.Stage) bool { return st.Len(mbql.KindFilter) > 0 },
		revert: clearing(mbql.KindFilter),
	},
	{
		typ:    StepSummarize,
		valid:  hasData,
		active: func(st mbql.Stage) bool { return st.IsSummarized() },
		revert: clearing(mbql.KindAggregation, mbql.KindBreakout),
	},
	{
		typ:    StepSort,
		valid:  hasData,
		active: func(st mbql.Stage) bool { return st.Len(mbql.KindOrderBy) > 0 },
		revert: clearing(mbql.KindOrderBy),
	},
	{
		typ:    StepLimit,
		valid:  hasData,
		active: func(st mbql.Stage) bool { return st.Len(mbql.KindLimit) > 0 },
		revert: clearing(mbql.KindLimit),
	},
}

// Steps is the ordered result of one derivation.
type Steps []*Step

// Types returns the step types in order.
func (ss Steps) Types() []StepType {
	out := make([]StepType, len(ss))
	for i, s := range ss {
		out[i] = s.Type
	}
	return out
}

// Find returns the step with the given id.
func (ss Steps) Find(id string) (*Step, bool) {
	for _, s := range ss {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Last returns the final step, or nil when there are none.
func (ss Steps) Last() *Step {
	if len(ss) == 0 {
		return nil
	}
	return ss[len(ss)-1]
}

// Derive returns the visible steps of q, innermost stage first. When the top
// stage groups its rows and the database allows nesting, an empty stage is
// added on top so that post-aggregation steps are offered as actions.
func Derive(q mbql.Query, open OpenSteps) Steps {
	q = q.Clean()
	if q.Supports(metadata.FeatureNestedQueries) && q.TopStage().Len(mbql.KindBreakout) > 0 {
		q = q.Nest()
	}

	var all Steps
	for stage := range q.StageCount() {
		steps, actions := deriveStage(q, stage, open)
		if last := all.Last(); last != nil && len(actions) > 0 {
			last.Actions = append(last.Actions, actions...)
		}
		all = append(all, steps...)
	}

	seq := &sequence{steps: all}
	for i, s := range all {
		s.seq = seq
		s.pos = i
	}
	return all
}

// DeriveDataset derives steps for a saved dataset. Native queries have no
// notebook.
func DeriveDataset(d mbql.Dataset, open OpenSteps) Steps {
	switch d.Type {
	case mbql.TypeQuery:
		return Derive(d.Query, open)
	case mbql.TypeNative:
		return nil
	}
	return nil
}

// deriveStage returns the visible steps of one stage and the actions that
// come before its first visible step.
func deriveStage(top mbql.Query, stage int, open OpenSteps) (Steps, []Action) {
	sq := top.Through(stage)
	st := top.Stage(stage)

	var candidates Steps
	for _, def := range stepTable {
		valid := def.valid(sq, stage)
		n := 1
		perItem := false
		if def.items != nil {
			if k := def.items(st); k > 0 {
				n, perItem = k, true
			}
		}
		for i := range n {
			var item *int
			active := valid && def.active(st)
			if perItem {
				idx := i
				item = &idx
				active = valid
			}
			id := stepID(stage, def.typ, item)
			candidates = append(candidates, &Step{
				ID:            id,
				Type:          def.typ,
				StageIndex:    stage,
				ItemIndex:     item,
				TopLevelQuery: top,
				Query:         sq,
				Valid:         valid,
				Active:        active,
				Visible:       valid && (active || open[id]),
				TestID:        testID(stage, def.typ, item),
				def:           def,
			})
		}
	}

	// Walk backwards so each visible step collects the actions after it and
	// the preview loses the clauses of every later step.
	preview := sq
	var actions []Action
	for i := len(candidates) - 1; i >= 0; i-- {
		s := candidates[i]
		switch {
		case s.Visible:
			s.Actions = actions
			s.PreviewQuery = preview.Clean()
			actions = nil
		case s.Valid:
			actions = append([]Action{{Type: s.Type, StageIndex: stage, StepID: s.ID}}, actions...)
		}
		if s.def.revert != nil {
			preview = s.def.revert(preview, stage, s.item())
		}
	}

	var visible Steps
	for _, s := range candidates {
		if s.Visible {
			if s.Actions == nil {
				s.Actions = []Action{}
			}
			visible = append(visible, s)
		}
	}
	return visible, actions
}
