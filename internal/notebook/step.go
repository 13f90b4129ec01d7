// Package notebook derives the editable steps of a structured query and
// applies step-level edits.
//
// Steps are regenerated from the query every time it changes. A Step holds
// the query as seen by its stage, a preview query truncated to what the step
// shows, and the actions that can be inserted after it. Reverting or updating
// a step returns a new top-level query; nothing is mutated.
package notebook

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/maraichr/notebook/internal/mbql"
)

// StepType is the kind of notebook step.
type StepType string

const (
	StepData       StepType = "data"
	StepJoin       StepType = "join"
	StepExpression StepType = "expression"
	StepFilter     StepType = "filter"
	StepSummarize  StepType = "summarize"
	StepAggregate  StepType = "aggregate"
	StepBreakout   StepType = "breakout"
	StepSort       StepType = "sort"
	StepLimit      StepType = "limit"
)

// ClauseKinds returns the clause lists a step type edits.
func (t StepType) ClauseKinds() []mbql.ClauseKind {
	switch t {
	case StepJoin:
		return []mbql.ClauseKind{mbql.KindJoin}
	case StepExpression:
		return []mbql.ClauseKind{mbql.KindExpression}
	case StepFilter:
		return []mbql.ClauseKind{mbql.KindFilter}
	case StepSummarize:
		return []mbql.ClauseKind{mbql.KindAggregation, mbql.KindBreakout}
	case StepAggregate:
		return []mbql.ClauseKind{mbql.KindAggregation}
	case StepBreakout:
		return []mbql.ClauseKind{mbql.KindBreakout}
	case StepSort:
		return []mbql.ClauseKind{mbql.KindOrderBy}
	case StepLimit:
		return []mbql.ClauseKind{mbql.KindLimit}
	}
	return nil
}

// OpenSteps records steps the user opened before adding any clause to them,
// keyed by step id. Open steps are shown even though they are inactive.
type OpenSteps map[string]bool

// Action is a step that can be added after the step holding it.
type Action struct {
	Type       StepType `json:"type"`
	StageIndex int      `json:"stage_index"`
	StepID     string   `json:"step_id"`
}

// Open returns a copy of open with the action's step marked open.
func (a Action) Open(open OpenSteps) OpenSteps {
	next := make(OpenSteps, len(open)+1)
	maps.Copy(next, open)
	next[a.StepID] = true
	return next
}

// Step is one editor panel of the notebook.
type Step struct {
	ID         string
	Type       StepType
	StageIndex int
	// ItemIndex is the position within the stage's clause list for steps
	// shown once per clause (joins), and nil otherwise.
	ItemIndex *int

	TopLevelQuery mbql.Query
	Query         mbql.Query
	PreviewQuery  mbql.Query

	Valid   bool
	Active  bool
	Visible bool
	TestID  string
	Actions []Action

	def *stepDef
	seq *sequence
	pos int
}

// sequence backs Next and Previous for one derivation pass.
type sequence struct {
	steps []*Step
}

func (s *Step) Next() *Step {
	if s.seq == nil || s.pos+1 >= len(s.seq.steps) {
		return nil
	}
	return s.seq.steps[s.pos+1]
}

func (s *Step) Previous() *Step {
	if s.seq == nil || s.pos == 0 {
		return nil
	}
	return s.seq.steps[s.pos-1]
}

func (s *Step) item() int {
	if s.ItemIndex == nil {
		return 0
	}
	return *s.ItemIndex
}

// Revertible reports whether the step's clauses can be removed.
func (s *Step) Revertible() bool {
	return s.def != nil && s.def.revert != nil
}

// Revert removes the clauses this step stands for, only at its own stage,
// and returns the resulting top-level query with empty nesting collapsed.
// It reports false for steps that cannot be reverted.
func (s *Step) Revert() (mbql.Query, bool) {
	if !s.Revertible() {
		return s.TopLevelQuery.Clean(), false
	}
	return s.Update(s.def.revert(s.Query, s.StageIndex, s.item())), true
}

// Update substitutes an edited version of Query into the top-level query and
// cleans the result. A new source table discards every stage above the
// edited one. A stage that stops grouping takes the post-aggregation stages
// over it along when their references cannot be resolved.
func (s *Step) Update(stageQuery mbql.Query) mbql.Query {
	if stageQuery.Stage(0).SourceTable() != s.Query.Stage(0).SourceTable() {
		return s.TopLevelQuery.Through(s.StageIndex).ReplaceThrough(s.StageIndex, stageQuery).Clean()
	}
	next := s.TopLevelQuery.ReplaceThrough(s.StageIndex, stageQuery)
	if s.Query.TopStage().IsSummarized() && !stageQuery.TopStage().IsSummarized() {
		return next.CleanUngrouped(stageQuery.StageCount() - 1)
	}
	return next.Clean()
}

// Add inserts a clause at this step's stage.
func (s *Step) Add(kind mbql.ClauseKind, c mbql.Clause) mbql.Query {
	return s.Update(s.Query.Add(s.StageIndex, kind, c))
}

// Replace swaps clause i of a list at this step's stage.
func (s *Step) Replace(kind mbql.ClauseKind, i int, c mbql.Clause) mbql.Query {
	return s.Update(s.Query.Replace(s.StageIndex, kind, i, c))
}

// Remove deletes clause i of a list at this step's stage.
func (s *Step) Remove(kind mbql.ClauseKind, i int) mbql.Query {
	return s.Update(s.Query.Remove(s.StageIndex, kind, i))
}

func stepID(stage int, t StepType, item *int) string {
	if item == nil {
		return fmt.Sprintf("%d:%s", stage, t)
	}
	return fmt.Sprintf("%d:%s:%d", stage, t, *item)
}

func testID(stage int, t StepType, item *int) string {
	i := 0
	if item != nil {
		i = *item
	}
	return fmt.Sprintf("step-%s-%d-%d", t, stage, i)
}

type stepJSON struct {
	ID           string     `json:"id"`
	Type         StepType   `json:"type"`
	StageIndex   int        `json:"stage_index"`
	ItemIndex    *int       `json:"item_index"`
	Query        mbql.Query `json:"query"`
	PreviewQuery mbql.Query `json:"preview_query"`
	Valid        bool       `json:"valid"`
	Active       bool       `json:"active"`
	Visible      bool       `json:"visible"`
	TestID       string     `json:"test_id"`
	Revertible   bool       `json:"revertible"`
	Actions      []Action   `json:"actions"`
	NextID       *string    `json:"next_id"`
	PreviousID   *string    `json:"previous_id"`
}

func (s *Step) MarshalJSON() ([]byte, error) {
	out := stepJSON{
		ID:           s.ID,
		Type:         s.Type,
		StageIndex:   s.StageIndex,
		ItemIndex:    s.ItemIndex,
		Query:        s.Query,
		PreviewQuery: s.PreviewQuery,
		Valid:        s.Valid,
		Active:       s.Active,
		Visible:      s.Visible,
		TestID:       s.TestID,
		Revertible:   s.Revertible(),
		Actions:      s.Actions,
	}
	if out.Actions == nil {
		out.Actions = []Action{}
	}
	if n := s.Next(); n != nil {
		out.NextID = &n.ID
	}
	if p := s.Previous(); p != nil {
		out.PreviousID = &p.ID
	}
	return json.Marshal(out)
}
