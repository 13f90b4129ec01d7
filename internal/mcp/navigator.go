package mcp

import (
	"fmt"
	"maps"

	"github.com/maraichr/notebook/internal/notebook"
	"github.com/maraichr/notebook/internal/question"
)

// Tool names, shared by hints and registration.
const (
	ToolListQuestions    = "list_questions"
	ToolGetNotebookSteps = "get_notebook_steps"
	ToolRevertStep       = "revert_step"
)

const maxHints = 3

// NavigationHints suggests next tool calls based on current results.
type NavigationHints struct {
	Steps []NavigationStep `json:"steps"`
}

// NavigationStep is a suggested next MCP tool call.
type NavigationStep struct {
	Tool        string            `json:"tool"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

// Navigator generates navigation hints for MCP tool responses.
type Navigator struct{}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// AfterList suggests opening the notebook of the first listed question.
func (n *Navigator) AfterList(questions []question.Question) *NavigationHints {
	if len(questions) == 0 {
		return nil
	}
	q := questions[0]
	return &NavigationHints{Steps: []NavigationStep{{
		Tool:        ToolGetNotebookSteps,
		Description: fmt.Sprintf("Show the notebook of %q", q.Name),
		Params:      map[string]string{"question_id": q.ID.String()},
	}}}
}

// AfterSteps suggests reverting the last populated step and opening the
// first action offered by the final step. questionID may be empty for ad-hoc
// queries.
func (n *Navigator) AfterSteps(toolName string, steps notebook.Steps, questionID string) *NavigationHints {
	if len(steps) == 0 {
		return nil
	}

	hints := &NavigationHints{}
	base := map[string]string{}
	if questionID != "" {
		base["question_id"] = questionID
	}

	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Active && s.Revertible() {
			hints.Steps = append(hints.Steps, NavigationStep{
				Tool:        ToolRevertStep,
				Description: fmt.Sprintf("Remove the %s step", s.Type),
				Params:      withParam(base, "step_id", s.ID),
			})
			break
		}
	}

	if last := steps.Last(); len(last.Actions) > 0 {
		a := last.Actions[0]
		hints.Steps = append(hints.Steps, NavigationStep{
			Tool:        ToolGetNotebookSteps,
			Description: fmt.Sprintf("Open an empty %s step", a.Type),
			Params:      withParam(base, "open_steps", a.StepID),
		})
	}

	if toolName == ToolRevertStep && questionID == "" {
		hints.Steps = append(hints.Steps, NavigationStep{
			Tool:        ToolListQuestions,
			Description: "Browse saved questions",
		})
	}

	if len(hints.Steps) > maxHints {
		hints.Steps = hints.Steps[:maxHints]
	}
	return hints
}

func withParam(base map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(base)+1)
	maps.Copy(out, base)
	out[k] = v
	return out
}
