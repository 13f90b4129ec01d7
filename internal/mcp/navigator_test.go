package mcp

import (
	"testing"

	"github.com/google/uuid"

	"github.com/maraichr/notebook/internal/question"
)

func TestNavigator_AfterSteps(t *testing.T) {
	n := NewNavigator()
	hints := n.AfterSteps(ToolGetNotebookSteps, sampleSteps(t, nil), "q1")
	if hints == nil || len(hints.Steps) != 2 {
		t.Fatalf("expected 2 hints, got %+v", hints)
	}

	revert := hints.Steps[0]
	if revert.Tool != ToolRevertStep || revert.Params["step_id"] != "0:summarize" || revert.Params["question_id"] != "q1" {
		t.Errorf("unexpected revert hint: %+v", revert)
	}
	open := hints.Steps[1]
	if open.Tool != ToolGetNotebookSteps || open.Params["open_steps"] != "0:sort" {
		t.Errorf("unexpected open hint: %+v", open)
	}
}

func TestNavigator_AfterRevertAdHoc(t *testing.T) {
	hints := NewNavigator().AfterSteps(ToolRevertStep, sampleSteps(t, nil), "")
	last := hints.Steps[len(hints.Steps)-1]
	if last.Tool != ToolListQuestions {
		t.Errorf("expected list_questions hint last, got %s", last.Tool)
	}
	if _, ok := hints.Steps[0].Params["question_id"]; ok {
		t.Error("ad-hoc hints should not carry a question id")
	}
}

func TestNavigator_Empty(t *testing.T) {
	n := NewNavigator()
	if n.AfterSteps(ToolGetNotebookSteps, nil, "") != nil {
		t.Error("expected nil hints for no steps")
	}
	if n.AfterList(nil) != nil {
		t.Error("expected nil hints for no questions")
	}
}

func TestNavigator_AfterList(t *testing.T) {
	id := uuid.New()
	hints := NewNavigator().AfterList([]question.Question{{ID: id, Name: "Orders by month"}})
	if len(hints.Steps) != 1 || hints.Steps[0].Params["question_id"] != id.String() {
		t.Errorf("unexpected hints: %+v", hints)
	}
}
