package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/mcp"
	"github.com/maraichr/notebook/internal/question"
)

// RevertStepParams are the parameters for the revert_step tool.
type RevertStepParams struct {
	QuestionID string `json:"question_id,omitempty"`
	Query      string `json:"query,omitempty"`
	StepID     string `json:"step_id"`
	OpenSteps  string `json:"open_steps,omitempty"`
	// Save writes the reverted query back to the question.
	Save      bool   `json:"save,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
}

// RevertStepHandler implements the revert_step MCP tool.
type RevertStepHandler struct {
	srv    *mcp.Server
	logger *slog.Logger
}

func NewRevertStepHandler(srv *mcp.Server, logger *slog.Logger) *RevertStepHandler {
	return &RevertStepHandler{srv: srv, logger: logger}
}

// Handle removes the clauses of one step and renders the resulting notebook.
func (h *RevertStepHandler) Handle(ctx context.Context, params RevertStepParams) (string, error) {
	if params.StepID == "" {
		return "", fmt.Errorf("step_id is required")
	}
	if params.Save {
		if params.QuestionID == "" {
			return "", fmt.Errorf("save requires question_id")
		}
		if p, ok := auth.PrincipalFrom(ctx); ok && !p.CanWrite() {
			return "", fmt.Errorf("saving requires the %s scope", auth.ScopeWrite)
		}
	}

	t, err := resolveTarget(ctx, h.srv.Questions, params.QuestionID, params.Query)
	if err != nil {
		return "", err
	}
	if t.dataset.Type == mbql.TypeNative {
		return "", fmt.Errorf("native queries have no notebook steps")
	}

	sess := h.srv.LoadSession(ctx, params.SessionID)
	open := parseOpenSteps(params.OpenSteps)
	if sess != nil {
		if t.question != nil {
			sess.Bind(t.question.ID)
		}
		for id := range open {
			sess.Open(id)
		}
		open = sess.Snapshot()
	}

	d, steps, err := h.srv.Questions.Steps(ctx, t.dataset, open)
	if err != nil {
		return "", fmt.Errorf("derive steps: %w", err)
	}
	step, ok := steps.Find(params.StepID)
	if !ok {
		return "", fmt.Errorf("step %q not found", params.StepID)
	}
	reverted, ok := step.Revert()
	if !ok {
		return "", fmt.Errorf("step %q cannot be reverted", params.StepID)
	}
	d.Query = reverted

	if params.Save {
		saved, err := h.srv.Questions.Modify(ctx, t.question.ID, func(q *question.Question) error {
			q.Dataset = d
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("save question: %w", err)
		}
		t.question = &saved
		h.logger.Info("reverted notebook step",
			slog.String("question_id", saved.ID.String()),
			slog.String("step_id", params.StepID))
	}
	t.dataset = d

	_, steps, err = h.srv.Questions.Steps(ctx, d, open)
	if err != nil {
		return "", fmt.Errorf("derive steps: %w", err)
	}

	sessionID := ""
	if sess != nil {
		sess.Prune(steps)
		h.srv.SaveSession(ctx, sess)
		sessionID = sess.ID
	}
	return renderSteps(h.srv, mcp.ToolRevertStep, t, steps, open, sessionID, params.Verbosity, 0), nil
}
