package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/mcp"
	"github.com/maraichr/notebook/internal/notebook"
)

// GetNotebookStepsParams are the parameters for the get_notebook_steps tool.
type GetNotebookStepsParams struct {
	QuestionID        string `json:"question_id,omitempty"`
	Query             string `json:"query,omitempty"`
	OpenSteps         string `json:"open_steps,omitempty"`
	SessionID         string `json:"session_id,omitempty"`
	Verbosity         string `json:"verbosity,omitempty"`
	MaxResponseTokens int    `json:"max_response_tokens,omitempty"`
}

// GetNotebookStepsHandler implements the get_notebook_steps MCP tool.
type GetNotebookStepsHandler struct {
	srv    *mcp.Server
	logger *slog.Logger
}

func NewGetNotebookStepsHandler(srv *mcp.Server, logger *slog.Logger) *GetNotebookStepsHandler {
	return &GetNotebookStepsHandler{srv: srv, logger: logger}
}

// Handle derives and renders the notebook steps of a question or query.
func (h *GetNotebookStepsHandler) Handle(ctx context.Context, params GetNotebookStepsParams) (string, error) {
	t, err := resolveTarget(ctx, h.srv.Questions, params.QuestionID, params.Query)
	if err != nil {
		return "", err
	}
	if t.dataset.Type == mbql.TypeNative {
		return "This is a native query. Native queries have no notebook steps.", nil
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

	_, steps, err := h.srv.Questions.Steps(ctx, t.dataset, open)
	if err != nil {
		return "", fmt.Errorf("derive steps: %w", err)
	}
	sessionID := ""
	if sess != nil {
		sess.Prune(steps)
		h.srv.SaveSession(ctx, sess)
		sessionID = sess.ID
	}
	return renderSteps(h.srv, mcp.ToolGetNotebookSteps, t, steps, open, sessionID, params.Verbosity, params.MaxResponseTokens), nil
}

// renderSteps writes steps as cards followed by navigation hints.
func renderSteps(srv *mcp.Server, tool string, t target, steps notebook.Steps, open notebook.OpenSteps, sessionID, verbosity string, maxTokens int) string {
	rb := mcp.NewResponseBuilder(maxTokens)

	title := "Ad-hoc query"
	if t.question != nil {
		title = t.question.Name
	}
	rb.AddHeader(fmt.Sprintf("**Notebook: %s** (%d steps)", title, len(steps)))
	if sessionID != "" {
		rb.AddLine(fmt.Sprintf("Session: `%s`", sessionID))
		rb.AddLine("")
	}

	v := mcp.ParseVerbosity(verbosity)
	for _, s := range steps {
		if !rb.AddStepCard(s, v, open) {
			break
		}
	}

	if last := steps.Last(); last != nil && v != mcp.VerbositySummary {
		rb.AddSection("Query", fmt.Sprintf("`%s`", last.TopLevelQuery.String()))
	}

	hints := srv.Navigator.AfterSteps(tool, steps, t.questionID())
	return rb.FinalizeWithHints(len(steps), rb.ItemCount(), hints)
}
