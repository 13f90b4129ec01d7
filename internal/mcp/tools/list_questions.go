package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/mcp"
	"github.com/maraichr/notebook/internal/question"
)

// ListQuestionsParams are the parameters for the list_questions tool.
type ListQuestionsParams struct {
	Limit  int32 `json:"limit,omitempty"`
	Offset int32 `json:"offset,omitempty"`
}

// ListQuestionsHandler implements the list_questions MCP tool.
type ListQuestionsHandler struct {
	questions *question.Service
	navigator *mcp.Navigator
	logger    *slog.Logger
}

func NewListQuestionsHandler(srv *mcp.Server, logger *slog.Logger) *ListQuestionsHandler {
	return &ListQuestionsHandler{questions: srv.Questions, navigator: srv.Navigator, logger: logger}
}

// Handle lists saved questions, newest first.
func (h *ListQuestionsHandler) Handle(ctx context.Context, params ListQuestionsParams) (string, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	qs, total, err := h.questions.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return "", fmt.Errorf("list questions: %w", err)
	}
	if len(qs) == 0 {
		return "No questions found.", nil
	}

	rb := mcp.NewResponseBuilder(4000)
	rb.AddHeader(fmt.Sprintf("**Questions** (%d total)", total))

	shown := 0
	for _, q := range qs {
		kind := "structured"
		if q.Dataset.Type == mbql.TypeNative {
			kind = "native"
		}
		desc := ""
		if q.Description != nil && *q.Description != "" {
			desc = ": " + *q.Description
		}
		if !rb.AddLine(fmt.Sprintf("- **%s** (%s, database %d)%s | ID: `%s`", q.Name, kind, q.Dataset.Database, desc, q.ID)) {
			break
		}
		shown++
	}

	return rb.FinalizeWithHints(int(total), int(params.Offset)+shown, h.navigator.AfterList(qs)), nil
}
