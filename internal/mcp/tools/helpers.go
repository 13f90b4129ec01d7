package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/notebook"
	"github.com/maraichr/notebook/internal/question"
)

// ToolHandler is the interface that all tool handlers implement.
type ToolHandler[P any] interface {
	Handle(ctx context.Context, params P) (string, error)
}

// WrapHandler adapts a ToolHandler into the SDK's AddTool callback.
// It handles nil params by using a zero value and maps errors to CallToolResult.
func WrapHandler[P any](h ToolHandler[P]) func(context.Context, *sdkmcp.CallToolRequest, *P) (*sdkmcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, params *P) (*sdkmcp.CallToolResult, any, error) {
		if params == nil {
			params = new(P)
		}
		result, err := h.Handle(ctx, *params)
		if err != nil {
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result}},
		}, nil, nil
	}
}

// WrapQuestionError translates errors from loading a question into
// user-friendly messages.
func WrapQuestionError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("question not found")
	}
	return fmt.Errorf("get question: %w", err)
}

// target is the dataset a notebook tool works on: either a saved question or
// an ad-hoc query passed inline.
type target struct {
	question *question.Question
	dataset  mbql.Dataset
}

func (t target) questionID() string {
	if t.question == nil {
		return ""
	}
	return t.question.ID.String()
}

// resolveTarget loads the question or parses the inline query. Exactly one
// must be given.
func resolveTarget(ctx context.Context, svc *question.Service, questionID, query string) (target, error) {
	switch {
	case questionID != "" && query != "":
		return target{}, fmt.Errorf("pass either question_id or query, not both")
	case questionID != "":
		id, err := uuid.Parse(questionID)
		if err != nil {
			return target{}, fmt.Errorf("invalid question_id: %w", err)
		}
		q, err := svc.Get(ctx, id)
		if err != nil {
			return target{}, WrapQuestionError(err)
		}
		return target{question: &q, dataset: q.Dataset}, nil
	case query != "":
		d, err := mbql.ParseDataset([]byte(query))
		if err != nil {
			return target{}, err
		}
		return target{dataset: d}, nil
	}
	return target{}, fmt.Errorf("question_id or query is required")
}

// parseOpenSteps reads a comma-separated list of step ids.
func parseOpenSteps(raw string) notebook.OpenSteps {
	open := notebook.OpenSteps{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			open[id] = true
		}
	}
	return open
}
