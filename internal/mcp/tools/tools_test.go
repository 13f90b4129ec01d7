package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/mcp"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/internal/store/postgres"
)

const filteredCountDataset = `{"database":1,"type":"query","query":{"source-table":2,"filter":["=",["field",13,{"base-type":"type/Integer"}],1],"aggregation":[["count"]]}}`

type memQuestions struct {
	rows map[uuid.UUID]postgres.Question
}

func (m *memQuestions) ListQuestions(_ context.Context, arg postgres.ListQuestionsParams) ([]postgres.Question, error) {
	var out []postgres.Question
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memQuestions) CountQuestions(context.Context) (int64, error) { return int64(len(m.rows)), nil }

func (m *memQuestions) GetQuestion(_ context.Context, id uuid.UUID) (postgres.Question, error) {
	r, ok := m.rows[id]
	if !ok {
		return postgres.Question{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memQuestions) CreateQuestion(_ context.Context, arg postgres.CreateQuestionParams) (postgres.Question, error) {
	now := time.Now()
	r := postgres.Question{ID: uuid.New(), Name: arg.Name, Description: arg.Description, DatabaseID: arg.DatabaseID, DatasetQuery: arg.DatasetQuery, CreatedAt: now, UpdatedAt: now}
	m.rows[r.ID] = r
	return r, nil
}

func (m *memQuestions) UpdateQuestion(_ context.Context, arg postgres.UpdateQuestionParams) (postgres.Question, error) {
	r, ok := m.rows[arg.ID]
	if !ok {
		return postgres.Question{}, pgx.ErrNoRows
	}
	r.Name, r.Description, r.DatabaseID, r.DatasetQuery = arg.Name, arg.Description, arg.DatabaseID, arg.DatasetQuery
	m.rows[r.ID] = r
	return r, nil
}

func (m *memQuestions) DeleteQuestion(_ context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memSessions map[string]*session.Session

func (m memSessions) Load(_ context.Context, id string) (*session.Session, error) {
	if s, ok := m[id]; ok {
		return s, nil
	}
	return &session.Session{ID: id}, nil
}

func (m memSessions) Save(_ context.Context, s *session.Session) error {
	m[s.ID] = s
	return nil
}

type fixture struct {
	srv       *mcp.Server
	store     *memQuestions
	sessions  memSessions
	logger    *slog.Logger
	questions *question.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:    &memQuestions{rows: map[uuid.UUID]postgres.Question{}},
		sessions: memSessions{},
		logger:   logger,
	}
	f.questions = question.NewService(f.store, metadata.Static(metadata.SampleDatabase()), nil, logger)
	f.srv = mcp.NewServer(mcp.ServerDeps{Questions: f.questions, Sessions: f.sessions, Logger: logger})
	return f
}

func (f *fixture) create(t *testing.T, name, dataset string) question.Question {
	t.Helper()
	d, err := mbql.ParseDataset([]byte(dataset))
	if err != nil {
		t.Fatalf("parse dataset: %v", err)
	}
	q, err := f.questions.Create(context.Background(), name, nil, d)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

// --- WrapHandler ---

type echoParams struct {
	Text string `json:"text"`
}

type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, p echoParams) (string, error) {
	if p.Text == "" {
		return "", errEmpty
	}
	return p.Text, nil
}

var errEmpty = errors.New("text is required")

func TestWrapHandler(t *testing.T) {
	fn := WrapHandler[echoParams](echoHandler{})

	res, _, err := fn(context.Background(), nil, &echoParams{Text: "hi"})
	if err != nil || res.IsError {
		t.Fatalf("unexpected error result: %+v %v", res, err)
	}
	if got := res.Content[0].(*sdkmcp.TextContent).Text; got != "hi" {
		t.Errorf("expected hi, got %q", got)
	}

	res, _, err = fn(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for nil params")
	}
}

func TestWrapQuestionError(t *testing.T) {
	if got := WrapQuestionError(pgx.ErrNoRows).Error(); got != "question not found" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestParseOpenSteps(t *testing.T) {
	open := parseOpenSteps(" 0:sort, ,0:limit")
	if len(open) != 2 || !open["0:sort"] || !open["0:limit"] {
		t.Errorf("unexpected open steps: %v", open)
	}
}

// --- list_questions ---

func TestListQuestions(t *testing.T) {
	f := newFixture(t)
	h := NewListQuestionsHandler(f.srv, f.logger)

	out, err := h.Handle(context.Background(), ListQuestionsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "No questions found." {
		t.Errorf("unexpected empty output: %q", out)
	}

	q := f.create(t, "Orders count", filteredCountDataset)
	out, err = h.Handle(context.Background(), ListQuestionsParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"**Orders count** (structured, database 1)", q.ID.String(), "`get_notebook_steps`"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

// --- get_notebook_steps ---

func TestGetNotebookSteps_Query(t *testing.T) {
	f := newFixture(t)
	h := NewGetNotebookStepsHandler(f.srv, f.logger)

	out, err := h.Handle(context.Background(), GetNotebookStepsParams{Query: filteredCountDataset})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"**Notebook: Ad-hoc query** (3 steps)", "**0:data**", "**0:filter**", "**0:summarize**", "### Query"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestGetNotebookSteps_Question(t *testing.T) {
	f := newFixture(t)
	q := f.create(t, "Orders count", filteredCountDataset)
	h := NewGetNotebookStepsHandler(f.srv, f.logger)

	out, err := h.Handle(context.Background(), GetNotebookStepsParams{QuestionID: q.ID.String(), Verbosity: "summary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "**Notebook: Orders count**") {
		t.Errorf("expected question title:\n%s", out)
	}
	if strings.Contains(out, "### Query") {
		t.Errorf("summary output should omit the query:\n%s", out)
	}
}

func TestGetNotebookSteps_Session(t *testing.T) {
	f := newFixture(t)
	h := NewGetNotebookStepsHandler(f.srv, f.logger)
	ctx := context.Background()

	if _, err := h.Handle(ctx, GetNotebookStepsParams{Query: filteredCountDataset, SessionID: "s1", OpenSteps: "0:sort"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.sessions["s1"].OpenSteps["0:sort"] {
		t.Fatalf("expected session to remember open sort step")
	}

	// The session keeps the sort step open on the next call.
	out, err := h.Handle(ctx, GetNotebookStepsParams{Query: filteredCountDataset, SessionID: "s1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "**0:sort** (sort, stage 0) *(open)*") {
		t.Errorf("expected open sort step:\n%s", out)
	}
	if !strings.Contains(out, "Session: `s1`") {
		t.Errorf("expected session id:\n%s", out)
	}
}

func TestGetNotebookSteps_Errors(t *testing.T) {
	f := newFixture(t)
	h := NewGetNotebookStepsHandler(f.srv, f.logger)
	ctx := context.Background()

	tests := []struct {
		name   string
		params GetNotebookStepsParams
		want   string
	}{
		{"nothing", GetNotebookStepsParams{}, "question_id or query is required"},
		{"both", GetNotebookStepsParams{QuestionID: uuid.NewString(), Query: filteredCountDataset}, "not both"},
		{"bad id", GetNotebookStepsParams{QuestionID: "nope"}, "invalid question_id"},
		{"missing", GetNotebookStepsParams{QuestionID: uuid.NewString()}, "question not found"},
		{"bad query", GetNotebookStepsParams{Query: `{"type":"query","query":{"filter":"x"}}`}, "invalid query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(ctx, tt.params)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestGetNotebookSteps_Native(t *testing.T) {
	f := newFixture(t)
	h := NewGetNotebookStepsHandler(f.srv, f.logger)
	out, err := h.Handle(context.Background(), GetNotebookStepsParams{Query: `{"database":1,"type":"native","native":{"query":"SELECT 1"}}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "native query") {
		t.Errorf("unexpected output: %q", out)
	}
}

// --- revert_step ---

func TestRevertStep_Query(t *testing.T) {
	f := newFixture(t)
	h := NewRevertStepHandler(f.srv, f.logger)

	out, err := h.Handle(context.Background(), RevertStepParams{Query: filteredCountDataset, StepID: "0:filter"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "**0:filter**") {
		t.Errorf("filter step should be gone:\n%s", out)
	}
	if !strings.Contains(out, "(2 steps)") {
		t.Errorf("expected 2 steps:\n%s", out)
	}
}

func TestRevertStep_Save(t *testing.T) {
	f := newFixture(t)
	q := f.create(t, "Orders count", filteredCountDataset)
	h := NewRevertStepHandler(f.srv, f.logger)

	if _, err := h.Handle(context.Background(), RevertStepParams{QuestionID: q.ID.String(), StepID: "0:filter", Save: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := f.questions.Get(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got := saved.Dataset.Query.Stage(0).Len(mbql.KindFilter); got != 0 {
		t.Errorf("expected saved query to have no filters, got %d", got)
	}
	if got := saved.Dataset.Query.Stage(0).Len(mbql.KindAggregation); got != 1 {
		t.Errorf("expected aggregation to survive, got %d", got)
	}
}

func TestRevertStep_Errors(t *testing.T) {
	f := newFixture(t)
	h := NewRevertStepHandler(f.srv, f.logger)
	ctx := context.Background()

	tests := []struct {
		name   string
		params RevertStepParams
		want   string
	}{
		{"no step", RevertStepParams{Query: filteredCountDataset}, "step_id is required"},
		{"save without question", RevertStepParams{Query: filteredCountDataset, StepID: "0:filter", Save: true}, "save requires question_id"},
		{"unknown step", RevertStepParams{Query: filteredCountDataset, StepID: "3:filter"}, "not found"},
		{"data step", RevertStepParams{Query: filteredCountDataset, StepID: "0:data"}, "cannot be reverted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(ctx, tt.params)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRevertStep_SaveRequiresWrite(t *testing.T) {
	f := newFixture(t)
	q := f.create(t, "Orders count", filteredCountDataset)
	h := NewRevertStepHandler(f.srv, f.logger)

	viewer := &auth.Principal{Sub: "viewer", Scopes: map[string]bool{auth.ScopeRead: true}, Roles: map[string]bool{auth.RoleViewer: true}}
	ctx := auth.WithPrincipal(context.Background(), viewer)

	_, err := h.Handle(ctx, RevertStepParams{QuestionID: q.ID.String(), StepID: "0:filter", Save: true})
	if err == nil || !strings.Contains(err.Error(), auth.ScopeWrite) {
		t.Fatalf("expected write scope error, got %v", err)
	}
	saved, _ := f.questions.Get(context.Background(), q.ID)
	if saved.Dataset.Query.Stage(0).Len(mbql.KindFilter) != 1 {
		t.Error("question should be unchanged")
	}
}
