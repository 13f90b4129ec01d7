package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/internal/store/postgres"
	"github.com/maraichr/notebook/pkg/apierr"
)

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
	if id == "" {
		id = uuid.NewString()
	}
	return &session.Session{ID: id}, nil
}

func (m memSessions) Save(_ context.Context, s *session.Session) error {
	m[s.ID] = s
	return nil
}

type testEnv struct {
	router    chi.Router
	questions *memQuestions
	sessions  memSessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		questions: &memQuestions{rows: map[uuid.UUID]postgres.Question{}},
		sessions:  memSessions{},
	}
	svc := question.NewService(env.questions, metadata.Static(metadata.SampleDatabase()), nil, logger)
	nb := NewNotebookHandler(logger, svc, env.sessions)
	qh := NewQuestionHandler(logger, svc, nb)

	r := chi.NewRouter()
	r.Post("/notebook/steps", nb.Steps)
	r.Post("/notebook/steps/{stepID}/revert", nb.Revert)
	r.Post("/notebook/steps/{stepID}/update", nb.Update)
	r.Post("/notebook/steps/{stepID}/open", nb.Open)
	r.Post("/notebook/steps/{stepID}/close", nb.Close)
	r.Post("/notebook/clauses", nb.Clauses)
	r.Get("/questions", qh.List)
	r.Post("/questions", qh.Create)
	r.Get("/questions/{id}", qh.Get)
	r.Put("/questions/{id}", qh.Update)
	r.Delete("/questions/{id}", qh.Delete)
	r.Get("/questions/{id}/steps", qh.Steps)
	r.Post("/questions/{id}/export", qh.Export)
	r.Post("/questions/import", qh.Import)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierr.Code {
	t.Helper()
	var resp apierr.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Error.Code
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code apierr.Code) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if got := decodeError(t, w); got != code {
		t.Errorf("expected code %s, got %s", code, got)
	}
}

type stepView struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	StageIndex int    `json:"stage_index"`
	TestID     string `json:"test_id"`
	Revertible bool   `json:"revertible"`
	Actions    []any  `json:"actions"`
}

type stepsView struct {
	Query     json.RawMessage `json:"query"`
	Steps     []stepView      `json:"steps"`
	SessionID string          `json:"session_id"`
}

func decodeSteps(t *testing.T, w *httptest.ResponseRecorder) stepsView {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var v stepsView
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode steps: %v", err)
	}
	return v
}

func (v stepsView) ids() []string {
	out := make([]string, len(v.Steps))
	for i, s := range v.Steps {
		out[i] = s.ID
	}
	return out
}
