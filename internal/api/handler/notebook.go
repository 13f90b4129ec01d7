package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/notebook"
	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/pkg/apierr"
)

// SessionStore is satisfied by *session.Manager.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

type NotebookHandler struct {
	logger    *slog.Logger
	questions *question.Service
	sessions  SessionStore
}

// NewNotebookHandler creates the notebook handler. sessions may be nil, in
// which case open steps only come from the request.
func NewNotebookHandler(logger *slog.Logger, questions *question.Service, sessions SessionStore) *NotebookHandler {
	return &NotebookHandler{logger: logger, questions: questions, sessions: sessions}
}

type stepsRequest struct {
	Query     json.RawMessage    `json:"query"`
	OpenSteps notebook.OpenSteps `json:"open_steps"`
	SessionID string             `json:"session_id"`
}

type stepsResponse struct {
	Query     mbql.Dataset   `json:"query"`
	Steps     notebook.Steps `json:"steps"`
	SessionID string         `json:"session_id,omitempty"`
}

// openSteps merges the session's open steps with the ones in the request.
// The returned session is nil when no session was asked for.
func (h *NotebookHandler) openSteps(ctx context.Context, sessionID string, extra notebook.OpenSteps) (notebook.OpenSteps, *session.Session, *apierr.Error) {
	open := notebook.OpenSteps{}
	var sess *session.Session
	if sessionID != "" && h.sessions != nil {
		s, err := h.sessions.Load(ctx, sessionID)
		if err != nil {
			return nil, nil, apierr.SessionFailed(err)
		}
		sess = s
		maps.Copy(open, sess.Snapshot())
	}
	maps.Copy(open, extra)
	return open, sess, nil
}

func (h *NotebookHandler) saveSession(ctx context.Context, sess *session.Session, steps notebook.Steps) *apierr.Error {
	if sess == nil {
		return nil
	}
	sess.Prune(steps)
	if err := h.sessions.Save(ctx, sess); err != nil {
		return apierr.SessionFailed(err)
	}
	return nil
}

func (h *NotebookHandler) derive(ctx context.Context, d mbql.Dataset, open notebook.OpenSteps) (mbql.Dataset, notebook.Steps, *apierr.Error) {
	d, steps, err := h.questions.Steps(ctx, d, open)
	if err != nil {
		return d, nil, apierr.MetadataFailed(err)
	}
	if steps == nil {
		steps = notebook.Steps{}
	}
	return d, steps, nil
}

// respond derives the steps of d and writes them with the dataset.
func (h *NotebookHandler) respond(w http.ResponseWriter, r *http.Request, d mbql.Dataset, open notebook.OpenSteps, sess *session.Session) {
	d, steps, apiErr := h.derive(r.Context(), d, open)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if apiErr := h.saveSession(r.Context(), sess, steps); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	resp := stepsResponse{Query: d, Steps: steps}
	if sess != nil {
		resp.SessionID = sess.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// Steps derives the notebook steps of a query.
func (h *NotebookHandler) Steps(w http.ResponseWriter, r *http.Request) {
	var req stepsRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	d, apiErr := parseDataset(req.Query)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	open, sess, apiErr := h.openSteps(r.Context(), req.SessionID, req.OpenSteps)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	h.respond(w, r, d, open, sess)
}

// stepTarget is the step named in the URL together with the open steps and
// session it was derived with.
type stepTarget struct {
	dataset mbql.Dataset
	step    *notebook.Step
	open    notebook.OpenSteps
	session *session.Session
}

// findStep derives the steps of the request query and looks up the step
// named in the URL.
func (h *NotebookHandler) findStep(r *http.Request, req stepsRequest) (*stepTarget, *apierr.Error) {
	d, apiErr := parseStructured(req.Query)
	if apiErr != nil {
		return nil, apiErr
	}
	open, sess, apiErr := h.openSteps(r.Context(), req.SessionID, req.OpenSteps)
	if apiErr != nil {
		return nil, apiErr
	}
	d, steps, apiErr := h.derive(r.Context(), d, open)
	if apiErr != nil {
		return nil, apiErr
	}
	step, ok := steps.Find(chi.URLParam(r, "stepID"))
	if !ok {
		return nil, apierr.StepNotFound()
	}
	return &stepTarget{dataset: d, step: step, open: open, session: sess}, nil
}

// Revert removes the clauses of one step and returns the cleaned query.
func (h *NotebookHandler) Revert(w http.ResponseWriter, r *http.Request) {
	var req stepsRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	t, apiErr := h.findStep(r, req)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	q, ok := t.step.Revert()
	if !ok {
		writeAPIError(w, h.logger, apierr.StepNotRevertible())
		return
	}
	h.respond(w, r, mbql.StructuredDataset(t.dataset.Database, q), t.open, t.session)
}

type updateRequest struct {
	stepsRequest
	StageQuery json.RawMessage `json:"stage_query"`
}

// Update replaces the stages up to the step's stage with a new stage query.
func (h *NotebookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if len(req.StageQuery) == 0 {
		writeAPIError(w, h.logger, apierr.InvalidQuery(errors.New("stage_query is required")))
		return
	}
	stageQuery, err := mbql.Parse(req.StageQuery)
	if err != nil {
		writeAPIError(w, h.logger, apierr.InvalidQuery(err))
		return
	}
	t, apiErr := h.findStep(r, req.stepsRequest)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	q := t.step.Update(stageQuery)
	h.respond(w, r, mbql.StructuredDataset(t.dataset.Database, q), t.open, t.session)
}

type editRequest struct {
	Query     json.RawMessage    `json:"query"`
	OpenSteps notebook.OpenSteps `json:"open_steps"`
	mbql.Edit
}

// Clauses applies one clause edit and returns the cleaned query with its
// steps.
func (h *NotebookHandler) Clauses(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if _, ok := mbql.ParseEditOp(string(req.Op)); !ok {
		writeAPIError(w, h.logger, apierr.InvalidClauseOp())
		return
	}
	if _, ok := mbql.ParseClauseKind(string(req.Kind)); !ok {
		writeAPIError(w, h.logger, apierr.InvalidClauseKind())
		return
	}
	d, apiErr := parseStructured(req.Query)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	d, err := h.questions.Bind(r.Context(), d)
	if err != nil {
		writeAPIError(w, h.logger, apierr.MetadataFailed(err))
		return
	}
	q, err := d.Query.Apply(req.Edit)
	if err != nil {
		writeAPIError(w, h.logger, apierr.InvalidEdit(err))
		return
	}
	h.respond(w, r, mbql.StructuredDataset(d.Database, q.Clean()), req.OpenSteps, nil)
}

type openRequest struct {
	SessionID string `json:"session_id"`
}

type openResponse struct {
	SessionID string             `json:"session_id"`
	OpenSteps notebook.OpenSteps `json:"open_steps"`
}

// Open marks a step open in a notebook session.
func (h *NotebookHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// Close forgets an open step.
func (h *NotebookHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *NotebookHandler) toggle(w http.ResponseWriter, r *http.Request, open bool) {
	if h.sessions == nil {
		writeAPIError(w, h.logger, apierr.Unavailable("Notebook sessions"))
		return
	}
	var req openRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	sess, err := h.sessions.Load(r.Context(), req.SessionID)
	if err != nil {
		writeAPIError(w, h.logger, apierr.SessionFailed(err))
		return
	}
	stepID := chi.URLParam(r, "stepID")
	if open {
		sess.Open(stepID)
	} else {
		sess.Close(stepID)
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		writeAPIError(w, h.logger, apierr.SessionFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, openResponse{SessionID: sess.ID, OpenSteps: sess.Snapshot()})
}
