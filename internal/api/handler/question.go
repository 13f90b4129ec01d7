package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/export"
	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/pkg/apierr"
)

// ExportQueue is satisfied by *export.Producer.
type ExportQueue interface {
	Enqueue(ctx context.Context, msg export.Message) (string, error)
}

type QuestionHandler struct {
	logger    *slog.Logger
	questions *question.Service
	notebook  *NotebookHandler
	exports   ExportQueue
}

func NewQuestionHandler(logger *slog.Logger, questions *question.Service, nb *NotebookHandler) *QuestionHandler {
	return &QuestionHandler{logger: logger, questions: questions, notebook: nb}
}

// WithExports lets Export hand snapshots to a worker when called with
// ?async=true.
func (h *QuestionHandler) WithExports(q ExportQueue) *QuestionHandler {
	h.exports = q
	return h
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	l, o := pageParams(limit, offset)

	questions, total, err := h.questions.List(r.Context(), l, o)
	if err != nil {
		writeAPIError(w, h.logger, apierr.QuestionListFailed(err))
		return
	}
	if questions == nil {
		questions = []question.Question{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"questions": questions,
		"total":     total,
	})
}

// getQuestionOr404 loads the question named in the URL, writing the error
// response itself when it cannot.
func (h *QuestionHandler) getQuestionOr404(w http.ResponseWriter, r *http.Request) (question.Question, bool) {
	id, apiErr := parseID(chi.URLParam(r, "id"), "question")
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return question.Question{}, false
	}
	q, err := h.questions.Get(r.Context(), id)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.QuestionNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.InternalError(err))
		}
		return question.Question{}, false
	}
	return q, true
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, ok := h.getQuestionOr404(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type questionRequest struct {
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	DatasetQuery json.RawMessage `json:"dataset_query"`
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if apiErr := validateName(req.Name); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	d, apiErr := parseDataset(req.DatasetQuery)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}

	q, err := h.questions.Create(r.Context(), req.Name, req.Description, d)
	if err != nil {
		writeAPIError(w, h.logger, apierr.QuestionCreateFailed(err))
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if req.Name != "" {
		if apiErr := validateName(req.Name); apiErr != nil {
			writeAPIError(w, h.logger, apiErr)
			return
		}
	}

	id, apiErr := parseID(chi.URLParam(r, "id"), "question")
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	var dataset *mbql.Dataset
	if len(req.DatasetQuery) > 0 {
		d, apiErr := parseDataset(req.DatasetQuery)
		if apiErr != nil {
			writeAPIError(w, h.logger, apiErr)
			return
		}
		dataset = &d
	}

	q, err := h.questions.Modify(r.Context(), id, func(current *question.Question) error {
		if req.Name != "" {
			current.Name = req.Name
		}
		if req.Description != nil {
			current.Description = req.Description
		}
		if dataset != nil {
			current.Dataset = *dataset
		}
		return nil
	})
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.QuestionNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.QuestionUpdateFailed(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q, ok := h.getQuestionOr404(w, r)
	if !ok {
		return
	}
	if err := h.questions.Delete(r.Context(), q.ID); err != nil {
		writeAPIError(w, h.logger, apierr.QuestionDeleteFailed(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Steps derives the notebook steps of a saved question. A session id in the
// session_id query parameter supplies open steps.
func (h *QuestionHandler) Steps(w http.ResponseWriter, r *http.Request) {
	q, ok := h.getQuestionOr404(w, r)
	if !ok {
		return
	}
	open, sess, apiErr := h.notebook.openSteps(r.Context(), r.URL.Query().Get("session_id"), nil)
	if apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if sess != nil {
		sess.Bind(q.ID)
		open = sess.Snapshot()
	}
	h.notebook.respond(w, r, q.Dataset, open, sess)
}

func (h *QuestionHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.questions.SnapshotsEnabled() {
		writeAPIError(w, h.logger, apierr.Unavailable("Snapshot storage"))
		return
	}
	q, ok := h.getQuestionOr404(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("async") == "true" && h.exports != nil {
		msg := export.Message{QuestionID: q.ID, RequestedAt: time.Now().UTC()}
		if p, ok := auth.PrincipalFrom(r.Context()); ok {
			msg.RequestedBy = p.Sub
		}
		jobID, err := h.exports.Enqueue(r.Context(), msg)
		if err != nil {
			writeAPIError(w, h.logger, apierr.ExportFailed(err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
		return
	}
	key, err := h.questions.Export(r.Context(), q.ID)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ExportFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (h *QuestionHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, h.logger, apiErr)
		return
	}
	if req.Key == "" {
		writeAPIError(w, h.logger, apierr.KeyRequired())
		return
	}
	q, err := h.questions.Import(r.Context(), req.Key)
	if err != nil {
		if errors.Is(err, question.ErrSnapshotsDisabled) {
			writeAPIError(w, h.logger, apierr.Unavailable("Snapshot storage"))
			return
		}
		writeAPIError(w, h.logger, apierr.ImportFailed(err))
		return
	}
	writeJSON(w, http.StatusCreated, q)
}
