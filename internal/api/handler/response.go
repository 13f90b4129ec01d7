package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/pkg/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError writes a structured error response and logs 5xx errors.
func writeAPIError(w http.ResponseWriter, logger *slog.Logger, e *apierr.Error) {
	if e.Status() >= 500 && logger != nil {
		logger.Error(e.Message(), slog.String("code", string(e.Code())), slog.String("error", e.Error()))
	}
	writeJSON(w, e.Status(), e.Response())
}

func decodeBody(r *http.Request, v any) *apierr.Error {
	if r.Body == nil {
		return apierr.InvalidRequestBody()
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.InvalidRequestBody()
	}
	return nil
}

func parseID(raw, entity string) (uuid.UUID, *apierr.Error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.InvalidID(entity)
	}
	return id, nil
}

// parseDataset decodes a dataset query from a request field.
func parseDataset(raw json.RawMessage) (mbql.Dataset, *apierr.Error) {
	if len(raw) == 0 {
		return mbql.Dataset{}, apierr.InvalidQuery(errMissingQuery)
	}
	d, err := mbql.ParseDataset(raw)
	if err != nil {
		return mbql.Dataset{}, apierr.InvalidQuery(err)
	}
	return d, nil
}

// parseStructured is parseDataset for operations that need a structured
// query.
func parseStructured(raw json.RawMessage) (mbql.Dataset, *apierr.Error) {
	d, apiErr := parseDataset(raw)
	if apiErr != nil {
		return d, apiErr
	}
	if d.Type != mbql.TypeQuery {
		return d, apierr.NativeQuery()
	}
	return d, nil
}
