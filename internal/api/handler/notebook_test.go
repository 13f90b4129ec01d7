package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/notebook"
	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/pkg/apierr"
)

const (
	rawDataset        = `{"database":1,"type":"query","query":{"source-table":2}}`
	summarizedDataset = `{"database":1,"type":"query","query":{"source-table":2,"filter":["=",["field",13,null],1],"aggregation":[["count"]],"breakout":[["field",16,{"temporal-unit":"month"}]]}}`
	nativeDataset     = `{"database":1,"type":"native","native":{"query":"select 1"}}`
)

func body(query string, extra map[string]any) map[string]any {
	b := map[string]any{"query": json.RawMessage(query)}
	for k, v := range extra {
		b[k] = v
	}
	return b
}

func parseResponseQuery(t *testing.T, v stepsView) mbql.Query {
	t.Helper()
	d, err := mbql.ParseDataset(v.Query)
	if err != nil {
		t.Fatalf("parse response query: %v", err)
	}
	return d.Query
}

func TestNotebookHandler_Steps(t *testing.T) {
	env := newTestEnv(t)

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(rawDataset, nil)))
	if got, want := v.ids(), []string{"0:data"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	if len(v.Steps[0].Actions) != 6 {
		t.Errorf("expected 6 actions on the data step, got %d", len(v.Steps[0].Actions))
	}

	v = decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(summarizedDataset, nil)))
	if got, want := v.ids(), []string{"0:data", "0:filter", "0:summarize"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	if v.Steps[1].TestID != "step-filter-0-0" {
		t.Errorf("unexpected test id %q", v.Steps[1].TestID)
	}
}

func TestNotebookHandler_Steps_OpenSteps(t *testing.T) {
	env := newTestEnv(t)
	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(rawDataset, map[string]any{
		"open_steps": map[string]bool{"0:sort": true},
	})))
	if got, want := v.ids(), []string{"0:data", "0:sort"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestNotebookHandler_Steps_Native(t *testing.T) {
	env := newTestEnv(t)
	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(nativeDataset, nil)))
	if v.Steps == nil || len(v.Steps) != 0 {
		t.Errorf("native query should have an empty step list, got %v", v.Steps)
	}
}

func TestNotebookHandler_Steps_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodPost, "/notebook/steps", "invalid"), http.StatusBadRequest, apierr.CodeInvalidRequestBody)
}

func TestNotebookHandler_Steps_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/notebook/steps", body(`{"database":1,"type":"query","query":{"filter":"x"}}`, nil))
	expectError(t, w, http.StatusBadRequest, apierr.CodeInvalidQuery)
}

func TestNotebookHandler_Revert(t *testing.T) {
	env := newTestEnv(t)

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps/0:filter/revert", body(summarizedDataset, nil)))
	q := parseResponseQuery(t, v)
	if n := len(q.Stage(0).Filters()); n != 0 {
		t.Errorf("expected filter to be removed, got %d filters", n)
	}
	if n := len(q.Stage(0).Aggregations()); n != 1 {
		t.Errorf("expected aggregation to stay, got %d", n)
	}
	if got, want := v.ids(), []string{"0:data", "0:summarize"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps after revert = %v, want %v", got, want)
	}
}

func TestNotebookHandler_Revert_UsesSession(t *testing.T) {
	env := newTestEnv(t)
	env.sessions["s1"] = &session.Session{ID: "s1", OpenSteps: notebook.OpenSteps{"0:sort": true, "0:summarize": true}}

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps/0:filter/revert", body(summarizedDataset, map[string]any{"session_id": "s1"})))
	if got, want := v.ids(), []string{"0:data", "0:summarize", "0:sort"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps after revert = %v, want %v", got, want)
	}
	if v.SessionID != "s1" {
		t.Errorf("expected session id echoed, got %q", v.SessionID)
	}
	open := env.sessions["s1"].OpenSteps
	if open["0:summarize"] {
		t.Error("active summarize step should be pruned from the session")
	}
	if !open["0:sort"] {
		t.Error("unpopulated sort step should stay open")
	}
}

func TestNotebookHandler_Update_UsesSession(t *testing.T) {
	env := newTestEnv(t)
	env.sessions["s1"] = &session.Session{ID: "s1", OpenSteps: notebook.OpenSteps{"0:limit": true}}

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps/0:data/update", body(summarizedDataset, map[string]any{
		"session_id":  "s1",
		"stage_query": json.RawMessage(`{"source-table":1}`),
	})))
	if got, want := v.ids(), []string{"0:data", "0:limit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps after update = %v, want %v", got, want)
	}
}

func TestNotebookHandler_Revert_Errors(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.do(t, http.MethodPost, "/notebook/steps/0:sort/revert", body(summarizedDataset, nil)),
		http.StatusNotFound, apierr.CodeStepNotFound)
	expectError(t, env.do(t, http.MethodPost, "/notebook/steps/0:data/revert", body(summarizedDataset, nil)),
		http.StatusConflict, apierr.CodeStepNotRevertible)
	expectError(t, env.do(t, http.MethodPost, "/notebook/steps/0:data/revert", body(nativeDataset, nil)),
		http.StatusUnprocessableEntity, apierr.CodeNativeQuery)
}

func TestNotebookHandler_Update(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/notebook/steps/0:data/update", body(summarizedDataset, map[string]any{
		"stage_query": json.RawMessage(`{"source-table":1}`),
	}))
	v := decodeSteps(t, w)
	q := parseResponseQuery(t, v)
	want := mbql.MustParse(`{"source-table":1}`)
	if !mbql.Equal(q, want) {
		t.Errorf("changing the table should drop every step, got %s", q)
	}
}

func TestNotebookHandler_Update_MissingStageQuery(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodPost, "/notebook/steps/0:data/update", body(summarizedDataset, nil)),
		http.StatusBadRequest, apierr.CodeInvalidQuery)
}

func TestNotebookHandler_Clauses(t *testing.T) {
	env := newTestEnv(t)

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/clauses", body(rawDataset, map[string]any{
		"op":     "add",
		"stage":  0,
		"kind":   "limit",
		"clause": 10,
	})))
	if got, want := v.ids(), []string{"0:data", "0:limit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
	if n, ok := parseResponseQuery(t, v).Stage(0).Limit(); !ok || n != 10 {
		t.Errorf("expected limit 10, got %d", n)
	}
}

func TestNotebookHandler_Clauses_CleansDanglingRefs(t *testing.T) {
	env := newTestEnv(t)

	// Removing the only aggregation leaves the post-aggregation filter on
	// "count" unresolvable, so it is dropped along with its stage.
	dataset := `{"database":1,"type":"query","query":{"source-query":{"source-table":2,"aggregation":[["count"]],"breakout":[["field",16,null]]},"filter":[">",["field","count",{"base-type":"type/Integer"}],10]}}`
	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/clauses", body(dataset, map[string]any{
		"op":    "remove",
		"stage": 0,
		"kind":  "aggregation",
		"index": 0,
	})))
	q := parseResponseQuery(t, v)
	if q.StageCount() != 1 {
		t.Errorf("expected the outer stage to collapse, got %s", q)
	}
}

func TestNotebookHandler_Clauses_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		query  string
		extra  map[string]any
		status int
		code   apierr.Code
	}{
		{"bad op", rawDataset, map[string]any{"op": "upsert", "kind": "filter"}, http.StatusBadRequest, apierr.CodeInvalidClauseOp},
		{"bad kind", rawDataset, map[string]any{"op": "add", "kind": "having"}, http.StatusBadRequest, apierr.CodeInvalidClauseKind},
		{"native", nativeDataset, map[string]any{"op": "clear", "kind": "filter"}, http.StatusUnprocessableEntity, apierr.CodeNativeQuery},
		{"stage out of range", rawDataset, map[string]any{"op": "clear", "kind": "filter", "stage": 4}, http.StatusBadRequest, apierr.CodeInvalidEdit},
		{"index out of range", rawDataset, map[string]any{"op": "remove", "kind": "filter", "index": 2}, http.StatusBadRequest, apierr.CodeInvalidEdit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, "/notebook/clauses", body(tt.query, tt.extra)), tt.status, tt.code)
		})
	}
}

func TestNotebookHandler_OpenAndSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/notebook/steps/0:filter/open", map[string]string{"session_id": "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var opened openResponse
	if err := json.NewDecoder(w.Body).Decode(&opened); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opened.SessionID != "s1" || !opened.OpenSteps["0:filter"] {
		t.Errorf("unexpected open response %+v", opened)
	}

	v := decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(rawDataset, map[string]any{"session_id": "s1"})))
	if got, want := v.ids(), []string{"0:data", "0:filter"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
	if v.SessionID != "s1" {
		t.Errorf("expected session id echoed, got %q", v.SessionID)
	}

	// Once the filter step has a clause it is pruned from the session.
	decodeSteps(t, env.do(t, http.MethodPost, "/notebook/steps", body(summarizedDataset, map[string]any{"session_id": "s1"})))
	if env.sessions["s1"].OpenSteps["0:filter"] {
		t.Error("populated step should be pruned from the session")
	}

	w = env.do(t, http.MethodPost, "/notebook/steps/0:sort/close", map[string]string{"session_id": "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", w.Code)
	}
}

func TestNotebookHandler_Open_NoSessions(t *testing.T) {
	h := &NotebookHandler{}
	env := newTestEnv(t)
	env.router.Post("/bare/{stepID}/open", h.Open)
	expectError(t, env.do(t, http.MethodPost, "/bare/0:filter/open", map[string]string{"session_id": "s1"}),
		http.StatusServiceUnavailable, apierr.CodeUnavailable)
}
