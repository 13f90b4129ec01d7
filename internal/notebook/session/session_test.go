package session

import (
	"testing"

	"github.com/google/uuid"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook"
)

// --- Session creation ---

func TestNewSession_Initialized(t *testing.T) {
	sess := newSession("test-id")
	if sess.ID != "test-id" {
		t.Errorf("session ID should be 'test-id', got %q", sess.ID)
	}
	if sess.OpenSteps == nil {
		t.Error("OpenSteps should be initialized")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

// --- Open / Close ---

func TestOpenClose(t *testing.T) {
	sess := newSession("test")
	sess.Open("0:filter")
	if !sess.OpenSteps["0:filter"] {
		t.Error("step should be open after Open")
	}
	sess.Close("0:filter")
	if sess.OpenSteps["0:filter"] {
		t.Error("step should be closed after Close")
	}
}

func TestOpen_NilMap(t *testing.T) {
	sess := &Session{}
	sess.Open("0:sort")
	if !sess.OpenSteps["0:sort"] {
		t.Error("Open should initialize the map")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	sess := newSession("test")
	sess.Open("0:limit")
	snap := sess.Snapshot()
	snap["0:sort"] = true
	if sess.OpenSteps["0:sort"] {
		t.Error("snapshot should not share storage with the session")
	}
}

// --- Prune ---

func TestPrune_DropsPopulatedSteps(t *testing.T) {
	sess := newSession("test")
	sess.Open("0:filter")
	sess.Open("0:sort")

	q := mbql.NewForTable(metadata.OrdersID).
		WithMetadata(metadata.SampleDatabase()).
		WithDatabase(metadata.SampleDatabaseID).
		Add(0, mbql.KindFilter, mbql.Clause{"not-null", []any{"field", metadata.Orders.Tax, nil}})
	sess.Prune(notebook.Derive(q, sess.Snapshot()))

	if sess.OpenSteps["0:filter"] {
		t.Error("populated filter step should be pruned")
	}
	if !sess.OpenSteps["0:sort"] {
		t.Error("empty sort step should stay open")
	}
}

// --- Bind ---

func TestBind_ResetsOnQuestionChange(t *testing.T) {
	sess := newSession("test")
	first := uuid.New()
	sess.Bind(first)
	sess.Open("0:filter")

	sess.Bind(first)
	if !sess.OpenSteps["0:filter"] {
		t.Error("rebinding the same question should keep open steps")
	}

	sess.Bind(uuid.New())
	if len(sess.OpenSteps) != 0 {
		t.Errorf("binding another question should clear open steps, got %v", sess.OpenSteps)
	}
}
