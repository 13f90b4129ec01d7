package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestWrap_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := QuestionCreateFailed(cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if err.Status() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.Status())
	}
	if err.Code() != CodeQuestionCreateFailed {
		t.Errorf("expected %s, got %s", CodeQuestionCreateFailed, err.Code())
	}
}

func TestResponse_OmitsCause(t *testing.T) {
	err := InvalidQuery(errors.New("secret detail"))
	resp := err.Response()
	if resp.Error.Message != "Invalid query" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
	if resp.Error.Code != CodeInvalidQuery {
		t.Errorf("unexpected code %q", resp.Error.Code)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get question: %w", pgx.ErrNoRows)) {
		t.Error("wrapped ErrNoRows should be not found")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("unrelated error should not be not found")
	}
}
