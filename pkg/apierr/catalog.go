package apierr

import "net/http"

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InvalidID(entity string) *Error {
	return New(CodeInvalidID, http.StatusBadRequest, "Invalid "+entity+" ID")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

func Unavailable(feature string) *Error {
	return New(CodeUnavailable, http.StatusServiceUnavailable, feature+" is not configured")
}

// --- Question ---

func QuestionNotFound() *Error {
	return New(CodeQuestionNotFound, http.StatusNotFound, "Question not found")
}

func QuestionCreateFailed(cause error) *Error {
	return Wrap(CodeQuestionCreateFailed, http.StatusInternalServerError, "Failed to create question", cause)
}

func QuestionUpdateFailed(cause error) *Error {
	return Wrap(CodeQuestionUpdateFailed, http.StatusInternalServerError, "Failed to update question", cause)
}

func QuestionDeleteFailed(cause error) *Error {
	return Wrap(CodeQuestionDeleteFailed, http.StatusInternalServerError, "Failed to delete question", cause)
}

func QuestionListFailed(cause error) *Error {
	return Wrap(CodeQuestionListFailed, http.StatusInternalServerError, "Failed to list questions", cause)
}

func QuestionCountFailed(cause error) *Error {
	return Wrap(CodeQuestionCountFailed, http.StatusInternalServerError, "Failed to count questions", cause)
}

// --- Query & notebook ---

func InvalidQuery(cause error) *Error {
	return Wrap(CodeInvalidQuery, http.StatusBadRequest, "Invalid query", cause)
}

func NativeQuery() *Error {
	return New(CodeNativeQuery, http.StatusUnprocessableEntity, "Native queries have no notebook steps")
}

func StepNotFound() *Error {
	return New(CodeStepNotFound, http.StatusNotFound, "Step not found")
}

func StepNotRevertible() *Error {
	return New(CodeStepNotRevertible, http.StatusConflict, "Step cannot be reverted")
}

func InvalidClauseKind() *Error {
	return New(CodeInvalidClauseKind, http.StatusBadRequest, "kind must be one of: joins, expressions, filter, aggregation, breakout, order-by, fields, limit")
}

func InvalidClauseOp() *Error {
	return New(CodeInvalidClauseOp, http.StatusBadRequest, "op must be one of: add, replace, remove, clear")
}

// InvalidEdit carries the edit problem in the message since the editor shows
// it next to the clause.
func InvalidEdit(cause error) *Error {
	return Wrap(CodeInvalidEdit, http.StatusBadRequest, cause.Error(), cause)
}

func MetadataFailed(cause error) *Error {
	return Wrap(CodeMetadataFailed, http.StatusInternalServerError, "Failed to load metadata", cause)
}

// --- Session ---

func SessionFailed(cause error) *Error {
	return Wrap(CodeSessionFailed, http.StatusInternalServerError, "Notebook session unavailable", cause)
}

// --- Snapshot ---

func ExportFailed(cause error) *Error {
	return Wrap(CodeExportFailed, http.StatusInternalServerError, "Failed to export question", cause)
}

func ImportFailed(cause error) *Error {
	return Wrap(CodeImportFailed, http.StatusInternalServerError, "Failed to import question", cause)
}

func KeyRequired() *Error {
	return New(CodeKeyRequired, http.StatusBadRequest, "Snapshot key is required")
}

// --- Validation ---

func NameRequired() *Error {
	return New(CodeNameRequired, http.StatusBadRequest, "Name is required")
}

func NameTooLong() *Error {
	return New(CodeNameTooLong, http.StatusBadRequest, "Name must be 255 characters or fewer")
}

// --- Health ---

func DatabaseNotReady() *Error {
	return New(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database not ready")
}
