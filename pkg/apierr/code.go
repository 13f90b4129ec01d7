package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInvalidID          Code = "INVALID_ID"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnavailable        Code = "UNAVAILABLE"
)

// Question errors.
const (
	CodeQuestionNotFound     Code = "QUESTION_NOT_FOUND"
	CodeQuestionCreateFailed Code = "QUESTION_CREATE_FAILED"
	CodeQuestionUpdateFailed Code = "QUESTION_UPDATE_FAILED"
	CodeQuestionDeleteFailed Code = "QUESTION_DELETE_FAILED"
	CodeQuestionListFailed   Code = "QUESTION_LIST_FAILED"
	CodeQuestionCountFailed  Code = "QUESTION_COUNT_FAILED"
)

// Query and notebook errors.
const (
	CodeInvalidQuery      Code = "INVALID_QUERY"
	CodeNativeQuery       Code = "NATIVE_QUERY"
	CodeStepNotFound      Code = "STEP_NOT_FOUND"
	CodeStepNotRevertible Code = "STEP_NOT_REVERTIBLE"
	CodeInvalidClauseKind Code = "INVALID_CLAUSE_KIND"
	CodeInvalidClauseOp   Code = "INVALID_CLAUSE_OP"
	CodeInvalidEdit       Code = "INVALID_EDIT"
	CodeMetadataFailed    Code = "METADATA_FAILED"
)

// Session errors.
const (
	CodeSessionFailed Code = "SESSION_FAILED"
)

// Snapshot errors.
const (
	CodeExportFailed Code = "EXPORT_FAILED"
	CodeImportFailed Code = "IMPORT_FAILED"
	CodeKeyRequired  Code = "KEY_REQUIRED"
)

// Validation errors.
const (
	CodeNameRequired Code = "NAME_REQUIRED"
	CodeNameTooLong  Code = "NAME_TOO_LONG"
)

// Health errors.
const (
	CodeDatabaseNotReady Code = "DATABASE_NOT_READY"
)
