package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork indicates a connection or transport failure
	ErrorTypeNetwork ErrorType = "NETWORK"
	// ErrorTypeHTTPStatus indicates a non-success HTTP status
	ErrorTypeHTTPStatus ErrorType = "HTTP_STATUS"
	// ErrorTypeDeserialization indicates a body that does not match the expected JSON shape
	ErrorTypeDeserialization ErrorType = "DESERIALIZATION"
	// ErrorTypeMissingField indicates a required response key was absent
	ErrorTypeMissingField ErrorType = "MISSING_FIELD"
	// ErrorTypeEmptyResult indicates an export finished without any result file
	ErrorTypeEmptyResult ErrorType = "EMPTY_RESULT"
	// ErrorTypeTaskFailed indicates the remote task settled in the error state
	ErrorTypeTaskFailed ErrorType = "TASK_FAILED"
	// ErrorTypePollTimeout indicates polling gave up before the task settled
	ErrorTypePollTimeout ErrorType = "POLL_TIMEOUT"
	// ErrorTypeCanceled indicates the caller's context ended the call
	ErrorTypeCanceled ErrorType = "CANCELED"
	// ErrorTypeFile indicates the local input file could not be read
	ErrorTypeFile ErrorType = "FILE"
	// ErrorTypeRequest indicates an outgoing request could not be built, e.g. a malformed URL
	ErrorTypeRequest ErrorType = "REQUEST"
	// ErrorTypeConfig indicates the client was assembled without something it needs
	ErrorTypeConfig ErrorType = "CONFIG"
)

// Stage names the workflow step an error came from
type Stage string

// Stages in workflow order; StageWait covers every task poll.
const (
	StageUpload  Stage = "upload"
	StageImport  Stage = "import"
	StageConvert Stage = "convert"
	StageExport  Stage = "export"
	StageWait    Stage = "wait"
)

// AppError represents a conversion error
type AppError struct {
	Type    ErrorType
	Stage   Stage
	Message string

	// StatusCode and Body are set for HTTP_STATUS errors.
	StatusCode int
	Body       string

	// Field is the dotted path of the absent key for MISSING_FIELD errors.
	Field string

	Err error
}

// Error returns the error message
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Stage, e.Type, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error
func New(errorType ErrorType, stage Stage, message string) error {
	return &AppError{
		Type:    errorType,
		Stage:   stage,
		Message: message,
	}
}

// Wrap wraps an error with a typed error
func Wrap(errorType ErrorType, stage Stage, message string, err error) error {
	return &AppError{
		Type:    errorType,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// Network creates a network error
func Network(stage Stage, err error) error {
	return Wrap(ErrorTypeNetwork, stage, "request failed", err)
}

// HTTPStatus creates an error for an unexpected response status
func HTTPStatus(stage Stage, statusCode int, body string) error {
	return &AppError{
		Type:       ErrorTypeHTTPStatus,
		Stage:      stage,
		Message:    fmt.Sprintf("unexpected status code %d: %s", statusCode, body),
		StatusCode: statusCode,
		Body:       body,
	}
}

// Deserialization creates an error for an undecodable response body
func Deserialization(stage Stage, err error) error {
	return Wrap(ErrorTypeDeserialization, stage, "decoding response", err)
}

// MissingField creates an error for an absent response key
func MissingField(stage Stage, field string) error {
	return &AppError{
		Type:    ErrorTypeMissingField,
		Stage:   stage,
		Message: fmt.Sprintf("missing field %q", field),
		Field:   field,
	}
}

// EmptyResult creates an error for an export without files
func EmptyResult(stage Stage, taskID string) error {
	return New(ErrorTypeEmptyResult, stage, fmt.Sprintf("task %s produced no files", taskID))
}

// TaskFailed creates an error for a task that settled in the error state
func TaskFailed(stage Stage, taskID, code, message string) error {
	return New(ErrorTypeTaskFailed, stage, fmt.Sprintf("task %s failed: %s %s", taskID, code, message))
}

// PollTimeout creates an error for a task that never settled
func PollTimeout(stage Stage, taskID string, attempts int) error {
	return New(ErrorTypePollTimeout, stage, fmt.Sprintf("task %s still pending after %d attempts", taskID, attempts))
}

// Canceled creates an error for a call ended by its context
func Canceled(stage Stage, err error) error {
	return Wrap(ErrorTypeCanceled, stage, "context done", err)
}

// File creates an error for an unreadable input file
func File(path string, err error) error {
	return Wrap(ErrorTypeFile, StageUpload, fmt.Sprintf("reading %s", path), err)
}

// Request creates an error for a request that could not be built
func Request(stage Stage, err error) error {
	return Wrap(ErrorTypeRequest, stage, "building request", err)
}

// Config creates an error for a missing collaborator or unsupported input kind
func Config(stage Stage, message string) error {
	return New(ErrorTypeConfig, stage, message)
}

func is(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNetwork checks if an error is a network error
func IsNetwork(err error) bool { return is(err, ErrorTypeNetwork) }

// IsHTTPStatus checks if an error is an unexpected status error
func IsHTTPStatus(err error) bool { return is(err, ErrorTypeHTTPStatus) }

// IsDeserialization checks if an error is a deserialization error
func IsDeserialization(err error) bool { return is(err, ErrorTypeDeserialization) }

// IsMissingField checks if an error is a missing field error
func IsMissingField(err error) bool { return is(err, ErrorTypeMissingField) }

// IsEmptyResult checks if an error is an empty result error
func IsEmptyResult(err error) bool { return is(err, ErrorTypeEmptyResult) }

// IsTaskFailed checks if an error is a failed task error
func IsTaskFailed(err error) bool { return is(err, ErrorTypeTaskFailed) }

// IsPollTimeout checks if an error is a poll timeout error
func IsPollTimeout(err error) bool { return is(err, ErrorTypePollTimeout) }

// IsCanceled checks if an error is a canceled error
func IsCanceled(err error) bool { return is(err, ErrorTypeCanceled) }

// IsFile checks if an error is a local file error
func IsFile(err error) bool { return is(err, ErrorTypeFile) }

// IsRequest checks if an error is a request construction error
func IsRequest(err error) bool { return is(err, ErrorTypeRequest) }

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool { return is(err, ErrorTypeConfig) }

// IsUpload checks if an error came from the upload step
func IsUpload(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage == StageUpload
	}
	return false
}

// StageOf returns the stage an error came from, or "" for foreign errors
func StageOf(err error) Stage {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// TypeOf returns the error type, or "" for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
