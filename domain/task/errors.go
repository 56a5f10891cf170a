package task

import (
	"errors"
	"fmt"
)

// Code identifies a class of task failure. Codes are stable and appear in
// API error envelopes.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeInvalidPayload    Code = "invalid_payload"
	CodeMissingUserIDs    Code = "missing_user_ids"
	CodeInvalidUserIDs    Code = "invalid_user_ids"
	CodeIllegalTransition Code = "illegal_transition"
	CodeNotFound          Code = "not_found"
	CodeDenied            Code = "permission_denied"
	CodeUnauthenticated   Code = "not_authenticated"
	CodeInternal          Code = "server_error"
)

// Error is a classified task failure. Details is optional and must be JSON
// serializable.
type Error struct {
	Code    Code
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so callers can
// write errors.Is(err, task.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidPayload    = &Error{Code: CodeInvalidPayload, Message: "invalid payload"}
	ErrMissingUserIDs    = &Error{Code: CodeMissingUserIDs, Message: "No user IDs provided"}
	ErrInvalidUserIDs    = &Error{Code: CodeInvalidUserIDs, Message: "Invalid user IDs provided"}
	ErrIllegalTransition = &Error{Code: CodeIllegalTransition, Message: "Cannot change status of a completed task."}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDenied            = &Error{Code: CodeDenied, Message: "You do not have permission to perform this action."}
	ErrUnauthenticated   = &Error{Code: CodeUnauthenticated, Message: "Authentication credentials were not provided."}
	ErrInternal          = &Error{Code: CodeInternal, Message: "An unexpected error occurred."}
)

// MissingIDsDetail is attached to invalid_user_ids failures.
type MissingIDsDetail struct {
	MissingIDs []uint `json:"missing_ids"`
}

// UsernameDetail is attached to not_found failures of username lookups.
type UsernameDetail struct {
	Username string `json:"username"`
}

// FieldDetail names the offending input field of a validation failure.
type FieldDetail struct {
	Field string `json:"field"`
}

func validationError(field, msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: FieldDetail{Field: field}}
}

// Required builds the validation error for a missing field.
func Required(field string) *Error {
	return validationError(field, field+" is required")
}

func invalidPayload(msg string) *Error {
	return &Error{Code: CodeInvalidPayload, Message: msg}
}

// NotFound builds a not_found error for the task with the given id.
func NotFound(id uint) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("task %d not found", id)}
}

// UserNotFound builds a not_found error echoing the username that failed to
// resolve.
func UserNotFound(username string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("user %q not found", username),
		Details: UsernameDetail{Username: username},
	}
}

// InvalidUserIDs reports every requested id that did not resolve.
func InvalidUserIDs(missing []uint) *Error {
	return &Error{
		Code:    CodeInvalidUserIDs,
		Message: ErrInvalidUserIDs.Message,
		Details: MissingIDsDetail{MissingIDs: missing},
	}
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
