package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error independently of the transport that reports it.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInvalid      Code = "INVALID"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NotFound(message string) *Error  { return New(CodeNotFound, message) }
func Forbidden(message string) *Error { return New(CodeForbidden, message) }
func Invalid(message string) *Error   { return New(CodeInvalid, message) }

// Internal wraps a storage or infrastructure failure.
func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

var (
	ErrProjectNotFound = NotFound("Project not found")
	ErrTaskNotFound    = NotFound("Task not found")
	ErrUserNotFound    = NotFound("User not found")
	ErrAccessDenied    = Forbidden("Access denied")
	ErrUnauthorized    = New(CodeUnauthorized, "User not authenticated")
)

// CodeOf reports the classification of err. Unclassified errors are internal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Internal causes are never exposed.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return "Internal server error"
}
