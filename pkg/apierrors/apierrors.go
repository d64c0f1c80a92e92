// Package apierrors defines the typed error taxonomy shared by every use
// case and maps it to RFC 7807 problem documents at the HTTP boundary.
package apierrors

import (
	"fmt"
	"net/http"
)

// Code is a typed error kind, not a type name — one value per taxonomy
// entry named in the error-handling contract.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeUnsupportedMedia   Code = "UNSUPPORTED_MEDIA"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeLLMError           Code = "LLM_ERROR"
	CodeEmbeddingError     Code = "EMBEDDING_ERROR"
	CodeDatabaseError      Code = "DATABASE_ERROR"
)

// Error is the typed-result error value every use case returns instead of
// raising an exception. The HTTP layer is the only place it is mapped to a
// status code and problem document.
type Error struct {
	Code     Code
	Message  string
	Resource string // populated for SERVICE_UNAVAILABLE{resource}
	Errors   []FieldError
	cause    error
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s{%s}: %s", e.Code, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func ServiceUnavailable(resource string, cause error) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: resource + " unavailable", Resource: resource, cause: cause}
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Errors: fields}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// HTTPStatus maps a taxonomy code to its RFC 7807 `status` field.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeUnsupportedMedia:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeLLMError, CodeEmbeddingError:
		return http.StatusServiceUnavailable
	case CodeDatabaseError, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ProblemDocument is the RFC 7807 wire shape.
type ProblemDocument struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail"`
	Code     Code         `json:"code"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// ToProblem renders an Error as a ProblemDocument for a given request path.
func ToProblem(err *Error, instance string) ProblemDocument {
	status := HTTPStatus(err.Code)
	return ProblemDocument{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Message,
		Code:     err.Code,
		Instance: instance,
		Errors:   err.Errors,
	}
}

// As extracts an *Error from any error, wrapping unknown errors as INTERNAL_ERROR.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: CodeInternal, Message: err.Error(), cause: err}
}
