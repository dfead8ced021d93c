package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in AppError.Code.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeTimeout     = "ERR_TIMEOUT"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status and client-facing code.
// Err is kept for logs and never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam attaches a detail clients can act on, e.g. the missing result id.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError(CodeNotFound, "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

// TimeoutError is returned when rendering outlives its deadline; the client may retry.
func TimeoutError(message string) *AppError {
	return NewAppError(CodeTimeout, "", message, http.StatusServiceUnavailable)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
