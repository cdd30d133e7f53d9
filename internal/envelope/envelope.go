// Package envelope defines the {data, error} response contract shared by the
// HTTP API and its Go client.
//
// Every API response carries exactly one of data or error. Errors always
// carry a machine-readable Code and a human-readable message. The set of
// codes is closed; callers switch on Code rather than on message text.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable failure kind.
type Code string

const (
	// CodeUnauthorized means the request has no valid session.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeValidation means a required field was missing or malformed.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeForbidden means the caller is authenticated but not allowed to touch the target.
	CodeForbidden Code = "FORBIDDEN"
	// CodeNotFound means the target row does not exist or is not visible to the caller.
	CodeNotFound Code = "NOT_FOUND"
	// CodeDatabase is the catch-all for storage failures.
	CodeDatabase Code = "DATABASE_ERROR"
	// CodeRateLimited is returned by the server when a write bucket is exhausted.
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeNetwork is produced client-side for transport failures and undecodable responses.
	CodeNetwork Code = "NETWORK_ERROR"
)

// Error is the error half of the envelope.
type Error struct {
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status maps the error's code to an HTTP status.
func (e *Error) Status() int {
	return Status(e.Code)
}

// Status maps a Code to the HTTP status the API answers with.
func Status(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Unauthorized returns the standard 401 error.
func Unauthorized() *Error { return New(CodeUnauthorized, "Unauthorized") }

// Validation returns a VALIDATION_ERROR with the given message.
func Validation(message string) *Error { return New(CodeValidation, message) }

// Forbidden returns a FORBIDDEN error with the given message.
func Forbidden(message string) *Error { return New(CodeForbidden, message) }

// NotFound returns a NOT_FOUND error with the given message.
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// Database wraps a storage failure. The underlying error text is exposed as
// the message, matching what the hosted data layer used to return.
func Database(err error) *Error {
	if err == nil {
		return New(CodeDatabase, "database error")
	}
	return New(CodeDatabase, err.Error())
}

// Network returns a NETWORK_ERROR for a transport failure.
func Network(err error) *Error {
	if err == nil {
		return New(CodeNetwork, "network error")
	}
	return New(CodeNetwork, err.Error())
}

// As extracts an *Error from err. Errors that are not envelope errors are
// reported as DATABASE_ERROR so that nothing unclassified reaches a caller.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Database(err)
}

// IsCode reports whether err is an envelope error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Response is the wire form of every API reply.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// OK wraps a success payload.
func OK(data any) Response {
	return Response{Data: data}
}

// Fail wraps a failure.
func Fail(err *Error) Response {
	return Response{Error: err}
}

// Raw is the decode-side form of Response; Data is left undecoded so the
// caller can pick the concrete type.
type Raw struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

// Result is a tagged success/failure value. Exactly one of Value (with OK
// set) or Err is meaningful.
type Result[T any] struct {
	Value T
	Err   *Error
}

// Success builds a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failure builds a failed Result.
func Failure[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap returns the value and the failure as a plain error, for callers
// that prefer the (value, error) form.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		return r.Value, r.Err
	}
	return r.Value, nil
}
