// Package apperr defines the typed errors shared by services, middleware and
// handlers. Every error carries the HTTP status it should be rendered with so
// the outermost error handler can build the JSON envelope without guessing.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error independently of its HTTP status.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindConflict          Kind = "Conflict"
	KindNotFound          Kind = "NotFound"
	KindInvalidCredential Kind = "InvalidCredential"
	KindInvalidToken      Kind = "InvalidToken"
	KindUnauthorized      Kind = "Unauthorized"
	KindTokenReuse        Kind = "TokenReuse"
	KindUnauthenticated   Kind = "Unauthenticated"
	KindForbidden         Kind = "Forbidden"
	KindInternal          Kind = "InternalFailure"
)

var defaultStatus = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindConflict:          http.StatusConflict,
	KindNotFound:          http.StatusNotFound,
	KindInvalidCredential: http.StatusUnauthorized,
	KindInvalidToken:      http.StatusUnauthorized,
	KindUnauthorized:      http.StatusUnauthorized,
	KindTokenReuse:        http.StatusUnauthorized,
	KindUnauthenticated:   http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindInternal:          http.StatusInternalServerError,
}

// Error is a classified application error. Message is safe to show to
// clients; Err holds the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode is the HTTP status the error renders with.
func (e *Error) StatusCode() int { return e.Status }

// WithStatus returns a copy of e rendered with a different HTTP status.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// New builds an error of the given kind with its default status.
func New(kind Kind, msg string) *Error {
	status, ok := defaultStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

// Wrap is New with an underlying cause attached.
func Wrap(kind Kind, msg string, err error) *Error {
	e := New(kind, msg)
	e.Err = err
	return e
}

func Validation(msg string) *Error        { return New(KindValidation, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func InvalidCredential(msg string) *Error { return New(KindInvalidCredential, msg) }
func InvalidToken(msg string) *Error      { return New(KindInvalidToken, msg) }
func Unauthorized(msg string) *Error      { return New(KindUnauthorized, msg) }
func TokenReuse(msg string) *Error        { return New(KindTokenReuse, msg) }
func Unauthenticated(msg string) *Error   { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }

// Internal wraps an unexpected downstream failure.
func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// From converts any error into an *Error. Unclassified errors become an
// InternalFailure with a generic message so causes never leak to clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal server error", err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
