package errors

import (
	stderr "errors"
	"fmt"
)

// AppError is the service-level error carried between layers. ID is a dotted
// machine identifier used in logs, Cause keeps the original error reachable
// for unwrapping.
type AppError struct {
	ID      string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

type Option func(*AppError)

// WithID attaches a dotted identifier, e.g. "server.build.listen.error".
func WithID(id string) Option {
	return func(e *AppError) { e.ID = id }
}

// WithCause keeps the wrapped error reachable via errors.Is / errors.As.
func WithCause(cause error) Option {
	return func(e *AppError) { e.Cause = cause }
}

func New(msg string, opts ...Option) *AppError {
	e := &AppError{Message: msg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Internal marks programmer or infrastructure faults.
func Internal(msg string, opts ...Option) *AppError {
	return New(msg, opts...)
}

// Details renders the error with its ID for logging.
func Details(err error) string {
	var app *AppError
	if stderr.As(err, &app) && app.ID != "" {
		return fmt.Sprintf("[%s] %s", app.ID, app.Error())
	}
	return err.Error()
}

// Forwarders so callers don't need to import both packages.

func Is(err, target error) bool { return stderr.Is(err, target) }

func As(err error, target any) bool { return stderr.As(err, target) }
