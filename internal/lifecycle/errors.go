package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind classifies an operation failure. Kinds are stable and safe to expose.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation_error"
	KindInvalidOperation Kind = "invalid_operation"
	KindRateLimited      Kind = "rate_limited"
	KindStoreFailure     Kind = "store_failure"
)

// Error is a classified operation failure. Its message never includes
// storage details; the underlying cause is only reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError returns an Error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Unclassified errors are store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

func notFound(what string) *Error {
	return NewError(KindNotFound, "%s not found", what)
}

func forbidden(format string, args ...any) *Error {
	return NewError(KindForbidden, format, args...)
}

func invalidOperation(format string, args ...any) *Error {
	return NewError(KindInvalidOperation, format, args...)
}

func validation(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), cause: err}
}

// StoreFailure logs err and hides it behind a generic store failure.
func StoreFailure(op string, err error) *Error {
	slog.Error("store failure", "op", op, "error", err)
	return &Error{Kind: KindStoreFailure, Message: "storage unavailable", cause: err}
}
