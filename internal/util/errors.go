// internal/util/errors.go
package util

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies an application error for callers and the HTTP layer.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindPartialCommit     Kind = "partial_commit"
	KindUpstream          Kind = "upstream"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error is the application error type. Two *Error values match under
// errors.Is when their kinds are equal, so the sentinels below can be used
// to test any error of the same kind.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Common application-specific errors.
var (
	ErrInvalidInput      = &Error{Kind: KindValidation, Message: "invalid input provided"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflicting resource"}
	ErrPartialCommit     = &Error{Kind: KindPartialCommit, Message: "ledger write partially committed"}
	ErrUpstream          = &Error{Kind: KindUpstream, Message: "upstream service failure"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
)

// Validation reports a rejected input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing (or not owned) resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Conflict reports a collision on the named unique field.
func Conflict(field string) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: "duplicate value for " + field,
		Details: map[string]any{"field": field},
	}
}

// InsufficientFunds reports a debit larger than the available balance.
func InsufficientFunds(required, available decimal.Decimal) *Error {
	return &Error{
		Kind:    KindInsufficientFunds,
		Message: "insufficient wallet balance",
		Details: map[string]any{
			"required":  required,
			"available": available,
			"shortfall": required.Sub(available),
		},
	}
}

// PartialCommit reports a transaction record that was written without its
// balance effect. The reconciler completes or fails it later.
func PartialCommit(transactionID uuid.UUID, err error) *Error {
	return &Error{
		Kind:    KindPartialCommit,
		Message: "ledger write partially committed",
		Details: map[string]any{"transactionId": transactionID.String()},
		Err:     err,
	}
}

// Upstream wraps a failure of an external collaborator.
func Upstream(service string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: service + " unavailable", Err: err}
}

// Unauthorized reports a rejected identity.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports an identity that lacks the required role.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ConflictField returns the colliding field of a conflict error, if any.
func ConflictField(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind == KindConflict {
		if field, ok := appErr.Details["field"].(string); ok {
			return field
		}
	}
	return ""
}

// IsError is errors.Is, kept for handler readability.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
