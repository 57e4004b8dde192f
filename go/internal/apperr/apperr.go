package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures returned by the auction engine
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindStateConflict       Kind = "state_conflict"
	KindBudgetInsufficient  Kind = "budget_insufficient"
	KindSlotsFull           Kind = "slots_full"
	KindCooldownActive      Kind = "cooldown_active"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindInternal            Kind = "internal"
)

// Error is a typed failure with a message safe to show to the participant.
// Details carries actionable values such as the minimum valid bid.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// With attaches a detail value and returns the same error.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func StateConflict(format string, args ...any) *Error {
	return newf(KindStateConflict, format, args...)
}

func BudgetInsufficient(format string, args ...any) *Error {
	return newf(KindBudgetInsufficient, format, args...)
}

func SlotsFull(format string, args ...any) *Error {
	return newf(KindSlotsFull, format, args...)
}

func CooldownActive(format string, args ...any) *Error {
	return newf(KindCooldownActive, format, args...)
}

// ConcurrencyConflict wraps a lost race. Callers should retry.
func ConcurrencyConflict(cause error) *Error {
	return &Error{
		Kind:    KindConcurrencyConflict,
		Message: "the auction changed while your bid was processed, please retry",
		cause:   cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
