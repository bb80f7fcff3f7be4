package services

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies a lifecycle failure. Callers branch on the kind, never on
// the message.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindUserNotFound
	KindValidation
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindUserNotFound:
		return "user_not_found"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is the single failure type returned by the lifecycle service.
type Error struct {
	Kind    Kind
	Message string

	// Set for KindRateLimited.
	RetryAfter time.Duration
	Remaining  int

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func errUnauthorized() error {
	return &Error{Kind: KindUnauthorized, Message: "Authentication required"}
}

func errUserNotFound() error {
	return &Error{Kind: KindUserNotFound, Message: "User not found"}
}

func errValidation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func errRateLimited(d Decision) error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    "Too many requests. Please try again later.",
		RetryAfter: time.Duration(d.ResetSeconds) * time.Second,
		Remaining:  d.Remaining,
	}
}

func errInternal(err error, op string) error {
	return &Error{Kind: KindInternal, Message: "Failed to " + op, Err: err}
}
