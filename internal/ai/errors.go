package ai

import (
	"errors"
	"fmt"
)

// Kind tells callers how to react to a failed provider call.
type Kind int

const (
	// KindTransient failures leave the session usable, the user may retry.
	KindTransient Kind = iota
	// KindFatal failures need reconfiguration (bad credential, unknown model).
	KindFatal
	// KindInvalidResponse means the call succeeded but the output was unusable.
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Error is a provider failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Fatal(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func InvalidResponse(op string, err error) error {
	return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
}

// KindOf reports the Kind of err. Untagged errors count as transient.
func KindOf(err error) Kind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindTransient
}

// IsFatal reports whether err requires reconfiguration.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}
