package ai

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure. Transient kinds are worth retrying
// within a turn; permanent kinds are not.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindRateLimited     Kind = "rate_limited"
	KindUnavailable     Kind = "unavailable"
	KindInvalidResponse Kind = "invalid_response"
	KindUnauthorized    Kind = "unauthorized"
)

// Error wraps a provider failure with the pipeline stage it came from.
type Error struct {
	Stage string // stt, llm, tts
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ai %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

// Retryable reports whether err is a transient provider failure.
func Retryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}
