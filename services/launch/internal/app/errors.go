package app

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidInput wraps every validation failure; the message names the
	// violated constraint.
	ErrInvalidInput  = errors.New("invalid input")
	ErrEventNotFound = errors.New("event not found")
	ErrPollNotFound  = errors.New("poll not found")
	// ErrConflict is returned only for a second vote in the same poll.
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
)

// RateLimitError carries how long the caller must wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Millisecond))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfterSeconds rounds up so clients never retry early.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
