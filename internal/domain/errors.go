package domain

import (
	"context"
	"errors"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// SubmitError describes why a producer did not get a reply.
// Whether to retry is up to the producer; the book never retries.
type SubmitError struct {
	Op        string // "enqueue" or "await"
	Err       error  // Underlying error
	Retriable bool
}

func (e *SubmitError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *SubmitError) IsRetriable() bool {
	return e.Retriable
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// NewSubmitError wraps err for the given step. Only a timed-out wait is retriable:
// the book is still alive, it was just slow.
func NewSubmitError(op string, err error) *SubmitError {
	return &SubmitError{Op: op, Err: err, Retriable: errors.Is(err, context.DeadlineExceeded)}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidAmount is returned when an order amount is zero or negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInstrument is returned when an order has no instrument.
	ErrInvalidInstrument = errors.New("invalid instrument")

	// ErrInvalidKind is returned for anything other than BUY or SELL.
	ErrInvalidKind = errors.New("invalid order kind")

	// ErrChannelClosed is returned when sending through a released sender handle.
	ErrChannelClosed = errors.New("channel closed")

	// ErrActorStopped is returned when the book is no longer consuming requests.
	ErrActorStopped = errors.New("actor stopped")

	// ErrReplyAbandoned is returned when a request was accepted into the channel
	// but the book went away before answering it.
	ErrReplyAbandoned = errors.New("reply abandoned")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
