// Package errs defines the error taxonomy shared by the engine components.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth means the credential is absent or was rejected. It is fatal
	// for the session: no further backend calls are made.
	ErrAuth = errors.New("authentication required")

	// ErrChannelClosed means the live channel ended while still wanted.
	ErrChannelClosed = errors.New("live channel closed")

	// ErrForbidden means the backend refused access to a conversation.
	ErrForbidden = errors.New("not a participant of this conversation")

	// ErrValidation marks a request rejected locally before any call.
	ErrValidation = errors.New("nothing to send")

	// ErrBusy is returned for draft edits while a send is in flight.
	ErrBusy = errors.New("send in progress")

	// ErrUnknownConversation is returned when selecting an id the directory does not hold.
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrHalted is returned for every action after the session stopped on an auth failure.
	ErrHalted = fmt.Errorf("session halted: %w", ErrAuth)
)

// NetworkError is a transient failure of a backend call. The operation may be retried.
type NetworkError struct {
	Op     string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuth reports whether err is, or wraps, ErrAuth.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransient reports whether err is a retryable network failure.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
