package helpers

import (
	"context"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ ObserverError }
type NetworkError struct{ ObserverError }
type ValidationError struct{ ObserverError }

// MalformedMessageError marks a single feed payload that could not be turned
// into a domain event. The consumer drops the message and keeps running.
type MalformedMessageError struct {
	ObserverError
	Raw []byte
}

// NewMalformedMessageError builds a MalformedMessageError, keeping a bounded prefix of the payload.
func NewMalformedMessageError(reason string, raw []byte, cause error) *MalformedMessageError {
	const maxRaw = 256
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return &MalformedMessageError{
		ObserverError: ObserverError{Message: "malformed feed message: " + reason, Cause: cause},
		Raw:           append([]byte(nil), raw...),
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// Backoff yields doubling delays starting at Base and capped at Max.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	attempt int
}

// Next returns the delay for the current attempt and advances.
func (b *Backoff) Next() time.Duration {
	delay := b.Base * (1 << b.attempt)
	if delay <= 0 || delay > b.Max {
		delay = b.Max
	} else {
		b.attempt++
	}
	return delay
}

// Reset starts the sequence over after a successful attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// -----------------------------------------------------------------------------

// Sleep waits for d or until ctx is done; it reports whether the full delay elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
