package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the short-circuit paths. The HTTP layer maps these to
// response envelopes; none of them ever charge the caller.
var (
	// ErrValidation indicates a malformed request (missing prompt or models).
	ErrValidation = errors.New("invalid request")

	// ErrNoBaseModel indicates the model list contains no base descriptor.
	ErrNoBaseModel = errors.New("no base model selected")

	// ErrEmptyResult indicates the provider succeeded but returned no usable
	// image reference.
	ErrEmptyResult = errors.New("provider returned no image")
)

// InsufficientCreditsError rejects an authenticated caller whose balance
// does not cover the required units.
type InsufficientCreditsError struct {
	Required int
	Balance  int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Balance)
}

// QuotaExceededError rejects a guest caller whose free quota is exhausted.
type QuotaExceededError struct {
	ResetsAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("guest quota exhausted, resets at %s", e.ResetsAt.Format(time.RFC3339))
}

// ProviderError wraps a failed generation attempt. Message is the best-effort
// human-readable cause extracted from the provider's opaque failure value.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
