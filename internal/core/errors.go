package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by repositories when no record exists
	ErrNotFound = errors.New("record not found")
	// ErrQuotaExceeded is returned when the user's daily limit is already reached
	ErrQuotaExceeded = errors.New("daily processing limit reached")
	// ErrListingFailed is returned when the message source cannot be listed
	ErrListingFailed = errors.New("failed to list messages")
	// ErrReauthRequired is returned when the user's mailbox grant is no longer valid
	ErrReauthRequired = errors.New("mailbox authorization revoked")
)

// UpstreamKind tags an upstream failure as retryable or not
type UpstreamKind int

const (
	// Fatal errors are never retried
	Fatal UpstreamKind = iota
	// Retryable errors signal throttling by the upstream service
	Retryable
)

func (k UpstreamKind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// UpstreamError is the provider-neutral shape of an external service failure.
// RetryAfter is zero when the provider did not specify a delay.
type UpstreamError struct {
	Kind       UpstreamKind
	RetryAfter time.Duration
	Err        error
}

// NewRetryableError wraps err as a throttling error
func NewRetryableError(err error, retryAfter time.Duration) *UpstreamError {
	return &UpstreamError{Kind: Retryable, RetryAfter: retryAfter, Err: err}
}

// NewFatalError wraps err as a non-retryable error
func NewFatalError(err error) *UpstreamError {
	return &UpstreamError{Kind: Fatal, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Kind == Retryable && e.RetryAfter > 0 {
		return fmt.Sprintf("upstream %s error (retry after %s): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("upstream %s error: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a Retryable upstream error
func IsRetryable(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Kind == Retryable
}

// QuotaExceededError reports the limit that was hit
type QuotaExceededError struct {
	UserID string
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: user %s, limit %d", ErrQuotaExceeded, e.UserID, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// ListingError wraps the last error seen while listing messages
type ListingError struct {
	Attempts int
	Err      error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrListingFailed, e.Attempts, e.Err)
}

func (e *ListingError) Is(target error) bool {
	return target == ErrListingFailed
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
