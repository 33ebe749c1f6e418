package core

import (
	"context"
	"time"
)

// TextGenerator defines the interface for the external text-generation service
type TextGenerator interface {
	// Generate sends the prompt and returns the raw answer text.
	// Throttling must be reported as an *UpstreamError of kind Retryable.
	Generate(ctx context.Context, prompt string) (string, error)
}

// MessageSource defines the interface for a mailbox provider
type MessageSource interface {
	// List returns up to maxResults message identifiers from folder, newest first
	List(ctx context.Context, maxResults int, folder string) ([]string, error)

	// Get returns the minimal metadata for one message
	Get(ctx context.Context, messageID string) (*MessageMetadata, error)
}

// UsageRepository defines keyed access to usage records
type UsageRepository interface {
	// Get returns the record for userID or ErrNotFound
	Get(ctx context.Context, userID string) (*UsageRecord, error)

	// Insert creates a new record
	Insert(ctx context.Context, record *UsageRecord) error

	// Update overwrites an existing record, returning ErrNotFound if none exists
	Update(ctx context.Context, record *UsageRecord) error
}

// EmailClassifier maps a message onto a category. It never fails.
type EmailClassifier interface {
	Classify(ctx context.Context, req ClassificationRequest) Category
}

// UsageGate is the quota view the batch orchestrator depends on
type UsageGate interface {
	CheckDailyLimit(ctx context.Context, userID string) bool
	RecordUsage(ctx context.Context, userID string, processedCount int)
	DailyLimit() int
}

// MetricsRecorder receives pipeline events
type MetricsRecorder interface {
	ClassificationCompleted(category Category, degraded bool)
	ClassificationRetried(wait time.Duration)
	BatchCompleted(result *BatchResult, err error)
}

// Clock returns the current time
type Clock func() time.Time

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the default SleepFunc
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopMetrics struct{}

func (nopMetrics) ClassificationCompleted(Category, bool) {}
func (nopMetrics) ClassificationRetried(time.Duration)    {}
func (nopMetrics) BatchCompleted(*BatchResult, error)     {}

// NopMetrics discards all events
var NopMetrics MetricsRecorder = nopMetrics{}
