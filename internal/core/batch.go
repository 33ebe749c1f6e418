package core

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var errEmptyMetadata = errors.New("message source returned no metadata")

// BatchOptions configures the batch orchestrator
type BatchOptions struct {
	// MaxMessages caps how many messages one batch lists
	MaxMessages int
	// Folder is the mailbox folder or label listed
	Folder string
	// RetryAttempts is the total number of tries for list and get calls
	RetryAttempts int
	// RetryDelay is the fixed wait between tries
	RetryDelay time.Duration
}

// DefaultBatchOptions returns the production batch settings
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxMessages:   100,
		Folder:        "INBOX",
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,
	}
}

// BatchService walks a batch of messages, classifies each one and tallies the
// results under the user's daily quota.
type BatchService struct {
	classifier EmailClassifier
	usage      UsageGate
	logger     *zap.Logger
	metrics    MetricsRecorder
	opts       BatchOptions
}

// NewBatchService creates a new batch service
func NewBatchService(
	classifier EmailClassifier,
	usage UsageGate,
	logger *zap.Logger,
	metrics MetricsRecorder,
	opts BatchOptions,
) *BatchService {
	defaults := DefaultBatchOptions()
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = defaults.MaxMessages
	}
	if opts.Folder == "" {
		opts.Folder = defaults.Folder
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaults.RetryAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if metrics == nil {
		metrics = NopMetrics
	}

	return &BatchService{
		classifier: classifier,
		usage:      usage,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
	}
}

// MaxMessages returns the per-batch cap
func (s *BatchService) MaxMessages() int {
	return s.opts.MaxMessages
}

// ProcessBatch classifies up to maxMessages messages from source for userID.
//
// It fails with a *QuotaExceededError before touching the source when the
// user is over the daily limit, and with a *ListingError when listing keeps
// failing. Failures on individual messages are logged and skipped.
func (s *BatchService) ProcessBatch(ctx context.Context, userID string, source MessageSource, maxMessages int) (*BatchResult, error) {
	result, err := s.processBatch(ctx, userID, source, maxMessages)
	s.metrics.BatchCompleted(result, err)
	return result, err
}

func (s *BatchService) processBatch(ctx context.Context, userID string, source MessageSource, maxMessages int) (*BatchResult, error) {
	if !s.usage.CheckDailyLimit(ctx, userID) {
		s.logger.Info("Daily limit reached", zap.String("user_id", userID))
		return nil, &QuotaExceededError{UserID: userID, Limit: s.usage.DailyLimit()}
	}

	if maxMessages <= 0 || maxMessages > s.opts.MaxMessages {
		maxMessages = s.opts.MaxMessages
	}

	var ids []string
	attempts := 0
	err := s.withRetry(ctx, func() error {
		attempts++
		var err error
		ids, err = source.List(ctx, maxMessages, s.opts.Folder)
		if err != nil {
			s.logger.Warn("Listing messages failed",
				zap.String("user_id", userID),
				zap.Int("attempt", attempts),
				zap.Error(err))
		}
		return err
	})
	if err != nil {
		s.logger.Error("Giving up listing messages", zap.String("user_id", userID), zap.Error(err))
		return nil, &ListingError{Attempts: attempts, Err: err}
	}
	if len(ids) > maxMessages {
		ids = ids[:maxMessages]
	}

	s.logger.Info("Found messages", zap.String("user_id", userID), zap.Int("count", len(ids)))

	// usage is recorded even when the request context is gone
	recordCtx := context.WithoutCancel(ctx)

	result := NewBatchResult()
	if len(ids) == 0 {
		s.usage.RecordUsage(recordCtx, userID, 0)
		return result, nil
	}

	limit := s.usage.DailyLimit()
	for i, id := range ids {
		if ctx.Err() != nil {
			s.logger.Warn("Batch interrupted", zap.String("user_id", userID), zap.Error(ctx.Err()))
			break
		}

		s.logger.Debug("Processing message",
			zap.String("message_id", id),
			zap.Int("index", i+1),
			zap.Int("total", len(ids)))

		var msg *MessageMetadata
		err := s.withRetry(ctx, func() error {
			var err error
			msg, err = source.Get(ctx, id)
			if err == nil && msg == nil {
				err = errEmptyMetadata
			}
			return err
		})
		if err != nil {
			s.logger.Error("Error processing message, skipping",
				zap.String("message_id", id),
				zap.Error(err))
			continue
		}

		if msg.Unread {
			result.UnreadCount++
		}

		category := s.classifier.Classify(ctx, msg.Request())
		result.CategoryCounts[category]++
		result.TotalProcessed++

		s.logger.Debug("Email classified",
			zap.String("message_id", id),
			zap.String("category", string(category)))

		if result.TotalProcessed >= limit {
			s.logger.Info("Daily limit reached mid-batch",
				zap.String("user_id", userID),
				zap.Int("processed", result.TotalProcessed),
				zap.Int("remaining_in_listing", len(ids)-i-1))
			break
		}
	}

	s.logger.Info("Classification complete",
		zap.String("user_id", userID),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("unread", result.UnreadCount))

	s.usage.RecordUsage(recordCtx, userID, result.TotalProcessed)
	return result, nil
}

// withRetry runs op up to RetryAttempts times with a fixed delay. Fatal
// upstream errors and context errors stop immediately.
func (s *BatchService) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), uint64(s.opts.RetryAttempts-1)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.Kind == Fatal {
			return backoff.Permanent(err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
