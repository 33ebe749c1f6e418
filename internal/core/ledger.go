package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultDailyLimit is the number of messages a user may classify per day
const DefaultDailyLimit = 100

// UsageLedger gates classification work on a per-user daily counter.
//
// RecordUsage is a read-modify-write without locking: two concurrent batches
// for one user can lose an increment, and two batches racing across midnight
// can both reset the stale record. The quota is an abuse guard, so this
// undercount is accepted.
type UsageLedger struct {
	repo       UsageRepository
	logger     *zap.Logger
	dailyLimit int
	now        Clock
}

// NewUsageLedger creates a new usage ledger. A nil clock means time.Now.
func NewUsageLedger(repo UsageRepository, logger *zap.Logger, dailyLimit int, clock Clock) *UsageLedger {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if clock == nil {
		clock = time.Now
	}
	return &UsageLedger{
		repo:       repo,
		logger:     logger,
		dailyLimit: dailyLimit,
		now:        clock,
	}
}

// DailyLimit returns the configured daily limit
func (l *UsageLedger) DailyLimit() int {
	return l.dailyLimit
}

func (l *UsageLedger) today() string {
	return l.now().Format(DateLayout)
}

// CheckDailyLimit reports whether userID may process more messages today.
// Storage errors deny.
func (l *UsageLedger) CheckDailyLimit(ctx context.Context, userID string) bool {
	record, err := l.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if err != nil {
		l.logger.Error("Error checking daily limit", zap.String("user_id", userID), zap.Error(err))
		return false
	}

	return record.CountOn(l.today()) < l.dailyLimit
}

// RecordUsage adds processedCount to today's counter for userID. A record
// from an earlier day is overwritten rather than accumulated. Storage errors
// are logged and swallowed.
func (l *UsageLedger) RecordUsage(ctx context.Context, userID string, processedCount int) {
	today := l.today()

	record, err := l.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		err = l.repo.Insert(ctx, &UsageRecord{
			UserID:              userID,
			DailyProcessedCount: processedCount,
			LastProcessedDate:   today,
		})
	case err != nil:
	case record.LastProcessedDate != today:
		err = l.repo.Update(ctx, &UsageRecord{
			UserID:              userID,
			DailyProcessedCount: processedCount,
			LastProcessedDate:   today,
		})
	default:
		err = l.repo.Update(ctx, &UsageRecord{
			UserID:              userID,
			DailyProcessedCount: record.DailyProcessedCount + processedCount,
			LastProcessedDate:   today,
		})
	}

	if err != nil {
		l.logger.Error("Error updating user usage",
			zap.String("user_id", userID),
			zap.Int("processed_count", processedCount),
			zap.Error(err))
		return
	}

	l.logger.Debug("Recorded usage", zap.String("user_id", userID), zap.Int("processed_count", processedCount))
}

// Summary returns today's usage for userID
func (l *UsageLedger) Summary(ctx context.Context, userID string) (*UsageSummary, error) {
	now := l.now()

	used := 0
	record, err := l.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		used = record.CountOn(now.Format(DateLayout))
	}

	remaining := l.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &UsageSummary{
		DailyProcessed: used,
		DailyLimit:     l.dailyLimit,
		Remaining:      remaining,
		AsOf:           now,
	}, nil
}
