package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advanceDays(n int) {
	c.now = c.now.AddDate(0, 0, n)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 16, 9, 30, 0, 0, time.Local)}
}

func TestCheckDailyLimit(t *testing.T) {
	clock := newClock()
	today := clock.now.Format(core.DateLayout)
	yesterday := clock.now.AddDate(0, 0, -1).Format(core.DateLayout)

	tests := []struct {
		name   string
		record *core.UsageRecord
		getErr error
		want   bool
	}{
		{name: "new user", want: true},
		{name: "below limit today", record: &core.UsageRecord{UserID: "u", DailyProcessedCount: 99, LastProcessedDate: today}, want: true},
		{name: "at limit today", record: &core.UsageRecord{UserID: "u", DailyProcessedCount: 100, LastProcessedDate: today}, want: false},
		{name: "above limit today", record: &core.UsageRecord{UserID: "u", DailyProcessedCount: 150, LastProcessedDate: today}, want: false},
		{name: "at limit yesterday", record: &core.UsageRecord{UserID: "u", DailyProcessedCount: 100, LastProcessedDate: yesterday}, want: true},
		{name: "above limit yesterday", record: &core.UsageRecord{UserID: "u", DailyProcessedCount: 500, LastProcessedDate: yesterday}, want: true},
		{name: "storage error denies", getErr: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			if tt.record != nil {
				repo = newMemoryRepo(*tt.record)
			}
			repo.GetErr = tt.getErr
			ledger := core.NewUsageLedger(repo, zap.NewNop(), 100, clock.Now)

			assert.Equal(t, tt.want, ledger.CheckDailyLimit(context.Background(), "u"))
		})
	}
}

func TestRecordUsage_AccumulatesSameDay(t *testing.T) {
	clock := newClock()
	repo := newMemoryRepo()
	ledger := core.NewUsageLedger(repo, zap.NewNop(), 100, clock.Now)

	ledger.RecordUsage(context.Background(), "user-a", 5)
	ledger.RecordUsage(context.Background(), "user-a", 5)

	rec, ok := repo.record("user-a")
	require.True(t, ok)
	assert.Equal(t, 10, rec.DailyProcessedCount)
	assert.Equal(t, "2026-10-16", rec.LastProcessedDate)
	assert.Equal(t, 1, repo.Inserts)
	assert.Equal(t, 1, repo.Updates)
}

func TestRecordUsage_ResetsOnRollover(t *testing.T) {
	clock := newClock()
	repo := newMemoryRepo()
	ledger := core.NewUsageLedger(repo, zap.NewNop(), 100, clock.Now)

	ledger.RecordUsage(context.Background(), "user-a", 5)
	clock.advanceDays(1)
	ledger.RecordUsage(context.Background(), "user-a", 7)

	rec, ok := repo.record("user-a")
	require.True(t, ok)
	assert.Equal(t, 7, rec.DailyProcessedCount)
	assert.Equal(t, "2026-10-17", rec.LastProcessedDate)
}

func TestRecordUsage_ZeroCountCreatesEmptyRecord(t *testing.T) {
	clock := newClock()
	repo := newMemoryRepo()
	ledger := core.NewUsageLedger(repo, zap.NewNop(), 100, clock.Now)

	ledger.RecordUsage(context.Background(), "user-a", 0)

	rec, ok := repo.record("user-a")
	require.True(t, ok)
	assert.Equal(t, 0, rec.DailyProcessedCount)
	assert.True(t, ledger.CheckDailyLimit(context.Background(), "user-a"))
}

func TestRecordUsage_SwallowsStorageErrors(t *testing.T) {
	clock := newClock()

	writeFail := newMemoryRepo()
	writeFail.WriteErr = errors.New("disk full")
	ledger := core.NewUsageLedger(writeFail, zap.NewNop(), 100, clock.Now)
	assert.NotPanics(t, func() { ledger.RecordUsage(context.Background(), "user-a", 3) })
	_, ok := writeFail.record("user-a")
	assert.False(t, ok)

	readFail := newMemoryRepo()
	readFail.GetErr = errors.New("timeout")
	ledger = core.NewUsageLedger(readFail, zap.NewNop(), 100, clock.Now)
	ledger.RecordUsage(context.Background(), "user-a", 3)
	assert.Zero(t, readFail.Inserts)
	assert.Zero(t, readFail.Updates)
}

func TestUsageSummary(t *testing.T) {
	clock := newClock()
	repo := newMemoryRepo()
	ledger := core.NewUsageLedger(repo, zap.NewNop(), 100, clock.Now)

	summary, err := ledger.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DailyProcessed)
	assert.Equal(t, 100, summary.Remaining)

	ledger.RecordUsage(context.Background(), "user-a", 40)
	summary, err = ledger.Summary(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Equal(t, 40, summary.DailyProcessed)
	assert.Equal(t, 60, summary.Remaining)
	assert.Equal(t, 100, summary.DailyLimit)

	clock.advanceDays(1)
	summary, err = ledger.Summary(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DailyProcessed)
	assert.Equal(t, 100, summary.Remaining)

	repo.GetErr = errors.New("down")
	_, err = ledger.Summary(context.Background(), "user-a")
	assert.Error(t, err)
}

func TestUsageLedger_DefaultLimit(t *testing.T) {
	ledger := core.NewUsageLedger(newMemoryRepo(), zap.NewNop(), 0, nil)
	assert.Equal(t, core.DefaultDailyLimit, ledger.DailyLimit())
}
