package usage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

// MemoryStore is an in-memory implementation of the UsageRepository interface.
// Records are lost on restart.
type MemoryStore struct {
	records map[string]core.UsageRecord
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory usage store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]core.UsageRecord),
		logger:  logger,
	}
}

// Get retrieves the usage record for a user
func (s *MemoryStore) Get(_ context.Context, userID string) (*core.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &record, nil
}

// Insert stores a new usage record
func (s *MemoryStore) Insert(_ context.Context, record *core.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.UserID] = *record
	s.logger.Debug("Inserted usage record", zap.String("user_id", record.UserID))
	return nil
}

// Update overwrites an existing usage record
func (s *MemoryStore) Update(_ context.Context, record *core.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UserID]; !ok {
		return core.ErrNotFound
	}
	s.records[record.UserID] = *record
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
