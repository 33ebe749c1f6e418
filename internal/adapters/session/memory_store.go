package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/ports"
)

// MemoryStore is an in-memory implementation of the SessionStore interface
type MemoryStore struct {
	sessions    map[string]*ports.Session
	mu          sync.RWMutex
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	now         core.Clock
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new in-memory session store and starts the
// background sweep of expired sessions
func NewMemoryStore(logger *zap.Logger, ttl, cleanupFreq time.Duration) *MemoryStore {
	store := newMemoryStore(logger, ttl, cleanupFreq, time.Now)
	if cleanupFreq > 0 {
		go store.startCleanupTask()
	}
	return store
}

func newMemoryStore(logger *zap.Logger, ttl, cleanupFreq time.Duration, clock core.Clock) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*ports.Session),
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		now:         clock,
		stopCh:      make(chan struct{}),
	}
}

// Create starts a new empty session
func (s *MemoryStore) Create(_ context.Context) (*ports.Session, error) {
	now := s.now()
	session := &ports.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	copied := *session
	return &copied, nil
}

// Get retrieves a live session by id
func (s *MemoryStore) Get(_ context.Context, id string) (*ports.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || !s.now().Before(session.ExpiresAt) {
		return nil, ports.ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// Save stores changes to an existing session
func (s *MemoryStore) Save(_ context.Context, session *ports.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return ports.ErrSessionNotFound
	}

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// Delete removes a session
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Cleanup removes expired sessions
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiredCount := 0

	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired sessions", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored sessions, expired or not
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// startCleanupTask starts a background task to clean up expired sessions
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up sessions", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
