package core_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/inbox-classifier/internal/core"
)

// mockGenerator replays a scripted list of answers and errors
type mockGenerator struct {
	mu        sync.Mutex
	script    []generation
	CallCount int
	Prompts   []string
	Deadlines []bool
}

type generation struct {
	text string
	err  error
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	m.Deadlines = append(m.Deadlines, hasDeadline)
	m.Prompts = append(m.Prompts, prompt)
	m.CallCount++

	if len(m.script) == 0 {
		return "", errors.New("unexpected call")
	}
	next := m.script[0]
	if len(m.script) > 1 {
		m.script = m.script[1:]
	}
	return next.text, next.err
}

func answers(texts ...string) []generation {
	out := make([]generation, len(texts))
	for i, t := range texts {
		out[i] = generation{text: t}
	}
	return out
}

func throttled(n int, retryAfter time.Duration) []generation {
	out := make([]generation, n)
	for i := range out {
		out[i] = generation{err: core.NewRetryableError(errors.New("resource exhausted"), retryAfter)}
	}
	return out
}

// sleepRecorder captures waits instead of sleeping
type sleepRecorder struct {
	Waits []time.Duration
	Err   error
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.Waits = append(s.Waits, d)
	return s.Err
}

// memoryRepo is a map-backed UsageRepository with injectable failures
type memoryRepo struct {
	mu       sync.Mutex
	records  map[string]core.UsageRecord
	GetErr   error
	WriteErr error
	Inserts  int
	Updates  int
}

func newMemoryRepo(records ...core.UsageRecord) *memoryRepo {
	r := &memoryRepo{records: make(map[string]core.UsageRecord)}
	for _, rec := range records {
		r.records[rec.UserID] = rec
	}
	return r
}

func (r *memoryRepo) Get(_ context.Context, userID string) (*core.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	rec, ok := r.records[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepo) Insert(_ context.Context, record *core.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Inserts++
	if r.WriteErr != nil {
		return r.WriteErr
	}
	r.records[record.UserID] = *record
	return nil
}

func (r *memoryRepo) Update(_ context.Context, record *core.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates++
	if r.WriteErr != nil {
		return r.WriteErr
	}
	if _, ok := r.records[record.UserID]; !ok {
		return core.ErrNotFound
	}
	r.records[record.UserID] = *record
	return nil
}

func (r *memoryRepo) record(userID string) (core.UsageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	return rec, ok
}

// mockSource serves messages from a map and fails the configured ids
type mockSource struct {
	IDs       []string
	Messages  map[string]*core.MessageMetadata
	ListErrs  []error
	GetErrs   map[string]error
	ListCalls int
	GetCalls  map[string]int
}

func (s *mockSource) List(_ context.Context, maxResults int, _ string) ([]string, error) {
	s.ListCalls++
	if len(s.ListErrs) > 0 {
		err := s.ListErrs[0]
		s.ListErrs = s.ListErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.IDs) > maxResults {
		return s.IDs[:maxResults], nil
	}
	return s.IDs, nil
}

func (s *mockSource) Get(_ context.Context, id string) (*core.MessageMetadata, error) {
	if s.GetCalls == nil {
		s.GetCalls = make(map[string]int)
	}
	s.GetCalls[id]++
	if err, ok := s.GetErrs[id]; ok {
		return nil, err
	}
	return s.Messages[id], nil
}

// mockClassifier returns a category per subject, defaulting to Work
type mockClassifier struct {
	BySubject map[string]core.Category
	Calls     []core.ClassificationRequest
}

func (c *mockClassifier) Classify(_ context.Context, req core.ClassificationRequest) core.Category {
	c.Calls = append(c.Calls, req)
	if cat, ok := c.BySubject[req.Subject]; ok {
		return cat
	}
	return core.CategoryWork
}

// mockGate records ledger interactions
type mockGate struct {
	Allow         bool
	Limit         int
	CheckCalls    int
	RecordedCalls []int
}

func (g *mockGate) CheckDailyLimit(context.Context, string) bool {
	g.CheckCalls++
	return g.Allow
}

func (g *mockGate) RecordUsage(_ context.Context, _ string, processedCount int) {
	g.RecordedCalls = append(g.RecordedCalls, processedCount)
}

func (g *mockGate) DailyLimit() int {
	return g.Limit
}
