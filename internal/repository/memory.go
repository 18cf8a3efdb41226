package repository

import (
	"context"
	"sync"
	"time"

	"autoservice/internal/models"
)

type MemoryStateRepository struct {
	mu         sync.Mutex
	states     map[string]memoryState
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryState struct {
	state     models.ConsoleState
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		states:     make(map[string]memoryState),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, sessionID string) (*models.ConsoleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.states[sessionID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.states, sessionID)
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *models.ConsoleState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryState{state: *state}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.states[state.SessionID] = entry
	return nil
}

func (r *MemoryStateRepository) ClearState(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
