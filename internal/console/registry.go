package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/metrics"
	"autoservice/internal/view"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("console session not found")

const resubscribeDelay = 5 * time.Second

// Registry owns every open console session and the goroutines that keep
// their models in sync.
type Registry struct {
	ctx     context.Context
	client  domain.BookingClient
	states  StateStore
	idleTTL time.Duration
	logger  *zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewRegistry creates a registry whose session loops stop when ctx is done.
// states may be nil.
func NewRegistry(ctx context.Context, client domain.BookingClient, states StateStore, idleTTL time.Duration, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "console").Logger()
	return &Registry{
		ctx:      ctx,
		client:   client,
		states:   states,
		idleTTL:  idleTTL,
		logger:   &l,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open starts a new session for username.
func (r *Registry) Open(username string) *Session {
	return r.start(uuid.NewString(), username, nil)
}

// Resume returns the live session id, or restarts it with the UI state
// saved before a restart.
func (r *Registry) Resume(ctx context.Context, id, username string) *Session {
	if s, ok := r.Get(id); ok && s.Username == username {
		return s
	}

	var restore func(*Session)
	if r.states != nil {
		st, err := r.states.GetConsoleState(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("session_id", id).Msg("failed to load console state")
		}
		restore = func(s *Session) { s.restore(st) }
	}
	return r.start(id, username, restore)
}

func (r *Registry) start(id, username string, restore func(*Session)) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok && s.Username == username {
		return s
	}

	logger := r.logger.With().Str("session_id", id).Str("username", username).Logger()
	ctx, cancel := context.WithCancel(r.ctx)
	now := r.now()
	s := &Session{
		ID:       id,
		Username: username,
		Model:    NewModel(r.client, &logger),
		editor:   &view.NotesEditor{},
		states:   r.states,
		logger:   &logger,
		cancel:   cancel,
		done:     make(chan struct{}),
		now:      func() time.Time { return r.now() },
		cursor:   view.NewMonthCursor(now),
		lastSeen: now,
	}
	if restore != nil {
		restore(s)
	}

	if old, ok := r.sessions[id]; ok {
		old.cancel()
	}
	r.sessions[id] = s
	metrics.SetConsoleSessions(len(r.sessions))

	r.wg.Add(1)
	go r.run(ctx, s)

	logger.Info().Msg("console session opened")
	return s
}

// run keeps the session model subscribed, resubscribing after feed failures.
func (r *Registry) run(ctx context.Context, s *Session) {
	defer r.wg.Done()
	defer close(s.done)

	for {
		err := s.Model.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("console sync stopped, resubscribing")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Close ends a session and forgets its saved UI state.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	metrics.SetConsoleSessions(len(r.sessions))
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.cancel()
	<-s.done
	if r.states != nil {
		if err := r.states.ClearConsoleState(ctx, id); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear console state")
		}
	}
	s.logger.Info().Msg("console session closed")
	return nil
}

// CloseAll stops every session loop. Saved UI state is kept so sessions can
// resume after a restart.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	for id, s := range r.sessions {
		s.cancel()
		delete(r.sessions, id)
	}
	metrics.SetConsoleSessions(0)
	r.mu.Unlock()

	r.wg.Wait()
}

// Sweep closes sessions idle for longer than the idle TTL and returns how
// many were closed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	var idle []string
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range idle {
		if err := r.Close(ctx, id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		r.logger.Info().Int("closed", closed).Msg("idle console sessions swept")
	}
	return closed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
