package console

import (
	"context"
	"errors"
	"sync"

	"autoservice/internal/domain"
	"autoservice/internal/metrics"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

var ErrInvalidFilter = errors.New("invalid status filter")

// View is the filtered projection of a Model. Counts always cover the full
// snapshot.
type View struct {
	Filter    models.StatusFilter `json:"filter"`
	Bookings  []models.Booking    `json:"bookings"`
	Counts    models.Counts       `json:"counts"`
	Loading   bool                `json:"loading"`
	LastError string              `json:"last_error,omitempty"`
}

// Model keeps one admin session's copy of all bookings in step with the
// store. It never changes the snapshot speculatively: every mutation is
// followed by a full reload.
type Model struct {
	client domain.BookingClient
	logger *zerolog.Logger

	mu       sync.RWMutex
	snapshot []models.Booking
	filter   models.StatusFilter
	counts   models.Counts
	loading  bool
	lastErr  error
	issued   uint64
	applied  uint64

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
}

func NewModel(client domain.BookingClient, logger *zerolog.Logger) *Model {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Model{
		client:   client,
		logger:   logger,
		snapshot: []models.Booking{},
		filter:   models.FilterAll,
		loading:  true,
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Run subscribes to the change feed, loads the first snapshot and reloads on
// every signal until ctx is done. The subscription is always closed on return.
func (m *Model) Run(ctx context.Context) error {
	sub, err := m.client.Subscribe(ctx)
	if err != nil {
		_ = m.Reload(ctx)
		return err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("failed to close change subscription")
		}
	}()

	_ = m.Reload(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.C:
			if !ok {
				return errors.New("change feed closed")
			}
			_ = m.Reload(ctx)
		}
	}
}

// Reload replaces the snapshot with a fresh List. A response is applied only
// when it is newer than the last applied one; on error the previous snapshot
// stays and the error is recorded.
func (m *Model) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.issued++
	seq := m.issued
	m.mu.Unlock()

	bookings, err := m.client.List(ctx)

	m.mu.Lock()
	if seq <= m.applied {
		m.mu.Unlock()
		metrics.IncConsoleReload("stale")
		m.logger.Debug().Uint64("seq", seq).Msg("dropping stale booking list")
		return nil
	}

	if err != nil {
		m.loading = false
		m.lastErr = err
		m.mu.Unlock()
		metrics.IncConsoleReload("error")
		m.logger.Error().Err(err).Msg("failed to reload bookings")
		m.notify()
		return err
	}

	if bookings == nil {
		bookings = []models.Booking{}
	}
	m.snapshot = bookings
	m.counts = models.CountByStatus(bookings)
	m.applied = seq
	m.loading = false
	m.lastErr = nil
	m.mu.Unlock()

	metrics.IncConsoleReload("applied")
	m.notify()
	return nil
}

func (m *Model) Approve(ctx context.Context, id, changedBy string) error {
	return m.mutate(ctx, func() error {
		return m.client.UpdateStatus(ctx, id, models.StatusApproved, changedBy)
	})
}

func (m *Model) Decline(ctx context.Context, id, changedBy string) error {
	return m.mutate(ctx, func() error {
		return m.client.UpdateStatus(ctx, id, models.StatusDeclined, changedBy)
	})
}

func (m *Model) SetAdminNotes(ctx context.Context, id, notes, changedBy string) error {
	return m.mutate(ctx, func() error {
		return m.client.UpdateNotes(ctx, id, notes, changedBy)
	})
}

// mutate reloads even when the update failed so a session that lost a race
// shows the winner's result.
func (m *Model) mutate(ctx context.Context, update func() error) error {
	err := update()
	_ = m.Reload(ctx)
	return err
}

func (m *Model) SetFilter(filter models.StatusFilter) error {
	if !filter.Valid() {
		return ErrInvalidFilter
	}
	m.mu.Lock()
	m.filter = filter
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *Model) Filter() models.StatusFilter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter
}

func (m *Model) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := make([]models.Booking, 0, len(m.snapshot))
	for _, b := range m.snapshot {
		if m.filter.Match(b.Status) {
			filtered = append(filtered, b)
		}
	}

	v := View{
		Filter:   m.filter,
		Bookings: filtered,
		Counts:   m.counts,
		Loading:  m.loading,
	}
	if m.lastErr != nil {
		v.LastError = m.lastErr.Error()
	}
	return v
}

// Find looks a booking up in the current snapshot.
func (m *Model) Find(id string) (models.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.snapshot {
		if b.ID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// Watch registers a listener that fires after every applied snapshot,
// recorded error or filter change. Each listener gets its own channel and
// pending signals coalesce per listener. The returned func unregisters it.
func (m *Model) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.watchMu.Lock()
	m.watchers[ch] = struct{}{}
	m.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.watchMu.Lock()
			delete(m.watchers, ch)
			m.watchMu.Unlock()
		})
	}
}

func (m *Model) notify() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
