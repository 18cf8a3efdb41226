package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"autoservice/internal/database"
	"autoservice/internal/events"
	"autoservice/internal/models"
	"autoservice/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error {
	return m.Called(ctx, taskType, bookingID, booking, status).Error(0)
}

type eventRecorder struct {
	mu     sync.Mutex
	events map[string][]events.BookingEventPayload
}

func newEventRecorder(bus *events.EventBus, types ...string) *eventRecorder {
	r := &eventRecorder{events: make(map[string][]events.BookingEventPayload)}
	for _, typ := range types {
		bus.Subscribe(typ, func(e *events.Event) error {
			var p events.BookingEventPayload
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return err
			}
			r.mu.Lock()
			r.events[e.Type] = append(r.events[e.Type], p)
			r.mu.Unlock()
			return nil
		})
	}
	return r
}

func (r *eventRecorder) get(typ string) []events.BookingEventPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.BookingEventPayload(nil), r.events[typ]...)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newBooking() *models.Booking {
	return &models.Booking{
		PhoneNumber: "+1 (555) 123-4567",
		BookingDate: "2024-03-05",
		BookingTime: "09:00",
		CarPlate:    "A123BC",
		ServiceType: "oil_change",
		Price:       50,
		Status:      models.StatusPending,
	}
}

func expectSignal(t *testing.T, sub *events.Subscription) {
	t.Helper()
	select {
	case <-sub.C:
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}
}

func TestBookingService_Create(t *testing.T) {
	db := newTestDB(t)
	feed := events.NewMemoryFeed()
	bus := events.NewEventBus()
	recorder := newEventRecorder(bus, events.EventBookingCreated)
	syncer := new(mockSyncWorker)
	svc := NewBookingService(db, feed, bus, syncer, nil)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	syncer.On("EnqueueTask", ctx, worker.TaskUpsert, mock.AnythingOfType("string"), mock.AnythingOfType("*models.Booking"), "").Return(nil).Once()

	id, err := svc.Create(ctx, newBooking())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	expectSignal(t, sub)
	created := recorder.get(events.EventBookingCreated)
	require.Len(t, created, 1)
	assert.Equal(t, id, created[0].BookingID)
	assert.Equal(t, "A123BC", created[0].CarPlate)
	syncer.AssertExpectations(t)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookingService_CreateError(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())
	feed := events.NewMemoryFeed()
	svc := NewBookingService(db, feed, nil, nil, nil)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	_, err = svc.Create(ctx, newBooking())
	assert.Error(t, err)

	select {
	case <-sub.C:
		t.Fatal("failed create must not signal")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBookingService_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	feed := events.NewMemoryFeed()
	bus := events.NewEventBus()
	recorder := newEventRecorder(bus, events.EventBookingApproved, events.EventBookingDeclined)
	syncer := new(mockSyncWorker)
	svc := NewBookingService(db, feed, bus, syncer, nil)
	ctx := context.Background()

	syncer.On("EnqueueTask", ctx, worker.TaskUpsert, mock.Anything, mock.Anything, "").Return(nil)
	id, err := svc.Create(ctx, newBooking())
	require.NoError(t, err)

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	syncer.On("EnqueueTask", ctx, worker.TaskUpdateStatus, id, mock.AnythingOfType("*models.Booking"), models.StatusApproved).Return(nil).Once()
	require.NoError(t, svc.UpdateStatus(ctx, id, models.StatusApproved, "admin"))
	expectSignal(t, sub)

	approved := recorder.get(events.EventBookingApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "admin", approved[0].ChangedBy)
	assert.Equal(t, models.StatusApproved, approved[0].Status)

	err = svc.UpdateStatus(ctx, id, models.StatusDeclined, "other")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	assert.Empty(t, recorder.get(events.EventBookingDeclined))

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, "missing", models.StatusApproved, "admin"), database.ErrBookingNotFound)
	syncer.AssertExpectations(t)
}

func TestBookingService_RepeatedStatusCreditsFirstAdmin(t *testing.T) {
	db := newTestDB(t)
	feed := events.NewMemoryFeed()
	bus := events.NewEventBus()
	recorder := newEventRecorder(bus, events.EventBookingApproved)
	syncer := new(mockSyncWorker)
	svc := NewBookingService(db, feed, bus, syncer, nil)
	ctx := context.Background()

	syncer.On("EnqueueTask", ctx, worker.TaskUpsert, mock.Anything, mock.Anything, "").Return(nil)
	id, err := svc.Create(ctx, newBooking())
	require.NoError(t, err)

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	syncer.On("EnqueueTask", ctx, worker.TaskUpdateStatus, id, mock.AnythingOfType("*models.Booking"), models.StatusApproved).Return(nil).Once()

	require.NoError(t, svc.UpdateStatus(ctx, id, models.StatusApproved, "alice"))
	expectSignal(t, sub)
	first, err := svc.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, id, models.StatusApproved, "bob"))

	approved := recorder.get(events.EventBookingApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, "alice", approved[0].ChangedBy)

	select {
	case <-sub.C:
		t.Fatal("repeated status must not signal")
	case <-time.After(50 * time.Millisecond):
	}

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, got.UpdatedAt)
	syncer.AssertNumberOfCalls(t, "EnqueueTask", 2)
	syncer.AssertExpectations(t)
}

func TestBookingService_UpdateNotes(t *testing.T) {
	db := newTestDB(t)
	feed := events.NewMemoryFeed()
	bus := events.NewEventBus()
	recorder := newEventRecorder(bus, events.EventBookingNotesUpdated)
	svc := NewBookingService(db, feed, bus, nil, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, newBooking())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateNotes(ctx, id, "replace filter", "admin"))
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "replace filter", got.AdminNotes)
	require.Len(t, recorder.get(events.EventBookingNotesUpdated), 1)

	assert.ErrorIs(t, svc.UpdateNotes(ctx, "missing", "x", "admin"), database.ErrBookingNotFound)
}
