package service

import (
	"context"
	"errors"

	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/metrics"
	"autoservice/internal/models"
	"autoservice/internal/worker"

	"github.com/rs/zerolog"
)

// BookingService is the booking client shared by the public form and the
// admin console. Every accepted mutation fires a change-feed signal, a domain
// event and a Sheets sync task.
type BookingService struct {
	store        domain.BookingStore
	feed         events.Feed
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	logger       *zerolog.Logger
}

func NewBookingService(store domain.BookingStore, feed events.Feed, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:        store,
		feed:         feed,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		logger:       logger,
	}
}

// Create stores a pending booking and returns its id.
func (s *BookingService) Create(ctx context.Context, booking *models.Booking) (string, error) {
	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return "", err
	}
	metrics.IncBookingCreated()
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("date", booking.BookingDate).
		Str("time", booking.BookingTime).
		Str("service", booking.ServiceType).
		Msg("booking created")

	s.afterChange(ctx, events.EventBookingCreated, booking, "customer", worker.TaskUpsert)
	return booking.ID, nil
}

func (s *BookingService) List(ctx context.Context) ([]models.Booking, error) {
	return s.store.ListBookings(ctx)
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// UpdateStatus moves a pending booking to approved or declined. Repeating the
// current status succeeds but fires nothing: only the admin whose update
// changed the row is credited.
func (s *BookingService) UpdateStatus(ctx context.Context, id, status, changedBy string) error {
	changed, err := s.store.UpdateBookingStatus(ctx, id, status)
	if err != nil {
		result := "error"
		if errors.Is(err, database.ErrInvalidTransition) {
			result = "conflict"
		}
		metrics.IncStatusChange(status, result)
		s.logger.Warn().Err(err).Str("booking_id", id).Str("status", status).Str("changed_by", changedBy).Msg("status update rejected")
		return err
	}
	if !changed {
		metrics.IncStatusChange(status, "noop")
		s.logger.Debug().Str("booking_id", id).Str("status", status).Str("changed_by", changedBy).Msg("status already set")
		return nil
	}
	metrics.IncStatusChange(status, "ok")

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("reload after status update")
		s.signal(ctx)
		return nil
	}
	s.logger.Info().Str("booking_id", id).Str("status", status).Str("changed_by", changedBy).Msg("booking status updated")
	s.afterChange(ctx, events.StatusEvent(status), booking, changedBy, worker.TaskUpdateStatus)
	return nil
}

// UpdateNotes replaces the admin notes of a booking. Empty notes clear them.
func (s *BookingService) UpdateNotes(ctx context.Context, id, notes, changedBy string) error {
	if err := s.store.UpdateBookingNotes(ctx, id, notes); err != nil {
		return err
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("reload after notes update")
		s.signal(ctx)
		return nil
	}
	s.afterChange(ctx, events.EventBookingNotesUpdated, booking, changedBy, worker.TaskUpsert)
	return nil
}

// Subscribe registers for change signals. The caller must Close the
// subscription.
func (s *BookingService) Subscribe(ctx context.Context) (*events.Subscription, error) {
	return s.feed.Subscribe(ctx)
}

func (s *BookingService) afterChange(ctx context.Context, eventType string, booking *models.Booking, changedBy, taskType string) {
	s.signal(ctx)
	s.publishEvent(eventType, booking, changedBy)
	s.enqueueSync(ctx, booking, taskType)
}

func (s *BookingService) signal(ctx context.Context) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx); err != nil {
		s.logger.Error().Err(err).Msg("change feed publish error")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil || eventType == "" {
		return
	}

	payload := events.NewBookingEventPayload(booking, changedBy)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == worker.TaskUpdateStatus {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
