package domain

import (
	"context"
	"time"

	"autoservice/internal/events"
	"autoservice/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingStore is the persistence the booking services need.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) (bool, error)
	UpdateBookingNotes(ctx context.Context, id, notes string) error
}

// CatalogStore reads the service and slot catalog.
type CatalogStore interface {
	ListActiveServiceTypes(ctx context.Context) ([]models.ServiceType, error)
	ListActiveTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	UpdateServicePrice(ctx context.Context, key string, price float64) error
}

// BookingClient is what an admin console session talks to.
type BookingClient interface {
	List(ctx context.Context) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id, status, changedBy string) error
	UpdateNotes(ctx context.Context, id, notes, changedBy string) error
	Subscribe(ctx context.Context) (*events.Subscription, error)
}

type StateRepository interface {
	GetState(ctx context.Context, sessionID string) (*models.ConsoleState, error)
	SetState(ctx context.Context, state *models.ConsoleState) error
	ClearState(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error
}
