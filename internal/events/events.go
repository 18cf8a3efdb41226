package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"autoservice/internal/models"
)

const (
	EventBookingCreated      = "booking_created"
	EventBookingApproved     = "booking_approved"
	EventBookingDeclined     = "booking_declined"
	EventBookingNotesUpdated = "booking_notes_updated"
)

// StatusEvent maps a terminal booking status to its event type.
func StatusEvent(status string) string {
	switch status {
	case models.StatusApproved:
		return EventBookingApproved
	case models.StatusDeclined:
		return EventBookingDeclined
	default:
		return ""
	}
}

// BookingEventPayload is the booking snapshot carried by booking events.
type BookingEventPayload struct {
	BookingID   string  `json:"booking_id"`
	Status      string  `json:"status"`
	BookingDate string  `json:"booking_date"`
	BookingTime string  `json:"booking_time"`
	CarPlate    string  `json:"car_plate"`
	ServiceType string  `json:"service_type"`
	Price       float64 `json:"price"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	ChangedBy   string  `json:"changed_by,omitempty"`
}

func NewBookingEventPayload(b *models.Booking, changedBy string) BookingEventPayload {
	return BookingEventPayload{
		BookingID:   b.ID,
		Status:      b.Status,
		BookingDate: b.BookingDate,
		BookingTime: b.BookingTime,
		CarPlate:    b.CarPlate,
		ServiceType: b.ServiceType,
		Price:       b.Price,
		PhoneNumber: b.PhoneNumber,
		ChangedBy:   changedBy,
	}
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// EventHandler reacts to an event. Handlers run on the publisher's goroutine
// and must not block.
type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub for domain events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler for the event type. All handlers run even when
// some fail; their errors come back joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON encodes payload and publishes it. A nil bus drops the event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return b.Publish(&Event{Type: eventType, Payload: raw})
}
