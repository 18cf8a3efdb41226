package service

import (
	"context"
	"errors"
	"time"

	"autoservice/internal/metrics"
	"autoservice/internal/models"
	"autoservice/internal/pricing"

	"github.com/rs/zerolog"
)

// ErrTooManySubmissions is returned when admission turns a valid draft away.
var ErrTooManySubmissions = errors.New("too many submissions")

// Admit is consulted once a draft has validated, right before it is stored.
// Returning an error keeps the booking out of the store.
type Admit func(ctx context.Context) error

// SubmissionService turns a public form draft into a stored booking.
type SubmissionService struct {
	catalog  *CatalogService
	bookings *BookingService
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewSubmissionService(catalog *CatalogService, bookings *BookingService, logger *zerolog.Logger) *SubmissionService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SubmissionService{
		catalog:  catalog,
		bookings: bookings,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates the draft against the current catalog and stores it.
// Validation problems come back as FieldErrors and nothing is stored; admit,
// when set, only runs for drafts that validated.
func (s *SubmissionService) Submit(ctx context.Context, draft models.BookingDraft, admit Admit) (*models.Booking, pricing.FieldErrors, error) {
	booking, fieldErrs := pricing.Resolve(draft, s.catalog.Catalog(ctx), s.now())
	if len(fieldErrs) > 0 {
		metrics.IncValidationFailure()
		s.logger.Debug().Interface("fields", fieldErrs).Msg("booking draft rejected")
		return nil, fieldErrs, nil
	}

	if admit != nil {
		if err := admit(ctx); err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.bookings.Create(ctx, booking); err != nil {
		return nil, nil, err
	}
	return booking, nil, nil
}
