package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"autoservice/internal/database"
	"autoservice/internal/export"
	"autoservice/internal/models"
	"autoservice/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Catalog(r.Context()))
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var draft models.BookingDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	booking, fieldErrs, err := s.deps.Submissions.Submit(r.Context(), draft, s.admitSubmission(clientIP(r)))
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation_failed",
			"fields": fieldErrs,
		})
		return
	}
	if errors.Is(err, service.ErrTooManySubmissions) {
		writeError(w, http.StatusTooManyRequests, "too_many_submissions")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create booking")
		writeError(w, http.StatusInternalServerError, "booking_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     booking.ID,
		"status": booking.Status,
		"price":  booking.Price,
	})
}

// admitSubmission charges one submission to client. Only drafts that passed
// validation get here. A failing limit store lets the booking through.
func (s *HTTPServer) admitSubmission(client string) service.Admit {
	if s.deps.States == nil {
		return nil
	}
	return func(ctx context.Context) error {
		allowed, err := s.deps.States.AllowSubmission(ctx, client, s.cfg.Submissions.Limit, s.cfg.Submissions.Window)
		if err != nil {
			s.logger.Warn().Err(err).Str("client", client).Msg("submission limit check failed")
			return nil
		}
		if !allowed {
			return service.ErrTooManySubmissions
		}
		return nil
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.deps.Bookings.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings for export")
		writeError(w, http.StatusInternalServerError, "booking_error")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, bookings); err != nil {
		s.logger.Error().Err(err).Msg("failed to build export")
		writeError(w, http.StatusInternalServerError, "export_error")
		return
	}

	name := fmt.Sprintf("bookings_%s.xlsx", s.now().Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Price *float64 `json:"price"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Price == nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if *body.Price < 0 {
		writeError(w, http.StatusBadRequest, "invalid_price")
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.deps.Catalog.UpdateServicePrice(r.Context(), key, *body.Price); err != nil {
		if errors.Is(err, database.ErrServiceNotFound) {
			writeError(w, http.StatusNotFound, "service_not_found")
			return
		}
		s.logger.Error().Err(err).Str("service", key).Msg("failed to update price")
		writeError(w, http.StatusInternalServerError, "catalog_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "price": *body.Price})
}
