package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoservice/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, phone_number, booking_date, booking_time, car_vin, car_plate,
	                 service_type, price, status, customer_notes, admin_notes,
	                 created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateBooking stores a new booking and fills in its id and timestamps.
// The stored status is always pending.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				id, phone_number, booking_date, booking_time, car_vin, car_plate,
				service_type, price, status, customer_notes, admin_notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		id,
		booking.PhoneNumber,
		booking.BookingDate,
		booking.BookingTime,
		nullString(booking.CarVIN),
		booking.CarPlate,
		booking.ServiceType,
		booking.Price,
		models.StatusPending,
		nullString(booking.CustomerNotes),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.ID = id
	booking.Status = models.StatusPending
	booking.AdminNotes = ""
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookings returns every booking ordered by date, then time.
func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              ORDER BY booking_date ASC, booking_time ASC, created_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus moves a pending booking to approved or declined and
// reports whether the row changed. Repeating the current terminal status is a
// no-op (false, nil); any other change of a terminal booking returns
// ErrInvalidTransition.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) (bool, error) {
	if status != models.StatusApproved && status != models.StatusDeclined {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	current, err := db.GetBooking(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status == status {
		return false, nil
	}
	return false, ErrInvalidTransition
}

// UpdateBookingNotes replaces the admin notes. An empty string clears them.
func (db *DB) UpdateBookingNotes(ctx context.Context, id, notes string) error {
	query := `UPDATE bookings SET admin_notes = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, nullString(notes), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking notes: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                              models.Booking
		vin, customerNotes, adminNotes sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.PhoneNumber, &b.BookingDate, &b.BookingTime, &vin, &b.CarPlate,
		&b.ServiceType, &b.Price, &b.Status, &customerNotes, &adminNotes,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CarVIN = vin.String
	b.CustomerNotes = customerNotes.String
	b.AdminNotes = adminNotes.String
	return &b, nil
}
