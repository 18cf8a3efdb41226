package database

import (
	"context"
	"fmt"
	"time"

	"autoservice/internal/models"
)

const (
	upsertServiceTypeSQL = `INSERT INTO service_types (service_key, name_key, base_price, duration_minutes, active, created_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(service_key) DO UPDATE SET
                  name_key = excluded.name_key,
                  base_price = excluded.base_price,
                  duration_minutes = excluded.duration_minutes,
                  active = excluded.active`

	upsertTimeSlotSQL = `INSERT INTO time_slots (label, order_index, active, created_at)
              VALUES (?, ?, ?, ?)
              ON CONFLICT(label) DO UPDATE SET
                  order_index = excluded.order_index,
                  active = excluded.active`
)

// UpsertServiceType inserts a service or updates every field but its
// creation time.
func (db *DB) UpsertServiceType(ctx context.Context, s *models.ServiceType) error {
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, upsertServiceTypeSQL, s.Key, s.NameKey, s.BasePrice, s.DurationMinutes, s.Active, now); err != nil {
		return fmt.Errorf("failed to upsert service type %s: %w", s.Key, err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	return nil
}

func (db *DB) UpsertTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	now := time.Now().UTC()
	if _, err := db.ExecContext(ctx, upsertTimeSlotSQL, slot.Label, slot.OrderIndex, slot.Active, now); err != nil {
		return fmt.Errorf("failed to upsert time slot %s: %w", slot.Label, err)
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	return nil
}

// SeedCatalog upserts the configured services and slots in one transaction.
func (db *DB) SeedCatalog(ctx context.Context, services []models.ServiceType, slots []models.TimeSlot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, s := range services {
		_, err := tx.ExecContext(ctx, upsertServiceTypeSQL,
			s.Key, s.NameKey, s.BasePrice, s.DurationMinutes, s.Active, now)
		if err != nil {
			return fmt.Errorf("failed to seed service type %s: %w", s.Key, err)
		}
	}
	for _, slot := range slots {
		_, err := tx.ExecContext(ctx, upsertTimeSlotSQL,
			slot.Label, slot.OrderIndex, slot.Active, now)
		if err != nil {
			return fmt.Errorf("failed to seed time slot %s: %w", slot.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog seed: %w", err)
	}
	db.logger.Info().Int("services", len(services)).Int("time_slots", len(slots)).Msg("catalog seeded")
	return nil
}

// UpdateServicePrice changes a service's base price. Existing bookings keep
// the price they were created with.
func (db *DB) UpdateServicePrice(ctx context.Context, key string, price float64) error {
	if price < 0 {
		return fmt.Errorf("base price must not be negative: %v", price)
	}
	result, err := db.ExecContext(ctx, `UPDATE service_types SET base_price = ? WHERE service_key = ?`, price, key)
	if err != nil {
		return fmt.Errorf("failed to update service price: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// ListActiveServiceTypes returns active services, cheapest first.
func (db *DB) ListActiveServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	query := `SELECT service_key, name_key, base_price, duration_minutes, active, created_at
              FROM service_types WHERE active = 1 ORDER BY base_price ASC, service_key ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	defer rows.Close()

	services := make([]models.ServiceType, 0)
	for rows.Next() {
		var s models.ServiceType
		if err := rows.Scan(&s.Key, &s.NameKey, &s.BasePrice, &s.DurationMinutes, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service type: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// ListActiveTimeSlots returns active slots in display order.
func (db *DB) ListActiveTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	query := `SELECT label, order_index, active, created_at
              FROM time_slots WHERE active = 1 ORDER BY order_index ASC, label ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	defer rows.Close()

	slots := make([]models.TimeSlot, 0)
	for rows.Next() {
		var s models.TimeSlot
		if err := rows.Scan(&s.Label, &s.OrderIndex, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan time slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
