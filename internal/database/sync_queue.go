package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autoservice/internal/models"
)

const syncTaskColumns = `id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

// CreateSyncTask queues a spreadsheet sync task. An empty status means pending.
func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.SyncPending
	}
	task.CreatedAt = time.Now().UTC()

	res, err := db.ExecContext(ctx, `
		INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.BookingID, task.Payload, task.Status, task.RetryCount, task.LastError,
		task.CreatedAt, utcPtr(task.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	if task.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read sync task id: %w", err)
	}
	return nil
}

// DueSyncTasks returns up to limit pending or retrying tasks whose retry time
// has passed at now, oldest first.
func (db *DB) DueSyncTasks(ctx context.Context, now time.Time, limit int) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+syncTaskColumns+` FROM sync_queue
		WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id LIMIT ?`,
		models.SyncPending, models.SyncRetry, now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due sync tasks: %w", err)
	}
	return scanSyncTasks(rows)
}

// FailedSyncTasks lists tasks that ran out of retries, newest first.
func (db *DB) FailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+syncTaskColumns+` FROM sync_queue
		WHERE status = ? ORDER BY created_at DESC, id DESC`,
		models.SyncFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed sync tasks: %w", err)
	}
	return scanSyncTasks(rows)
}

func (db *DB) CompleteSyncTask(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = NULL, next_retry_at = NULL, processed_at = ?
		WHERE id = ?`,
		models.SyncCompleted, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync task %d: %w", id, err)
	}
	return nil
}

// RetrySyncTask records a failed attempt and parks the task until at.
func (db *DB) RetrySyncTask(ctx context.Context, id int64, cause string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1
		WHERE id = ?`,
		models.SyncRetry, cause, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule retry for sync task %d: %w", id, err)
	}
	return nil
}

func (db *DB) FailSyncTask(ctx context.Context, id int64, cause string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ?
		WHERE id = ?`,
		models.SyncFailed, cause, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark sync task %d failed: %w", id, err)
	}
	return nil
}

// CountSyncTasks returns queue size per status.
func (db *DB) CountSyncTasks(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sync task count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanSyncTasks(rows *sql.Rows) ([]models.SyncTask, error) {
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		if err := rows.Scan(
			&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
