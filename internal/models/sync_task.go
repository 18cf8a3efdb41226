package models

import "time"

// Sync queue task states. A task moves pending -> (retry ->)* completed|failed.
const (
	SyncPending   = "pending"
	SyncRetry     = "retry"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncTask is one queued change to mirror into the bookings spreadsheet.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   string     `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

// Due reports whether the task may run at now.
func (t SyncTask) Due(now time.Time) bool {
	if t.Status != SyncPending && t.Status != SyncRetry {
		return false
	}
	return t.NextRetryAt == nil || !t.NextRetryAt.After(now)
}
