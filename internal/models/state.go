package models

import "time"

// ConsoleState is the per-session UI state of the admin console that
// survives a process restart.
type ConsoleState struct {
	SessionID     string       `json:"session_id"`
	Username      string       `json:"username"`
	Filter        StatusFilter `json:"filter"`
	EditingID     string       `json:"editing_id,omitempty"`
	NotesDraft    string       `json:"notes_draft,omitempty"`
	CalendarYear  int          `json:"calendar_year,omitempty"`
	CalendarMonth int          `json:"calendar_month,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
