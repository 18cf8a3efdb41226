package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"autoservice/internal/database"
	"autoservice/internal/models"
	"autoservice/internal/view"

	"github.com/rs/zerolog"
)

var ErrNotEditing = errors.New("no notes are being edited")

// StateStore persists per-session console UI state.
type StateStore interface {
	GetConsoleState(ctx context.Context, sessionID string) (*models.ConsoleState, error)
	SaveConsoleState(ctx context.Context, state *models.ConsoleState) error
	ClearConsoleState(ctx context.Context, sessionID string) error
}

// Session is one signed-in admin console: a Model plus the local UI state
// around it (notes editor, displayed month).
type Session struct {
	ID       string
	Username string
	Model    *Model

	editor *view.NotesEditor
	states StateStore
	logger *zerolog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	now    func() time.Time

	mu       sync.Mutex
	cursor   view.MonthCursor
	lastSeen time.Time
}

// Snapshot is what the console endpoints return.
type Snapshot struct {
	View
	Items     []view.ListItem `json:"items"`
	EditingID string          `json:"editing_id,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	v := s.Model.View()
	editingID, _ := s.editor.State()
	return Snapshot{
		View:      v,
		Items:     view.BuildList(v.Bookings, s.editor),
		EditingID: editingID,
	}
}

func (s *Session) SetFilter(ctx context.Context, filter models.StatusFilter) error {
	if err := s.Model.SetFilter(filter); err != nil {
		return err
	}
	s.persist(ctx)
	return nil
}

func (s *Session) Refresh(ctx context.Context) error {
	return s.Model.Reload(ctx)
}

func (s *Session) Approve(ctx context.Context, id string) error {
	return s.Model.Approve(ctx, id, s.Username)
}

func (s *Session) Decline(ctx context.Context, id string) error {
	return s.Model.Decline(ctx, id, s.Username)
}

// SetNotes writes notes directly, bypassing the editor.
func (s *Session) SetNotes(ctx context.Context, id, notes string) error {
	return s.Model.SetAdminNotes(ctx, id, notes, s.Username)
}

// BeginNotes opens the editor on a booking from the current snapshot.
func (s *Session) BeginNotes(ctx context.Context, id string) error {
	b, ok := s.Model.Find(id)
	if !ok {
		return database.ErrBookingNotFound
	}
	s.editor.Begin(id, b.AdminNotes)
	s.persist(ctx)
	return nil
}

func (s *Session) UpdateNotesDraft(ctx context.Context, draft string) error {
	if !s.editor.Update(draft) {
		return ErrNotEditing
	}
	s.persist(ctx)
	return nil
}

// SaveNotes sends the draft to the store. The editor is cleared either way.
func (s *Session) SaveNotes(ctx context.Context) error {
	id, notes, ok := s.editor.Save()
	if !ok {
		return ErrNotEditing
	}
	s.persist(ctx)
	return s.Model.SetAdminNotes(ctx, id, notes, s.Username)
}

func (s *Session) CancelNotes(ctx context.Context) {
	s.editor.Cancel()
	s.persist(ctx)
}

// Calendar projects the filtered snapshot onto the displayed month.
func (s *Session) Calendar(today time.Time) view.Calendar {
	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()
	return view.BuildCalendar(s.Model.View().Bookings, cursor, today)
}

func (s *Session) NextMonth(ctx context.Context) view.MonthCursor {
	return s.moveCursor(ctx, view.MonthCursor.Next)
}

func (s *Session) PrevMonth(ctx context.Context) view.MonthCursor {
	return s.moveCursor(ctx, view.MonthCursor.Prev)
}

func (s *Session) moveCursor(ctx context.Context, move func(view.MonthCursor) view.MonthCursor) view.MonthCursor {
	s.mu.Lock()
	s.cursor = move(s.cursor)
	cursor := s.cursor
	s.mu.Unlock()
	s.persist(ctx)
	return cursor
}

// Touch marks the session as in use so the idle sweep keeps it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// Done is closed once the session has been closed or swept and its model
// stopped following the change feed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) state() *models.ConsoleState {
	editingID, draft := s.editor.State()
	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()
	return &models.ConsoleState{
		SessionID:     s.ID,
		Username:      s.Username,
		Filter:        s.Model.Filter(),
		EditingID:     editingID,
		NotesDraft:    draft,
		CalendarYear:  cursor.Year,
		CalendarMonth: int(cursor.Month),
	}
}

// restore applies persisted UI state. States belonging to another user are
// ignored.
func (s *Session) restore(st *models.ConsoleState) {
	if st == nil || st.Username != s.Username {
		return
	}
	if st.Filter.Valid() {
		_ = s.Model.SetFilter(st.Filter)
	}
	if st.EditingID != "" {
		s.editor.Begin(st.EditingID, st.NotesDraft)
	}
	if st.CalendarYear > 0 && st.CalendarMonth >= 1 && st.CalendarMonth <= 12 {
		s.mu.Lock()
		s.cursor = view.MonthCursor{Year: st.CalendarYear, Month: time.Month(st.CalendarMonth)}
		s.mu.Unlock()
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.states == nil {
		return
	}
	if err := s.states.SaveConsoleState(ctx, s.state()); err != nil {
		s.logger.Warn().Err(err).Str("session_id", s.ID).Msg("failed to persist console state")
	}
}
