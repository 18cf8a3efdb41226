package view

import "autoservice/internal/models"

const (
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorGray   = "gray"
)

const (
	ActionApprove = "approve"
	ActionDecline = "decline"
	ActionNotes   = "notes"
)

// StatusColor maps a booking status to its badge color.
func StatusColor(status string) string {
	switch status {
	case models.StatusPending:
		return ColorYellow
	case models.StatusApproved:
		return ColorGreen
	case models.StatusDeclined:
		return ColorRed
	default:
		return ColorGray
	}
}

// ListItem is one row of the admin booking list.
type ListItem struct {
	Key        string         `json:"key"`
	Booking    models.Booking `json:"booking"`
	Color      string         `json:"color"`
	Actions    []string       `json:"actions"`
	Editing    bool           `json:"editing"`
	NotesDraft string         `json:"notes_draft,omitempty"`
}

// BuildList projects bookings into list rows in their given order.
// editor may be nil.
func BuildList(bookings []models.Booking, editor *NotesEditor) []ListItem {
	editingID, draft := "", ""
	if editor != nil {
		editingID, draft = editor.State()
	}

	items := make([]ListItem, 0, len(bookings))
	for _, b := range bookings {
		item := ListItem{
			Key:     b.ID,
			Booking: b,
			Color:   StatusColor(b.Status),
			Actions: []string{ActionNotes},
		}
		if b.Status == models.StatusPending {
			item.Actions = []string{ActionApprove, ActionDecline, ActionNotes}
		}
		if editingID != "" && b.ID == editingID {
			item.Editing = true
			item.NotesDraft = draft
		}
		items = append(items, item)
	}
	return items
}
