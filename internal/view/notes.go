package view

import "sync"

// NotesEditor holds the notes draft of at most one booking. Nothing is
// persisted until Save hands the draft back to the caller.
type NotesEditor struct {
	mu        sync.Mutex
	editingID string
	draft     string
}

// Begin starts editing id with its current notes, discarding any other draft.
func (e *NotesEditor) Begin(id, current string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingID = id
	e.draft = current
}

// Update replaces the draft. It is a no-op when nothing is being edited.
func (e *NotesEditor) Update(draft string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editingID == "" {
		return false
	}
	e.draft = draft
	return true
}

// Save returns the edited id and draft and clears the editor.
func (e *NotesEditor) Save() (id, notes string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editingID == "" {
		return "", "", false
	}
	id, notes = e.editingID, e.draft
	e.editingID, e.draft = "", ""
	return id, notes, true
}

func (e *NotesEditor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingID, e.draft = "", ""
}

// State returns the edited id ("" when idle) and the current draft.
func (e *NotesEditor) State() (editingID, draft string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editingID, e.draft
}
