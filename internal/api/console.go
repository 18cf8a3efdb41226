package api

import (
	"errors"
	"net/http"

	"autoservice/internal/console"
	"autoservice/internal/database"
	"autoservice/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	token, expiresAt, session, err := s.auth.Login(body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("username", body.Username).Str("remote", clientIP(r)).Msg("failed admin login")
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.logger.Error().Err(err).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "auth_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC(),
		"session_id": session.ID,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, claims := sessionFromContext(r.Context())
	until := s.now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	s.auth.Revoke(session.ID, until)
	if err := s.deps.Sessions.Close(r.Context(), session.ID); err != nil && !errors.Is(err, console.ErrSessionNotFound) {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to close session")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"username":   session.Username,
		"session_id": session.ID,
	})
}

func (s *HTTPServer) handleConsole(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *HTTPServer) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filter models.StatusFilter `json:"filter"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	session, _ := sessionFromContext(r.Context())
	if err := session.SetFilter(r.Context(), body.Filter); err != nil {
		s.writeConsoleError(w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleRefresh always answers with the view; a failed reload shows up as
// last_error next to the previous snapshot.
func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	_ = session.Refresh(r.Context())
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.Approve(r.Context(), chi.URLParam(r, "id")))
}

func (s *HTTPServer) handleDecline(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.Decline(r.Context(), chi.URLParam(r, "id")))
}

func (s *HTTPServer) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.SetNotes(r.Context(), chi.URLParam(r, "id"), body.Notes))
}

func (s *HTTPServer) handleBeginNotes(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.BeginNotes(r.Context(), chi.URLParam(r, "id")))
}

func (s *HTTPServer) handleNotesDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.UpdateNotesDraft(r.Context(), body.Notes))
}

func (s *HTTPServer) handleSaveNotes(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	s.respondConsole(w, session, session.SaveNotes(r.Context()))
}

func (s *HTTPServer) handleCancelNotes(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	session.CancelNotes(r.Context())
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, session.Calendar(s.now()))
}

func (s *HTTPServer) handleCalendarNext(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	session.NextMonth(r.Context())
	writeJSON(w, http.StatusOK, session.Calendar(s.now()))
}

func (s *HTTPServer) handleCalendarPrev(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	session.PrevMonth(r.Context())
	writeJSON(w, http.StatusOK, session.Calendar(s.now()))
}

func (s *HTTPServer) respondConsole(w http.ResponseWriter, session *console.Session, err error) {
	if err != nil {
		s.writeConsoleError(w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// writeConsoleError maps expected domain errors to 4xx. Anything else is
// logged and answered with a generic error.
func (s *HTTPServer) writeConsoleError(w http.ResponseWriter, session *console.Session, err error) {
	switch {
	case errors.Is(err, database.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found")
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, database.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status")
	case errors.Is(err, console.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "invalid_filter")
	case errors.Is(err, console.ErrNotEditing):
		writeError(w, http.StatusConflict, "not_editing")
	default:
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("console action failed")
		writeError(w, http.StatusInternalServerError, "booking_error")
	}
}
