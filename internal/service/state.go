package service

import (
	"context"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

// StateService persists console UI state and counts public submissions.
type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

func (s *StateService) GetConsoleState(ctx context.Context, sessionID string) (*models.ConsoleState, error) {
	state, err := s.stateRepo.GetState(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get console state")
		return nil, err
	}

	return state, nil
}

func (s *StateService) SaveConsoleState(ctx context.Context, state *models.ConsoleState) error {
	state.UpdatedAt = time.Now().UTC()
	if err := s.stateRepo.SetState(ctx, state); err != nil {
		s.logger.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to save console state")
		return err
	}
	return nil
}

func (s *StateService) ClearConsoleState(ctx context.Context, sessionID string) error {
	return s.stateRepo.ClearState(ctx, sessionID)
}

// AllowSubmission counts one submission from client and reports whether it
// is within limit for the window.
func (s *StateService) AllowSubmission(ctx context.Context, client string, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, "submit:"+client, limit, window)
}
