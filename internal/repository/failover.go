package repository

import (
	"context"
	"sync/atomic"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository uses primary until it fails, then serves from
// fallback and probes primary again once per recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	now       func() time.Time
	down      atomic.Bool
	downSince atomic.Int64 // unix nanoseconds of the last failed primary call
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Degraded reports whether calls are currently served by the fallback.
func (r *FailoverStateRepository) Degraded() bool {
	return r.down.Load()
}

func (r *FailoverStateRepository) GetState(ctx context.Context, sessionID string) (*models.ConsoleState, error) {
	return withFailover(r,
		func() (*models.ConsoleState, error) { return r.primary.GetState(ctx, sessionID) },
		func() (*models.ConsoleState, error) { return r.fallback.GetState(ctx, sessionID) },
	)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.ConsoleState) error {
	_, err := withFailover(r,
		func() (struct{}, error) { return struct{}{}, r.primary.SetState(ctx, state) },
		func() (struct{}, error) { return struct{}{}, r.fallback.SetState(ctx, state) },
	)
	return err
}

// ClearState also clears the fallback after a primary success, since it may
// still hold a copy written while primary was down.
func (r *FailoverStateRepository) ClearState(ctx context.Context, sessionID string) error {
	servedByPrimary := false
	_, err := withFailover(r,
		func() (struct{}, error) {
			err := r.primary.ClearState(ctx, sessionID)
			servedByPrimary = err == nil
			return struct{}{}, err
		},
		func() (struct{}, error) { return struct{}{}, r.fallback.ClearState(ctx, sessionID) },
	)
	if err == nil && servedByPrimary {
		return r.fallback.ClearState(ctx, sessionID)
	}
	return err
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return withFailover(r,
		func() (bool, error) { return r.primary.CheckRateLimit(ctx, key, limit, window) },
		func() (bool, error) { return r.fallback.CheckRateLimit(ctx, key, limit, window) },
	)
}

func withFailover[T any](r *FailoverStateRepository, primary, fallback func() (T, error)) (T, error) {
	if r.shouldTryPrimary() {
		v, err := primary()
		if err == nil {
			if r.down.Swap(false) {
				r.logger.Info().Msg("primary state repository recovered")
			}
			return v, nil
		}
		if !r.down.Swap(true) {
			r.logger.Error().Err(err).Msg("primary state repository failed, serving from fallback")
		}
		r.downSince.Store(r.now().UnixNano())
	}
	return fallback()
}

func (r *FailoverStateRepository) shouldTryPrimary() bool {
	if !r.down.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.downSince.Load())) >= recoveryInterval
}
