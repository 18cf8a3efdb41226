package repository

import (
	"context"
	"testing"
	"time"

	"autoservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepository(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.ConsoleState{SessionID: "abc", Username: "admin", Filter: models.FilterPending}
		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, state, got)

		// Stored value is a copy.
		got.Filter = models.FilterAll
		again, _ := repo.GetState(ctx, "abc")
		assert.Equal(t, models.FilterPending, again.Filter)
	})

	t.Run("ClearState", func(t *testing.T) {
		err := repo.ClearState(ctx, "abc")
		require.NoError(t, err)
		got, _ := repo.GetState(ctx, "abc")
		assert.Nil(t, got)
	})

	t.Run("StateExpires", func(t *testing.T) {
		now := time.Now()
		repo.now = func() time.Time { return now }
		defer func() { repo.now = time.Now }()

		require.NoError(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "old"}))
		now = now.Add(2 * time.Hour)

		got, err := repo.GetState(ctx, "old")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		now := time.Now()
		repo.now = func() time.Time { return now }
		defer func() { repo.now = time.Now }()

		key := "192.0.2.1"
		allowed, _ := repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.False(t, allowed)

		// Other keys have their own window.
		allowed, _ = repo.CheckRateLimit(ctx, "192.0.2.2", 2, time.Second)
		assert.True(t, allowed)

		now = now.Add(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, key, 2, time.Second)
		assert.True(t, allowed)
	})
}
