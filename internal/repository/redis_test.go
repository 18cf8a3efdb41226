package repository

import (
	"context"
	"testing"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.ConsoleState{
			SessionID:     "sess-1",
			Username:      "admin",
			Filter:        models.FilterDeclined,
			EditingID:     "b-1",
			NotesDraft:    "draft",
			CalendarYear:  2024,
			CalendarMonth: 3,
		}

		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.Username, got.Username)
		assert.Equal(t, state.Filter, got.Filter)
		assert.Equal(t, state.NotesDraft, got.NotesDraft)
		assert.Equal(t, 3, got.CalendarMonth)

		assert.True(t, s.Exists("console_state:sess-1"))
		assert.Equal(t, time.Hour, s.TTL("console_state:sess-1"))
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptState", func(t *testing.T) {
		require.NoError(t, s.Set("console_state:bad", "{not json"))
		_, err := repo.GetState(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("ClearState", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "sess-2"}))

		err := repo.ClearState(ctx, "sess-2")
		require.NoError(t, err)

		got, _ := repo.GetState(ctx, "sess-2")
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "203.0.113.7"
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStateRepository(nil, time.Hour)
		_, err := repo.GetState(ctx, "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
		assert.Error(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "x"}))
		assert.Error(t, repo.ClearState(ctx, "x"))
		_, err = repo.CheckRateLimit(ctx, "x", 1, time.Second)
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(nil))
	})
}
