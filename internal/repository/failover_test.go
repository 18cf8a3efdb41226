package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"autoservice/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetState(ctx context.Context, sessionID string) (*models.ConsoleState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsoleState), args.Error(1)
}

func (m *mockRepo) SetState(ctx context.Context, state *models.ConsoleState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *mockRepo) ClearState(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newRedisFailover wires a miniredis-backed primary with a memory fallback.
func newRedisFailover(t *testing.T) (*FailoverStateRepository, *miniredis.Miniredis, *MemoryStateRepository, *stepClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(NewRedisStateRepository(client, time.Hour), fallback, nil)
	clock := &stepClock{t: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)}
	repo.now = clock.now
	return repo, mr, fallback, clock
}

func TestFailover_RedisOutageAndRecovery(t *testing.T) {
	repo, mr, fallback, clock := newRedisFailover(t)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "s1", Filter: models.FilterPending}))
	assert.False(t, repo.Degraded())
	assert.True(t, mr.Exists("console_state:s1"), "state lands in redis")

	mr.SetError("ERR redis unavailable")

	require.NoError(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "s2", Filter: models.FilterApproved}))
	assert.True(t, repo.Degraded())

	got, err := fallback.GetState(ctx, "s2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.FilterApproved, got.Filter)

	// Redis is healthy again, but the probe waits for the recovery interval.
	mr.SetError("")
	clock.advance(recoveryInterval / 2)
	_, err = repo.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, repo.Degraded())

	clock.advance(recoveryInterval)
	got, err = repo.GetState(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.FilterPending, got.Filter)
	assert.False(t, repo.Degraded())
}

func TestFailover_ClearStateClearsFallbackCopy(t *testing.T) {
	repo, mr, fallback, clock := newRedisFailover(t)
	ctx := context.Background()

	mr.SetError("ERR down")
	require.NoError(t, repo.SetState(ctx, &models.ConsoleState{SessionID: "s1"}))
	mr.SetError("")
	clock.advance(recoveryInterval)

	require.NoError(t, repo.ClearState(ctx, "s1"))
	assert.False(t, repo.Degraded())

	got, err := fallback.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailover_RateLimitFallsBack(t *testing.T) {
	repo, mr, _, _ := newRedisFailover(t)
	ctx := context.Background()

	mr.SetError("ERR down")
	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "submit:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := repo.CheckRateLimit(ctx, "submit:10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fallback enforces the same limit")
}

func TestFailover_BothFail(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	repo := NewFailoverStateRepository(primary, fallback, nil)
	ctx := context.Background()

	primary.On("GetState", ctx, "s1").Return(nil, errors.New("redis down")).Once()
	fallback.On("GetState", ctx, "s1").Return(nil, errors.New("memory broken")).Once()

	_, err := repo.GetState(ctx, "s1")
	assert.EqualError(t, err, "memory broken")
	assert.True(t, repo.Degraded())

	// While degraded and inside the interval primary is not called at all.
	fallback.On("CheckRateLimit", ctx, "k", 1, time.Second).Return(true, nil).Once()
	allowed, err := repo.CheckRateLimit(ctx, "k", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}
