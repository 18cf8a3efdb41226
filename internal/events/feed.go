package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Feed carries "bookings changed" signals to every subscriber. Signals carry
// no delta; subscribers reload what they need.
type Feed interface {
	Publish(ctx context.Context) error
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription delivers coalesced change signals on C until Close is called.
// A subscriber that falls behind sees one pending signal, not a backlog.
type Subscription struct {
	C <-chan struct{}

	once    sync.Once
	closeFn func() error
	err     error
}

// Close cancels the registration. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.err = s.closeFn()
		}
	})
	return s.err
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// MemoryFeed fans signals out inside one process.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[int]chan struct{}
	nextID int
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan struct{})}
}

func (f *MemoryFeed) Publish(_ context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		notify(ch)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context) (*Subscription, error) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	return &Subscription{
		C: ch,
		closeFn: func() error {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
			return nil
		},
	}, nil
}

// Subscribers returns the number of open subscriptions.
func (f *MemoryFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// RedisFeed publishes signals on a Redis pub/sub channel so that several
// processes share one feed.
type RedisFeed struct {
	client  *redis.Client
	channel string
	logger  *zerolog.Logger
}

func NewRedisFeed(client *redis.Client, channel string, logger *zerolog.Logger) *RedisFeed {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisFeed{client: client, channel: channel, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context) error {
	if err := f.client.Publish(ctx, f.channel, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so no signal
// published afterwards is missed.
func (f *RedisFeed) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := f.client.Subscribe(ctx, f.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		for range msgs {
			notify(out)
		}
		f.logger.Debug().Str("channel", f.channel).Msg("change feed subscription closed")
	}()

	return &Subscription{C: out, closeFn: ps.Close}, nil
}
