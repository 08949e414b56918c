package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLedgerAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("sixth request in window is denied", func(t *testing.T) {
		clock := newFakeClock()
		l := NewLedger(DefaultConfig(), WithClock(clock.Now))

		var got []bool
		for i := 0; i < 6; i++ {
			got = append(got, l.Allow(ctx, "ip1"))
			clock.Advance(time.Second)
		}
		assert.Equal(t, []bool{true, true, true, true, true, false}, got)

		clock.Advance(time.Hour)
		assert.True(t, l.Allow(ctx, "ip1"))
	})

	t.Run("denied request does not extend the window", func(t *testing.T) {
		clock := newFakeClock()
		l := NewLedger(Config{MaxRequests: 2, Window: time.Minute}, WithClock(clock.Now))

		assert.True(t, l.Allow(ctx, "ip1"))
		assert.True(t, l.Allow(ctx, "ip1"))
		clock.Advance(30 * time.Second)
		assert.False(t, l.Allow(ctx, "ip1"))
		assert.Len(t, l.entries["ip1"], 2)

		clock.Advance(30 * time.Second)
		assert.True(t, l.Allow(ctx, "ip1"))
	})

	t.Run("keys are isolated", func(t *testing.T) {
		clock := newFakeClock()
		l := NewLedger(DefaultConfig(), WithClock(clock.Now))

		for i := 0; i < DefaultMaxRequests; i++ {
			assert.True(t, l.Allow(ctx, "ip1"))
		}
		assert.False(t, l.Allow(ctx, "ip1"))
		assert.True(t, l.Allow(ctx, "ip2"))
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		l := NewLedger(Config{MaxRequests: 10, Window: time.Hour})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l.Allow(ctx, "shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, allowed)
	})
}

func TestLedgerSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l := NewLedger(DefaultConfig(), WithClock(clock.Now))

	for i := 0; i < DefaultMaxRequests; i++ {
		l.Allow(ctx, "ip1")
	}
	clock.Advance(30 * time.Minute)
	l.Allow(ctx, "ip2")

	clock.Advance(31 * time.Minute)
	l.Sweep()

	_, hasIP1 := l.entries["ip1"]
	assert.False(t, hasIP1, "expired key should be deleted")
	assert.Len(t, l.entries["ip2"], 1)

	for i := 0; i < DefaultMaxRequests; i++ {
		assert.True(t, l.Allow(ctx, "ip1"), "swept identifier behaves as fresh")
	}
}

func TestLedgerRunStopsOnCancel(t *testing.T) {
	l := NewLedger(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisStoreFallsBackWhenUnavailable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client, Config{MaxRequests: 2, Window: time.Minute}, nil)
	ctx := context.Background()

	assert.True(t, store.Allow(ctx, "ip1"))
	assert.True(t, store.Allow(ctx, "ip1"))
	assert.False(t, store.Allow(ctx, "ip1"))
	assert.Len(t, store.Fallback().entries["ip1"], 2)
}
