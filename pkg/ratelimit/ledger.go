package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Ledger is an in-memory sliding-window limiter keyed by client identifier.
// Timestamps outside the window are pruned lazily on Allow and eagerly by Sweep.
type Ledger struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger.
func NewLedger(cfg Config, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter.
func (l *Ledger) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.entries[key], now.Add(-l.cfg.Window))
	if len(recent) >= l.cfg.MaxRequests {
		return false
	}
	l.entries[key] = append(recent, now)
	return true
}

// Sweep drops expired timestamps for every key and deletes keys left empty.
func (l *Ledger) Sweep() {
	cutoff := l.now().Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.entries {
		recent := prune(stamps, cutoff)
		if len(recent) == 0 {
			delete(l.entries, key)
			continue
		}
		l.entries[key] = recent
	}
}

// Run sweeps on every tick of interval until ctx is done.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// prune returns the timestamps strictly after cutoff, reusing the backing array.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
