// Package ratelimit bounds how often a client may use the contact relay.
//
// Two stores implement the same sliding-window contract: Ledger keeps state in
// process memory, RedisStore shares it across instances.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMaxRequests   = 5
	DefaultWindow        = time.Hour
	DefaultSweepInterval = 5 * time.Minute

	// UnknownClient is the bucket used when no client address can be resolved.
	UnknownClient = "unknown"
)

// Limiter decides whether one more request from key fits in the current window.
// An allowed request is recorded; a denied one leaves state untouched.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Config holds the sliding-window parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultConfig returns the contact form limits: 5 requests per hour.
func DefaultConfig() Config {
	return Config{MaxRequests: DefaultMaxRequests, Window: DefaultWindow}
}

func (c Config) withDefaults() Config {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}
