// Package timeouts holds the deadlines applied to every external call.
//
// Each store and identity-provider call runs under one of these so a hung
// backend surfaces as a failed (and retryable) operation rather than a stuck
// request. Values are set once at startup from config via Configure.
//
//   - Ping: health checks
//   - Store: single MongoDB reads and writes
//   - Scan: full-collection location scans
//   - Identity: identity provider calls (claims, tokens, identities)
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing     = 2 * time.Second
	DefaultStore    = 5 * time.Second
	DefaultScan     = 10 * time.Second
	DefaultIdentity = 5 * time.Second
)

var (
	mu       sync.RWMutex
	ping     = DefaultPing
	store    = DefaultStore
	scan     = DefaultScan
	identity = DefaultIdentity
)

func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

func Store() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return store
}

func Scan() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return scan
}

func Identity() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return identity
}

// Config holds timeout overrides. Zero values keep the current setting.
type Config struct {
	Ping     time.Duration
	Store    time.Duration
	Scan     time.Duration
	Identity time.Duration
}

// Configure applies the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Store > 0 {
		store = cfg.Store
	}
	if cfg.Scan > 0 {
		scan = cfg.Scan
	}
	if cfg.Identity > 0 {
		identity = cfg.Identity
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	store = DefaultStore
	scan = DefaultScan
	identity = DefaultIdentity
}

// Current returns the active settings.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Store: store, Scan: scan, Identity: identity}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was the reason the operation ended.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Identity(), s.log, "claims.set")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
