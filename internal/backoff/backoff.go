// Package backoff computes exponential delays with jitter for reconnect loops.
package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Config holds the backoff curve. Zero fields take the defaults.
type Config struct {
	// InitialInterval is the first delay (default 1s).
	InitialInterval time.Duration
	// MaxInterval caps every delay (default 30s).
	MaxInterval time.Duration
	// Multiplier grows the delay per attempt (default 2).
	Multiplier float64
	// JitterFactor spreads each delay by ±factor (default 0.1). Negative disables jitter.
	JitterFactor float64
}

// DefaultConfig is 1s, 2s, 4s ... capped at 30s with ±10% jitter.
func DefaultConfig() Config {
	return Config{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Backoff tracks the attempt count for one reconnect loop. Safe for concurrent use.
type Backoff struct {
	cfg     Config
	mu      sync.Mutex
	attempt int
	rnd     func() float64
}

func New(cfg Config) *Backoff {
	def := DefaultConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	switch {
	case cfg.JitterFactor == 0:
		cfg.JitterFactor = def.JitterFactor
	case cfg.JitterFactor < 0:
		cfg.JitterFactor = 0
	case cfg.JitterFactor > 1:
		cfg.JitterFactor = 1
	}
	return &Backoff{cfg: cfg, rnd: rand.Float64}
}

// Next returns the delay before the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	attempt := b.attempt
	b.attempt++
	b.mu.Unlock()
	return b.interval(attempt)
}

// Attempt returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}

// Reset restarts the curve after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}

func (b *Backoff) interval(attempt int) time.Duration {
	interval := float64(b.cfg.InitialInterval) * math.Pow(b.cfg.Multiplier, float64(attempt))
	if interval > float64(b.cfg.MaxInterval) {
		interval = float64(b.cfg.MaxInterval)
	}

	if b.cfg.JitterFactor > 0 {
		jitter := interval * b.cfg.JitterFactor
		interval += (b.rnd()*2 - 1) * jitter
	}

	if interval <= 0 {
		interval = float64(b.cfg.InitialInterval)
	}
	return time.Duration(interval)
}
