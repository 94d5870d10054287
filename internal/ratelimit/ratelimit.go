// Package ratelimit implements a sliding-window request limiter whose state
// is kept in the key-value store, one record per client identifier.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 60 * time.Second

	// UnknownClient is used when a request carries no client identifier.
	UnknownClient = "unknown"
)

// Decision is the outcome of a single check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetTime  time.Time
}

// Limiter caps accepted actions per client within a trailing window.
type Limiter struct {
	kv     database.KV
	limit  int
	window time.Duration
	now    func() time.Time

	mu sync.Mutex
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a Limiter allowing limit actions per window.
func New(kv database.KV, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{kv: kv, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(clientID string) string { return "rate_limit:" + clientID }

// Allow prunes timestamps older than the window for clientID, denies when
// the remaining count has reached the limit, and otherwise records now.
// A denied attempt is not recorded.
func (l *Limiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	if clientID == "" {
		clientID = UnknownClient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps, err := l.load(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}

	valid := stamps[:0]
	for _, ms := range stamps {
		if now.Sub(time.UnixMilli(ms)) < l.window {
			valid = append(valid, ms)
		}
	}

	if len(valid) >= l.limit {
		reset := time.UnixMilli(valid[0]).Add(l.window)
		metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: reset.Sub(now),
			ResetTime:  reset,
		}, nil
	}

	valid = append(valid, now.UnixMilli())
	if err := l.store(ctx, clientID, valid); err != nil {
		return Decision{}, err
	}

	metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(valid),
		ResetTime: time.UnixMilli(valid[0]).Add(l.window),
	}, nil
}

func (l *Limiter) load(ctx context.Context, clientID string) ([]int64, error) {
	data, err := l.kv.Get(ctx, key(clientID))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rate limit for %s: %w", clientID, err)
	}
	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("decode rate limit for %s: %w", clientID, err)
	}
	return stamps, nil
}

func (l *Limiter) store(ctx context.Context, clientID string, stamps []int64) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return fmt.Errorf("encode rate limit for %s: %w", clientID, err)
	}
	if err := l.kv.Put(ctx, key(clientID), data); err != nil {
		return fmt.Errorf("store rate limit for %s: %w", clientID, err)
	}
	return nil
}

// ClientIdentifier returns a function that extracts the rate-limit key from
// a request. With a non-empty header name it trusts that header, which a
// caller can forge; with an empty name it uses the connection address.
func ClientIdentifier(header string) func(*http.Request) string {
	if header == "" {
		return RemoteHost
	}
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
		return UnknownClient
	}
}

// RemoteHost returns the host part of r.RemoteAddr.
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return UnknownClient
		}
		return r.RemoteAddr
	}
	return host
}
