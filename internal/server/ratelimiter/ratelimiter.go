// Package ratelimiter implements the per-client fixed-window request
// counter that guards the login and certificate endpoints.
//
// Each client key (the remote IP) owns a counter and the time its window
// opened. Once more than Interval has passed since the window opened the
// next request starts a fresh window; inside a window at most Limit
// requests are allowed. Windows are fixed, not sliding, so a client can
// fit up to 2×Limit requests around a window boundary.
//
// The table is an LRU bounded by capacity, and Sweep drops entries whose
// window expired long ago, so memory does not grow with every distinct
// address ever seen.
package ratelimiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultLimit    = 10
	DefaultInterval = 60 * time.Second
	DefaultCapacity = 10_000
)

type window struct {
	count int
	start time.Time
}

// RateLimiter is safe for concurrent use. Every call both reads and
// mutates state, so one exclusive mutex guards the table.
type RateLimiter struct {
	limit    int
	interval time.Duration

	mu      sync.Mutex
	windows *simplelru.LRU[string, *window]

	now func() time.Time
}

// New creates a limiter allowing limit requests per interval for each of up
// to capacity distinct keys. Non-positive arguments take the defaults.
func New(limit int, interval time.Duration, capacity int) (*RateLimiter, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	windows, err := simplelru.NewLRU[string, *window](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("rate limiter table: %w", err)
	}

	return &RateLimiter{
		limit:    limit,
		interval: interval,
		windows:  windows,
		now:      time.Now,
	}, nil
}

// ShouldAllow records one request for key and reports whether it may
// proceed.
func (r *RateLimiter) ShouldAllow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	w, ok := r.windows.Get(key)
	if !ok {
		w = &window{start: now}
		r.windows.Add(key, w)
	}

	switch {
	case now.Sub(w.start) > r.interval:
		w.count = 1
		w.start = now
		return true
	case w.count < r.limit:
		w.count++
		return true
	default:
		return false
	}
}

// Sweep removes entries whose window ended more than one interval ago and
// returns how many were dropped. Such entries would be reset on their next
// request anyway, so dropping them does not change any decision.
func (r *RateLimiter) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for _, key := range r.windows.Keys() {
		w, ok := r.windows.Peek(key)
		if ok && now.Sub(w.start) > 2*r.interval {
			r.windows.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows.Len()
}

// Interval returns the window length.
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
