// Package ratelimit holds the advisory fixed-window limiter for outbound AI
// analysis calls. It protects API quota, not data consistency.
package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow counts requests in a fixed window. One instance is constructed
// in main and passed by reference to whoever issues AI calls; tests build
// their own instead of sharing process state.
type FixedWindow struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{limit: limit, window: window}
}

// Allow records an attempt and reports whether it fits in the current window.
func (f *FixedWindow) Allow(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if now.Sub(f.windowStart) >= f.window {
		f.windowStart = now
		f.count = 0
	}
	if f.count >= f.limit {
		return false
	}
	f.count++
	return true
}

// Remaining reports how many calls are left in the current window.
func (f *FixedWindow) Remaining(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if now.Sub(f.windowStart) >= f.window {
		return f.limit
	}
	if f.count >= f.limit {
		return 0
	}
	return f.limit - f.count
}

// Reset clears the window, used when the limiter handle is stopped and
// restarted.
func (f *FixedWindow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowStart = time.Time{}
	f.count = 0
}
