// Package control turns external control signals (media keys, notification
// actions, remote requests) into playback actions, and arbitrates audio focus.
package control

import (
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"golang.org/x/time/rate"
)

// Debouncer rejects an invocation that arrives within a key's window of the
// previously accepted one. Rejected invocations do not extend the window.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	fallback time.Duration
	windows  map[string]time.Duration
	limiters map[string]*rate.Limiter
}

// NewDebouncer creates a debouncer whose keys use fallback unless SetWindow overrides them.
func NewDebouncer(clk clock.Clock, fallback time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Debouncer{
		clock:    clk,
		fallback: fallback,
		windows:  make(map[string]time.Duration),
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetWindow sets the window for key. A non-positive window disables debouncing for it.
func (d *Debouncer) SetWindow(key string, window time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows[key] = window
	delete(d.limiters, key)
}

// Allow reports whether an invocation under key is accepted now.
func (d *Debouncer) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	window, ok := d.windows[key]
	if !ok {
		window = d.fallback
	}
	if window <= 0 {
		return true
	}

	limiter, ok := d.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(window), 1)
		d.limiters[key] = limiter
	}
	return limiter.AllowN(d.clock.Now(), 1)
}
