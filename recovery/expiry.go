package recovery

import (
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/log"
)

const (
	DefaultRefreshLead     = 60 * time.Second
	DefaultRefreshMinDelay = 5 * time.Second
)

// RefreshDelay computes max(minDelay, expiresAt - now - lead).
func RefreshDelay(expiresAt, now time.Time, lead, minDelay time.Duration) time.Duration {
	return max(minDelay, expiresAt.Sub(now)-lead)
}

// ExpiryScheduler arms one refresh timer at a time.
type ExpiryScheduler struct {
	clock    clock.Clock
	lead     time.Duration
	minDelay time.Duration

	mu    sync.Mutex
	timer clock.Timer
	seq   uint64
}

func NewExpiryScheduler(clk clock.Clock, lead, minDelay time.Duration) *ExpiryScheduler {
	if lead <= 0 {
		lead = DefaultRefreshLead
	}
	if minDelay <= 0 {
		minDelay = DefaultRefreshMinDelay
	}
	return &ExpiryScheduler{clock: clk, lead: lead, minDelay: minDelay}
}

// Schedule replaces any armed timer with one that calls fire(gen) ahead of expiresAt.
// It returns the chosen delay.
func (s *ExpiryScheduler) Schedule(gen uint64, expiresAt time.Time, fire func(gen uint64)) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.seq++
	seq := s.seq

	delay := RefreshDelay(expiresAt, s.clock.Now(), s.lead, s.minDelay)
	log.Debugf("expiry: generation %d refresh in %s", gen, delay)

	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		current := s.seq == seq
		if current {
			s.timer = nil
		}
		s.mu.Unlock()

		if current {
			fire(gen)
		}
	})
	return delay
}

// Cancel disarms the pending timer, if any.
func (s *ExpiryScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Armed reports whether a timer is pending.
func (s *ExpiryScheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *ExpiryScheduler) stopLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
