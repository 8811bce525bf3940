// Package recovery keeps a playing stream alive: the watchdog detects stalls
// and silent stops, and the expiry scheduler refreshes a stream before its
// URL dies.
//
// Both are scoped to one generation. They never mutate session state
// themselves; they call back into a Target that re-checks the generation.
package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/netprobe"
)

// Sample is one observation of the engine.
type Sample struct {
	PositionMs int64
	DurationMs int64
	Playing    bool
	UserPaused bool
	Prepared   bool
}

// Target is the session being supervised.
type Target interface {
	// Sample observes playback for gen. It reports false once gen is no longer current.
	Sample(gen uint64) (Sample, bool)
	// RefreshAndResume re-resolves the current reference and resumes playback.
	RefreshAndResume(gen uint64)
	// Resume re-requests playback start after a silent stop.
	Resume(gen uint64)
}

// WatchdogOptions configures a Watchdog.
type WatchdogOptions struct {
	Interval     time.Duration
	StallTimeout time.Duration
	EndGuardMs   int64
}

// DefaultWatchdogOptions returns the stock timings.
func DefaultWatchdogOptions() WatchdogOptions {
	return WatchdogOptions{
		Interval:     2 * time.Second,
		StallTimeout: 10 * time.Second,
		EndGuardMs:   1500,
	}
}

// Watchdog polls one generation's playback on a fixed interval.
type Watchdog struct {
	gen    uint64
	target Target
	probe  netprobe.Probe
	clock  clock.Clock
	opts   WatchdogOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      clock.Timer
	stopped    bool
	lastPos    int64
	stallStart time.Time
}

func NewWatchdog(gen uint64, target Target, probe netprobe.Probe, clk clock.Clock, opts WatchdogOptions) *Watchdog {
	defaults := DefaultWatchdogOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = defaults.StallTimeout
	}
	if opts.EndGuardMs <= 0 {
		opts.EndGuardMs = defaults.EndGuardMs
	}
	if probe == nil {
		probe = netprobe.Always(true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watchdog{
		gen:     gen,
		target:  target,
		probe:   probe,
		clock:   clk,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		lastPos: -1,
	}
}

// Generation returns the generation this watchdog supervises.
func (w *Watchdog) Generation() uint64 {
	return w.gen
}

// Start arms the first tick.
func (w *Watchdog) Start() {
	w.arm()
}

// Stop cancels any pending tick. It is safe to call more than once.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	w.cancel()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// StallStarted reports when the current stall began, if one is in progress.
func (w *Watchdog) StallStarted() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stallStart, !w.stallStart.IsZero()
}

func (w *Watchdog) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.timer = w.clock.AfterFunc(w.opts.Interval, w.tick)
}

type verdict int

const (
	verdictNone verdict = iota
	verdictRefresh
	verdictResume
)

func (w *Watchdog) tick() {
	if w.isStopped() {
		return
	}

	sample, ok := w.target.Sample(w.gen)
	if !ok {
		w.Stop()
		return
	}
	if !sample.Prepared {
		w.arm()
		return
	}

	online := w.probe.IsReachable(w.ctx)

	switch w.evaluate(sample, online) {
	case verdictRefresh:
		log.Infof("watchdog: generation %d stalled at %dms, refreshing", w.gen, sample.PositionMs)
		w.target.RefreshAndResume(w.gen)
	case verdictResume:
		log.Infof("watchdog: generation %d stopped silently at %dms, resuming", w.gen, sample.PositionMs)
		w.target.Resume(w.gen)
	}

	w.arm()
}

func (w *Watchdog) evaluate(s Sample, online bool) verdict {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()

	if !online {
		if w.stallStart.IsZero() {
			w.stallStart = now
		}
		log.Debugf("watchdog: generation %d offline", w.gen)
		return verdictNone
	}

	result := verdictNone
	if s.Playing {
		if s.PositionMs == w.lastPos {
			if w.stallStart.IsZero() {
				w.stallStart = now
			} else if now.Sub(w.stallStart) >= w.opts.StallTimeout && !s.UserPaused {
				w.stallStart = time.Time{}
				result = verdictRefresh
			}
		} else {
			w.stallStart = time.Time{}
		}
	} else {
		w.stallStart = time.Time{}
		if !s.UserPaused && s.PositionMs > 0 && s.PositionMs < s.DurationMs-w.opts.EndGuardMs {
			result = verdictResume
		}
	}

	w.lastPos = s.PositionMs
	return result
}

func (w *Watchdog) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}
