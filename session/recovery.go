package session

import (
	"context"
	"errors"

	"github.com/KoTeuKa404/pymusic/internal/metrics"
	"github.com/KoTeuKa404/pymusic/player"
	"github.com/KoTeuKa404/pymusic/recovery"
	"github.com/KoTeuKa404/pymusic/resolver"
)

// Sample observes the engine for the watchdog supervising gen.
func (r *Registry) Sample(gen uint64) (recovery.Sample, bool) {
	r.mu.Lock()
	current := gen == r.gen && !r.closed
	prepared, userPaused := r.prepared, r.heldLocked()
	r.mu.Unlock()

	if !current {
		return recovery.Sample{}, false
	}
	if !prepared {
		return recovery.Sample{UserPaused: userPaused}, true
	}

	var s recovery.Sample
	err := r.queue.Call(gen, "sample", func(e player.Engine) error {
		var err error
		if s.PositionMs, err = e.Position(); err != nil {
			return err
		}
		if s.DurationMs, err = e.Duration(); err != nil {
			return err
		}
		s.Playing, err = e.IsPlaying()
		return err
	})
	if errors.Is(err, player.ErrStale) || errors.Is(err, player.ErrClosed) {
		return recovery.Sample{}, false
	}

	r.mu.Lock()
	defer r.unlock()

	if gen != r.gen || r.closed {
		return recovery.Sample{}, false
	}
	if err != nil {
		// Skip this tick.
		return recovery.Sample{UserPaused: r.heldLocked()}, true
	}
	s.Prepared = r.prepared
	s.UserPaused = r.heldLocked()
	r.positionMs = s.PositionMs
	if s.DurationMs > 0 {
		r.durationMs = s.DurationMs
	}
	r.publisher.PushPlaybackState(s.Playing, s.PositionMs)
	return s, true
}

// heldLocked reports whether playback is meant to be stopped: paused by
// the user, or not wanted at all.
func (r *Registry) heldLocked() bool {
	return r.session.UserPaused || !r.session.DesiredPlaying
}

// RefreshAndResume re-resolves a stalled stream and resumes where it stopped.
func (r *Registry) RefreshAndResume(gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "stall refresh") {
		return
	}
	metrics.RecoveriesTotal.WithLabelValues(metrics.ReasonStall).Inc()
	r.log().Info("session: refreshing stalled stream")
	r.cache.Invalidate(r.cacheKey(r.session.Ref))
	r.startLocked(r.again(r.positionMs))
}

// Resume restarts an engine that stopped without being asked to.
func (r *Registry) Resume(gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "resume") {
		return
	}
	if !r.prepared || r.heldLocked() {
		return
	}
	metrics.RecoveriesTotal.WithLabelValues(metrics.ReasonSilentStop).Inc()
	r.beginPlaybackLocked()
}

// onExpiry fetches a fresh URL while the current one keeps playing.
func (r *Registry) onExpiry(gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "expiry refresh") {
		return
	}
	metrics.RecoveriesTotal.WithLabelValues(metrics.ReasonExpiry).Inc()
	r.log().Info("session: stream url about to expire, refreshing")

	r.inflight.Add(1)
	go r.refreshExpiring(gen, r.session.Ref)
}

func (r *Registry) refreshExpiring(gen uint64, ref string) {
	defer r.inflight.Done()

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.ResolveTimeout)
	defer cancel()

	stream, err := r.resolver.Resolve(ctx, resolver.NormalizeRef(ref))
	metrics.Resolution(err)

	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "expiry refresh") {
		return
	}
	if err == nil && (stream == nil || stream.URL == "") {
		err = resolver.ErrNoStream
	}
	if err != nil {
		// The old URL may still have time left.
		delay := r.expiry.Schedule(gen, r.clock.Now(), r.onExpiry)
		r.log().WithError(err).Debugf("session: stream refresh failed, retrying in %s", delay)
		return
	}

	r.cache.Put(r.cacheKey(ref), entryFromStream(stream))
	r.startLocked(r.again(r.positionMs))
}
