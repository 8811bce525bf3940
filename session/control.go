package session

import (
	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/internal/metrics"
	"github.com/KoTeuKa404/pymusic/player"
)

// acceptLocked applies the play/pause debounce window.
func (r *Registry) acceptLocked(what string) bool {
	if r.closed {
		return false
	}
	if !r.debouncer.Allow(playbackControl) {
		r.log().Debugf("session: %s debounced", what)
		return false
	}
	return true
}

// Toggle pauses a playing session and resumes a paused one.
func (r *Registry) Toggle() {
	r.mu.Lock()
	defer r.unlock()

	if !r.acceptLocked("toggle") {
		return
	}
	if r.session.DesiredPlaying {
		r.pauseLocked()
	} else {
		r.playLocked()
	}
}

// Play resumes playback, starting the last known reference again if nothing is loaded.
func (r *Registry) Play() {
	r.mu.Lock()
	defer r.unlock()

	if !r.acceptLocked("play") {
		return
	}
	if r.session.DesiredPlaying && r.activeLocked() {
		return
	}
	r.playLocked()
}

// Pause pauses playback on behalf of the user.
func (r *Registry) Pause() {
	r.mu.Lock()
	defer r.unlock()

	if !r.acceptLocked("pause") {
		return
	}
	r.pauseLocked()
}

func (r *Registry) activeLocked() bool {
	switch r.state {
	case Resolving, Preparing, Playing:
		return true
	default:
		return false
	}
}

func (r *Registry) playLocked() {
	if r.session.Ref == "" {
		return
	}
	r.pausedForFocus = false
	r.session.UserPaused = false
	r.session.DesiredPlaying = true

	switch {
	case r.prepared:
		r.beginPlaybackLocked()
	case r.state == Resolving || r.state == Preparing:
		// picked up once prepared
		r.notifyLocked()
	default:
		resumeAt := r.positionMs
		if r.state == Completed {
			resumeAt = 0
		}
		r.retries = 0
		r.startLocked(r.again(resumeAt))
	}
}

func (r *Registry) pauseLocked() {
	r.pausedForFocus = false
	r.session.DesiredPlaying = false
	r.session.UserPaused = true
	if r.prepared {
		r.queue.Submit(r.gen, "pause", func(e player.Engine) error { return e.Pause() })
		r.state = Paused
	}
	r.publishLocked()
}

// Next plays the following playlist track, wrapping at the end.
func (r *Registry) Next() {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.advanceLocked(1)
}

// Previous restarts the current track when it is past the previous
// threshold, otherwise plays the preceding playlist track.
func (r *Registry) Previous() {
	r.mu.Lock()
	if r.closed {
		r.unlock()
		return
	}
	gen, prepared := r.gen, r.prepared
	r.unlock()

	position := int64(-1)
	if prepared {
		err := r.queue.Call(gen, "position", func(e player.Engine) error {
			p, err := e.Position()
			position = p
			return err
		})
		if err != nil {
			position = -1
		}
	}

	r.mu.Lock()
	defer r.unlock()

	if r.gen != gen || r.closed {
		return
	}
	if position > r.opts.PreviousThreshold {
		r.log().Debugf("session: %dms in, restarting track", position)
		r.queue.Submit(gen, "seek", func(e player.Engine) error { return e.SeekTo(0) })
		r.positionMs = 0
		r.publishLocked()
		return
	}
	r.advanceLocked(-1)
}

func (r *Registry) advanceLocked(step int) bool {
	track, ok := r.playlist.Advance(step).Get()
	if !ok {
		return false
	}
	r.retries = 0
	r.pausedForFocus = false
	r.startLocked(trackRequest(track))
	return true
}

// Seek moves playback to ms. It is ignored unless the current generation has a prepared stream.
func (r *Registry) Seek(ms int64) bool {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || !r.prepared {
		return false
	}
	ms = max(0, ms)
	if r.durationMs > 0 {
		ms = min(ms, r.durationMs)
	}
	r.queue.Submit(r.gen, "seek", func(e player.Engine) error { return e.SeekTo(ms) })
	r.positionMs = ms
	r.publisher.PushPlaybackState(r.state == Playing, ms)
	return true
}

// SetRepeat sets whether a completed track starts again.
func (r *Registry) SetRepeat(repeat bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repeat = repeat
}

// Repeat reports whether a completed track starts again.
func (r *Registry) Repeat() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repeat
}

// Restart plays the current reference again from the start under a new generation.
func (r *Registry) Restart() {
	r.mu.Lock()
	defer r.unlock()

	if r.closed || r.session.Ref == "" {
		return
	}
	r.retries = 0
	r.pausedForFocus = false
	req := r.again(0)
	req.desiredPlaying, req.userPaused = true, false
	r.startLocked(req)
}

// Stop releases the engine and leaves the session idle. Play resumes it
// from the last known position.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.haltLocked()
	r.gen++
	metrics.GenerationsTotal.Inc()
	r.session.Generation = r.gen
	r.session.DesiredPlaying = false
	r.pausedForFocus = false
	r.state = Idle
	r.queue.Submit(r.gen, "stop", func(e player.Engine) error { return e.Release() })
	r.publishLocked()
	r.publisher.SetActive(false)
	r.focus.AbandonFocus()
	r.log().Info("session: stopped")
}

// OnFocusChange reacts to audio focus moving to or from this player.
func (r *Registry) OnFocusChange(change control.FocusChange) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.focus.Apply(change)
	r.log().Debugf("session: focus %s", change)

	switch change {
	case control.FocusLossTransient, control.FocusLoss:
		if !r.session.DesiredPlaying {
			return
		}
		r.session.DesiredPlaying = false
		r.session.UserPaused = true
		r.pausedForFocus = true
		if r.prepared {
			r.queue.Submit(r.gen, "pause", func(e player.Engine) error { return e.Pause() })
			r.state = Paused
		}
		r.publishLocked()
	case control.FocusGain:
		if !r.pausedForFocus {
			return
		}
		r.pausedForFocus = false
		r.session.UserPaused = false
		r.session.DesiredPlaying = true
		if r.prepared {
			r.beginPlaybackLocked()
		} else {
			r.notifyLocked()
		}
	}
}
