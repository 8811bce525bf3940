// Package session orchestrates playback: it owns the current session and the
// generation counter, resolves streams, drives the engine through a command
// queue, and composes the cache, playlist, watchdog, expiry scheduler,
// debouncer and focus arbiter.
//
// Every asynchronous re-entry (resolver result, engine callback, timer)
// carries the generation it was started under. Results for a superseded
// generation are dropped.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/internal/metrics"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/player"
	"github.com/KoTeuKa404/pymusic/playlist"
	"github.com/KoTeuKa404/pymusic/publisher"
	"github.com/KoTeuKa404/pymusic/recovery"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/KoTeuKa404/pymusic/streamcache"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

const playbackControl = "playback"

// Registry is the playback session controller.
// It implements control.PlaybackTarget and recovery.Target.
type Registry struct {
	opts      Options
	id        string
	clock     clock.Clock
	queue     *player.Queue
	resolver  resolver.Resolver
	cache     *streamcache.Cache
	debouncer *control.Debouncer
	focus     *control.FocusArbiter
	expiry    *recovery.ExpiryScheduler
	publisher publisher.Publisher

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu             sync.Mutex
	gen            uint64
	session        Session
	state          State
	playlist       *playlist.Playlist
	prepared       bool
	positionMs     int64
	durationMs     int64
	resumeAtMs     int64
	retries        int
	repeat         bool
	pausedForFocus bool
	watchdog       *recovery.Watchdog
	retryTimer     clock.Timer
	closed         bool
	notices        []func()
}

var (
	_ control.PlaybackTarget = (*Registry)(nil)
	_ recovery.Target        = (*Registry)(nil)
)

// New creates a registry that exclusively owns engine.
func New(engine player.Engine, res resolver.Resolver, opts Options) *Registry {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		opts:      opts,
		id:        uuid.NewString(),
		clock:     opts.Clock,
		queue:     player.NewQueue(engine),
		resolver:  resolver.Deduplicate(res),
		cache:     opts.Cache,
		debouncer: control.NewDebouncer(opts.Clock, opts.DebounceWindow),
		focus:     control.NewFocusArbiter(opts.Focus),
		expiry:    recovery.NewExpiryScheduler(opts.Clock, opts.RefreshLead, opts.RefreshMinDelay),
		publisher: opts.Publisher,
		ctx:       ctx,
		cancel:    cancel,
		playlist:  playlist.New(),
		repeat:    opts.Repeat,
	}
	r.session.ID = r.id
	return r
}

// ID identifies this registry in logs.
func (r *Registry) ID() string {
	return r.id
}

// unlock releases the registry lock, then runs queued notices.
func (r *Registry) unlock() {
	notices := r.notices
	r.notices = nil
	r.mu.Unlock()

	for _, notice := range notices {
		notice()
	}
}

func (r *Registry) log() *logrus.Entry {
	return log.WithFields(map[string]any{
		"session":    r.id,
		"generation": r.gen,
	})
}

// request describes the session a new generation starts.
type request struct {
	ref            string
	title          string
	channel        string
	thumbnail      string
	desiredPlaying bool
	userPaused     bool
	resumeAtMs     int64
}

// again describes a restart of the current reference that keeps the user's intent.
func (r *Registry) again(resumeAtMs int64) request {
	return request{
		ref:            r.session.Ref,
		title:          r.session.Title,
		channel:        r.session.Channel,
		thumbnail:      r.session.ThumbnailURL,
		desiredPlaying: r.session.DesiredPlaying,
		userPaused:     r.session.UserPaused,
		resumeAtMs:     resumeAtMs,
	}
}

// PlayVideo starts a new session for ref.
func (r *Registry) PlayVideo(ref, title, channel, thumbnail string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}

	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.retries = 0
	r.pausedForFocus = false
	r.startLocked(request{
		ref:            ref,
		title:          title,
		channel:        channel,
		thumbnail:      thumbnail,
		desiredPlaying: true,
	})
}

// PlayPlaylist replaces the playlist and plays the track at start.
func (r *Registry) PlayPlaylist(tracks []playlist.Track, start int) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.playlist.SetTracks(tracks, start, true)
	track, ok := r.playlist.Current().Get()
	if !ok {
		return
	}
	r.retries = 0
	r.pausedForFocus = false
	r.startLocked(trackRequest(track))
}

// AppendTracks adds tracks to the playlist. If nothing was playing, the
// current track starts.
func (r *Registry) AppendTracks(tracks []playlist.Track) {
	r.mu.Lock()
	defer r.unlock()

	if r.closed {
		return
	}
	r.playlist.SetTracks(tracks, 0, false)
	if r.session.Ref != "" {
		return
	}
	if track, ok := r.playlist.Current().Get(); ok {
		r.startLocked(trackRequest(track))
	}
}

func trackRequest(t playlist.Track) request {
	return request{
		ref:            t.Ref,
		title:          t.Title,
		channel:        t.Channel,
		desiredPlaying: true,
	}
}

// startLocked mints a generation and begins resolving req under it.
func (r *Registry) startLocked(req request) uint64 {
	r.haltLocked()
	r.gen++
	gen := r.gen
	metrics.GenerationsTotal.Inc()

	r.session = Session{
		ID:             r.id,
		Generation:     gen,
		Ref:            req.ref,
		Title:          req.title,
		Channel:        req.channel,
		ThumbnailURL:   req.thumbnail,
		DesiredPlaying: req.desiredPlaying,
		UserPaused:     req.userPaused,
	}
	r.state = Resolving
	r.resumeAtMs = req.resumeAtMs
	r.positionMs = req.resumeAtMs
	r.durationMs = 0

	// The previous handle is released before anything is loaded for gen.
	r.queue.Submit(gen, "release", func(e player.Engine) error { return e.Release() })
	r.notifyLocked()

	r.log().WithField("ref", req.ref).Info("session: resolving")

	if entry, ok := r.cache.Get(r.cacheKey(req.ref)).Get(); ok {
		metrics.CacheLookup(true)
		r.log().Debug("session: stream cache hit")
		r.applyLocked(gen, streamFromEntry(entry))
		return gen
	}
	metrics.CacheLookup(false)

	r.inflight.Add(1)
	go r.resolve(gen, req.ref)
	return gen
}

// haltLocked stops everything scoped to the current generation.
func (r *Registry) haltLocked() {
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
	r.expiry.Cancel()
	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
	r.prepared = false
}

func (r *Registry) resolve(gen uint64, ref string) {
	defer r.inflight.Done()

	ctx, cancel := context.WithTimeout(r.ctx, r.opts.ResolveTimeout)
	defer cancel()

	stream, err := r.resolver.Resolve(ctx, resolver.NormalizeRef(ref))
	metrics.Resolution(err)
	r.onResolved(gen, ref, stream, err)
}

func (r *Registry) onResolved(gen uint64, ref string, stream *resolver.Stream, err error) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "resolution") {
		return
	}
	if err == nil && (stream == nil || stream.URL == "") {
		err = resolver.ErrNoStream
	}
	if err != nil {
		var resErr *resolver.ResolutionError
		if !errors.As(err, &resErr) {
			err = &resolver.ResolutionError{Ref: ref, Err: err}
		}
		r.failLocked(gen, err, metrics.ReasonResolution)
		return
	}

	r.cache.Put(r.cacheKey(ref), entryFromStream(stream))
	r.applyLocked(gen, stream)
}

// applyLocked hands a resolved stream to the engine.
func (r *Registry) applyLocked(gen uint64, stream *resolver.Stream) {
	s := &r.session
	s.StreamURL = stream.URL
	s.Headers = lo.Assign(stream.Headers)
	s.ExpiresAt = stream.ExpiresAt
	if s.Title == "" {
		s.Title = stream.Title
	}
	if s.Channel == "" {
		s.Channel = stream.Channel
	}
	if s.ThumbnailURL == "" {
		s.ThumbnailURL = stream.ThumbnailURL
	}
	r.durationMs = stream.Duration.Milliseconds()
	r.state = Preparing

	url, headers, title := s.StreamURL, lo.Assign(s.Headers), s.Title
	startMs := r.resumeAtMs
	r.resumeAtMs = 0
	l := &listener{registry: r, gen: gen}
	r.queue.Submit(gen, "prepare", func(e player.Engine) error {
		if t, ok := e.(player.Titled); ok && title != "" {
			_ = t.SetTitle(title)
		}
		if err := e.Load(url, headers, startMs, l); err != nil {
			l.OnError(player.CodeIO)
			return err
		}
		if err := e.Prepare(); err != nil {
			l.OnError(player.CodeUnknown)
			return err
		}
		return nil
	})

	r.log().WithField("url_expires", s.ExpiresAt.IsPresent()).Debug("session: preparing")
	r.notifyLocked()
}

func (r *Registry) onPrepared(gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "prepared") {
		return
	}
	r.prepared = true

	if r.session.DesiredPlaying {
		r.beginPlaybackLocked()
	} else {
		r.state = Paused
		r.publishLocked()
	}

	r.watchdog = recovery.NewWatchdog(gen, r, r.opts.Probe, r.clock, r.opts.Watchdog)
	r.watchdog.Start()

	if at, ok := r.session.ExpiresAt.Get(); ok {
		delay := r.expiry.Schedule(gen, at, r.onExpiry)
		r.log().Debugf("session: stream refresh armed in %s", delay)
	}
}

// beginPlaybackLocked asks for focus and starts the engine.
func (r *Registry) beginPlaybackLocked() bool {
	if !r.focus.RequestFocus() {
		r.log().Warn("session: audio focus denied")
		r.session.DesiredPlaying = false
		if r.prepared {
			r.state = Paused
		}
		metrics.FailuresTotal.WithLabelValues("focus_denied").Inc()
		r.publishLocked()
		r.failureLocked(ErrFocusDenied)
		return false
	}

	r.queue.Submit(r.gen, "start", func(e player.Engine) error { return e.Start() })
	r.state = Playing
	r.publisher.SetActive(true)
	r.publishLocked()
	return true
}

// OnEngineCompletion handles the end of the track played under gen.
func (r *Registry) OnEngineCompletion(gen uint64) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "completion") {
		return
	}
	r.log().Info("session: track completed")
	r.haltLocked()
	r.state = Completed
	r.retries = 0

	switch {
	case r.repeat:
		req := r.again(0)
		req.desiredPlaying, req.userPaused = true, false
		r.startLocked(req)
	case r.playlist.Len() > 1:
		r.advanceLocked(1)
	default:
		r.session.DesiredPlaying = false
		if r.durationMs > 0 {
			r.positionMs = r.durationMs
		}
		r.publishLocked()
	}
}

// OnEngineError handles an engine failure reported under gen.
func (r *Registry) OnEngineError(gen uint64, code int) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "error") {
		return
	}
	r.failLocked(gen, &player.EngineError{Code: code}, metrics.ReasonEngineError)
}

// failLocked retries the current reference under a fresh generation, or
// stops the session once the retry limit is reached.
func (r *Registry) failLocked(gen uint64, err error, reason string) {
	r.haltLocked()
	r.state = Errored
	r.cache.Invalidate(r.cacheKey(r.session.Ref))

	if r.retries < r.opts.RetryLimit {
		r.retries++
		metrics.RecoveriesTotal.WithLabelValues(reason).Inc()
		r.log().WithError(err).Warnf("session: attempt failed, retry %d of %d", r.retries, r.opts.RetryLimit)

		req := r.again(r.positionMs)
		if reason == metrics.ReasonResolution && r.opts.RetryDelay > 0 {
			r.retryTimer = r.clock.AfterFunc(r.opts.RetryDelay, func() { r.retry(gen, req) })
			return
		}
		r.startLocked(req)
		return
	}

	r.log().WithError(err).Error("session: giving up")
	r.session.DesiredPlaying = false
	r.state = Idle
	r.queue.Submit(gen, "stop", func(e player.Engine) error { return e.Release() })
	metrics.FailuresTotal.WithLabelValues("retries_exhausted").Inc()
	r.publishLocked()
	r.publisher.SetActive(false)
	r.focus.AbandonFocus()
	r.failureLocked(fmt.Errorf("%w: %w", ErrRetriesExhausted, err))
}

func (r *Registry) retry(gen uint64, req request) {
	r.mu.Lock()
	defer r.unlock()

	if r.staleLocked(gen, "retry") {
		return
	}
	r.retryTimer = nil
	r.startLocked(req)
}

// staleLocked reports whether gen has been superseded.
func (r *Registry) staleLocked(gen uint64, what string) bool {
	if gen == r.gen && !r.closed {
		return false
	}
	metrics.StaleCallbacksTotal.Inc()
	r.log().Debugf("session: dropped %s for generation %d", what, gen)
	return true
}

func (r *Registry) failureLocked(err error) {
	if r.opts.OnFailure == nil {
		return
	}
	onFailure := r.opts.OnFailure
	r.notices = append(r.notices, func() { onFailure(err) })
}

func (r *Registry) publishLocked() {
	playing := r.state == Playing
	metrics.SetPlaying(playing)
	r.publisher.PushPlaybackState(playing, r.positionMs)
	r.notifyLocked()
}

func (r *Registry) notifyLocked() {
	s := r.session
	title := lo.Ternary(s.Title != "", s.Title, s.Ref)
	artwork := mo.EmptyableToOption(s.ThumbnailURL)
	r.publisher.UpdateNotification(title, s.Channel, s.DesiredPlaying, artwork)
}

func (r *Registry) cacheKey(ref string) string {
	return string(r.opts.Mode) + ":" + resolver.NormalizeRef(ref)
}

// Snapshot returns the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	snap := Snapshot{
		ID:             r.id,
		Generation:     r.gen,
		State:          r.state,
		Ref:            s.Ref,
		Title:          s.Title,
		Channel:        s.Channel,
		ThumbnailURL:   s.ThumbnailURL,
		Playing:        r.state == Playing,
		DesiredPlaying: s.DesiredPlaying,
		UserPaused:     s.UserPaused,
		PositionMs:     r.positionMs,
		DurationMs:     r.durationMs,
		Repeat:         r.repeat,
		Index:          r.playlist.Index(),
		Tracks:         r.playlist.Len(),
		Retries:        r.retries,
	}
	if at, ok := s.ExpiresAt.Get(); ok {
		snap.ExpiresAt = &at
	}
	return snap
}

// Session returns a copy of the current session.
func (r *Registry) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	s.Headers = lo.Assign(s.Headers)
	return s
}

// Tracks returns a copy of the playlist.
func (r *Registry) Tracks() []playlist.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playlist.Tracks()
}

// Close stops playback, waits for in-flight resolutions and stops the engine queue.
// The engine itself is left to its owner.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.haltLocked()
	r.gen++
	r.closed = true
	r.state = Idle
	r.queue.Submit(r.gen, "release", func(e player.Engine) error { return e.Release() })
	metrics.SetPlaying(false)
	r.publisher.SetActive(false)
	r.focus.AbandonFocus()
	r.mu.Unlock()

	r.cancel()
	r.inflight.Wait()
	r.queue.Close()
	r.log().Debug("session: closed")
}

func streamFromEntry(e streamcache.Entry) *resolver.Stream {
	return &resolver.Stream{
		URL:          e.URL,
		Headers:      e.Headers,
		ExpiresAt:    e.ExpiresAt,
		ThumbnailURL: e.ThumbnailURL,
		Title:        e.Title,
		Channel:      e.Channel,
	}
}

func entryFromStream(s *resolver.Stream) streamcache.Entry {
	return streamcache.Entry{
		URL:          s.URL,
		Headers:      s.Headers,
		ExpiresAt:    s.ExpiresAt,
		Title:        s.Title,
		Channel:      s.Channel,
		ThumbnailURL: s.ThumbnailURL,
	}
}

// listener binds engine notifications to the generation that loaded the source.
type listener struct {
	registry *Registry
	gen      uint64
}

func (l *listener) OnPrepared() { l.registry.onPrepared(l.gen) }

func (l *listener) OnCompletion() { l.registry.OnEngineCompletion(l.gen) }

func (l *listener) OnError(code int) { l.registry.OnEngineError(l.gen, code) }
