package session

import (
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/netprobe"
	"github.com/KoTeuKa404/pymusic/publisher"
	"github.com/KoTeuKa404/pymusic/recovery"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/KoTeuKa404/pymusic/streamcache"
)

const (
	DefaultDebounceWindow    = 250 * time.Millisecond
	DefaultRetryLimit        = 3
	DefaultRetryDelay        = time.Second
	DefaultPreviousThreshold = int64(5000)
	DefaultResolveTimeout    = 45 * time.Second
)

// Options is everything a Registry is configured with.
// Zero values fall back to the defaults above.
type Options struct {
	// DebounceWindow is the minimum gap between accepted play, pause and toggle requests.
	DebounceWindow time.Duration
	// RetryLimit bounds how many times a failing stream is resolved again.
	RetryLimit int
	// RetryDelay is waited before resolving again after a resolution failure.
	RetryDelay time.Duration
	// PreviousThreshold is the position, in milliseconds, past which Previous restarts the track.
	PreviousThreshold int64
	Repeat            bool
	Mode              resolver.Mode
	ResolveTimeout    time.Duration
	RefreshLead       time.Duration
	RefreshMinDelay   time.Duration
	Watchdog          recovery.WatchdogOptions

	Cache     *streamcache.Cache
	Clock     clock.Clock
	Probe     netprobe.Probe
	Focus     control.AudioFocus
	Publisher publisher.Publisher

	// OnFailure receives failures that stop playback: exhausted retries and denied focus.
	// It is called without any registry lock held.
	OnFailure func(err error)
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.RetryLimit <= 0 {
		o.RetryLimit = DefaultRetryLimit
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	} else if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.PreviousThreshold <= 0 {
		o.PreviousThreshold = DefaultPreviousThreshold
	}
	if o.Mode == "" {
		o.Mode = resolver.ModeAudio
	}
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = DefaultResolveTimeout
	}
	if o.RefreshLead <= 0 {
		o.RefreshLead = recovery.DefaultRefreshLead
	}
	if o.RefreshMinDelay <= 0 {
		o.RefreshMinDelay = recovery.DefaultRefreshMinDelay
	}
	if o.Watchdog == (recovery.WatchdogOptions{}) {
		o.Watchdog = recovery.DefaultWatchdogOptions()
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Cache == nil {
		o.Cache = streamcache.New(streamcache.DefaultCapacity, streamcache.DefaultSafetyMargin, o.Clock)
	}
	if o.Probe == nil {
		o.Probe = netprobe.Always(true)
	}
	if o.Focus == nil {
		o.Focus = control.AlwaysGranted{}
	}
	if o.Publisher == nil {
		o.Publisher = publisher.Nop{}
	}
	return o
}
