package control

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/log"
)

// Action is a playback control request.
type Action int

const (
	Play Action = iota
	Pause
	Toggle
	Next
	Previous
)

var actionNames = map[Action]string{
	Play:     "play",
	Pause:    "pause",
	Toggle:   "toggle",
	Next:     "next",
	Previous: "previous",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction parses an action name. "prev" is accepted for Previous.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "prev" {
		return Previous, nil
	}
	for action, name := range actionNames {
		if name == s {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Source identifies where a control signal came from.
type Source int

const (
	User Source = iota
	MediaButton
	Notification
	Remote
)

func (s Source) String() string {
	switch s {
	case User:
		return "user"
	case MediaButton:
		return "media_button"
	case Notification:
		return "notification"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// PlaybackTarget is what control signals are dispatched to.
type PlaybackTarget interface {
	Play()
	Pause()
	Toggle()
	Next()
	Previous()
}

// Key codes as reported by media key sources.
const (
	KeyVolumeUp       = 24
	KeyVolumeDown     = 25
	KeyHeadsetHook    = 79
	KeyMediaPlayPause = 85
	KeyMediaStop      = 86
	KeyMediaNext      = 87
	KeyMediaPrevious  = 88
	KeyMediaPlay      = 126
	KeyMediaPause     = 127
)

// KeyCodes maps key names onto codes for sources that only report names.
var KeyCodes = map[string]int{
	"volume_up":        KeyVolumeUp,
	"volume_down":      KeyVolumeDown,
	"headsethook":      KeyHeadsetHook,
	"playpause":        KeyMediaPlayPause,
	"media_play_pause": KeyMediaPlayPause,
	"media_stop":       KeyMediaStop,
	"media_next":       KeyMediaNext,
	"media_previous":   KeyMediaPrevious,
	"media_play":       KeyMediaPlay,
	"media_pause":      KeyMediaPause,
}

var keyActions = map[int]Action{
	KeyHeadsetHook:    Toggle,
	KeyMediaPlayPause: Toggle,
	KeyMediaPlay:      Toggle,
	KeyMediaPause:     Toggle,
	KeyMediaStop:      Pause,
	KeyMediaNext:      Next,
	KeyMediaPrevious:  Previous,
}

// KeyEvent is a raw key signal.
type KeyEvent struct {
	Code        int
	Name        string
	Down        bool
	RepeatCount int
}

// RouterOptions configures per-source debounce windows.
type RouterOptions struct {
	Windows       map[Source]time.Duration
	VolumeSwallow time.Duration
}

// DefaultRouterOptions returns the stock windows.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		Windows: map[Source]time.Duration{
			MediaButton:  300 * time.Millisecond,
			Notification: 300 * time.Millisecond,
			Remote:       800 * time.Millisecond,
		},
		VolumeSwallow: 800 * time.Millisecond,
	}
}

// Router debounces control signals per source and forwards them to a PlaybackTarget.
type Router struct {
	target    PlaybackTarget
	clock     clock.Clock
	debouncer *Debouncer
	swallow   time.Duration

	mu        sync.Mutex
	lastMedia time.Time
}

func NewRouter(target PlaybackTarget, clk clock.Clock, opts RouterOptions) *Router {
	if clk == nil {
		clk = clock.Real{}
	}
	d := NewDebouncer(clk, 0)
	for source, window := range opts.Windows {
		d.SetWindow(source.String(), window)
	}
	return &Router{
		target:    target,
		clock:     clk,
		debouncer: d,
		swallow:   opts.VolumeSwallow,
	}
}

// Dispatch forwards action to the target unless the source's window rejects it.
func (r *Router) Dispatch(source Source, action Action) bool {
	if !r.debouncer.Allow(source.String()) {
		log.Debugf("control: %s %s debounced", source, action)
		return false
	}

	log.Debugf("control: %s %s", source, action)
	switch action {
	case Play:
		r.target.Play()
	case Pause:
		r.target.Pause()
	case Toggle:
		r.target.Toggle()
	case Next:
		r.target.Next()
	case Previous:
		r.target.Previous()
	default:
		return false
	}
	return true
}

// HandleKey maps a key event onto an action. It reports whether the key was consumed.
// Volume keys shortly after a media key are consumed without effect.
func (r *Router) HandleKey(ev KeyEvent) bool {
	if !ev.Down || ev.RepeatCount > 0 {
		return false
	}

	code := ev.Code
	if code == 0 {
		code = KeyCodes[strings.ToLower(ev.Name)]
	}

	if action, ok := keyActions[code]; ok {
		r.markMedia()
		r.Dispatch(MediaButton, action)
		return true
	}

	if code == KeyVolumeUp || code == KeyVolumeDown {
		if r.sinceMedia() < r.swallow {
			log.Debugf("control: swallowed volume key %d", code)
			return true
		}
	}
	return false
}

var intentActions = map[string]Action{
	"PLAY":   Play,
	"PAUSE":  Pause,
	"TOGGLE": Toggle,
	"NEXT":   Next,
	"PREV":   Previous,
}

// IntentAction builds the notification intent name for action.
func IntentAction(action Action) string {
	for name, a := range intentActions {
		if a == action {
			return constant.IntentPrefix + "." + name
		}
	}
	return ""
}

// HandleIntent handles a notification action intent. It reports whether the intent was ours.
func (r *Router) HandleIntent(intent string) bool {
	name, ok := strings.CutPrefix(intent, constant.IntentPrefix+".")
	if !ok {
		return false
	}
	action, ok := intentActions[name]
	if !ok {
		return false
	}

	r.markMedia()
	r.Dispatch(Notification, action)
	return true
}

func (r *Router) markMedia() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMedia = r.clock.Now()
}

func (r *Router) sinceMedia() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastMedia.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return r.clock.Now().Sub(r.lastMedia)
}
