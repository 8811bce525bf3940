// Package player drives the playback engine that renders resolved streams.
//
// The Engine interface mirrors a native media player: load a source, prepare
// it asynchronously, then start, pause, seek and release it. Completion and
// errors arrive on the Listener bound at Load time.
package player

import (
	"errors"
	"fmt"
)

// Listener receives asynchronous engine notifications for one loaded source.
type Listener interface {
	OnPrepared()
	OnCompletion()
	OnError(code int)
}

// Engine is a single-threaded, non-reentrant playback engine.
// Callers serialize access through a Queue.
type Engine interface {
	// Load resets the engine and sets the next source, to begin startMs into it.
	// Notifications for it go to l.
	Load(url string, headers map[string]string, startMs int64, l Listener) error
	// Prepare starts loading the source. Completion is reported through OnPrepared or OnError.
	Prepare() error
	Start() error
	Pause() error
	SeekTo(ms int64) error
	// Release drops the current source. No further notifications are delivered for it.
	Release() error
	Position() (int64, error)
	Duration() (int64, error)
	IsPlaying() (bool, error)
}

// Titled is implemented by engines that can display a media title.
type Titled interface {
	SetTitle(title string) error
}

// Error codes reported through Listener.OnError.
const (
	CodeUnknown     = 1
	CodeServerDied  = 100
	CodeIO          = -1004
	CodeMalformed   = -1007
	CodeUnsupported = -1010
	CodeTimedOut    = -110
)

// EngineError describes an engine failure.
type EngineError struct {
	Code   int
	Reason string
}

func (e *EngineError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("engine error %d", e.Code)
	}
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Reason)
}

// ErrNotLoaded is returned by commands that need a loaded source.
var ErrNotLoaded = errors.New("no source loaded")
