package session

import (
	"errors"
	"time"

	"github.com/samber/mo"
)

var (
	// ErrFocusDenied is reported when audio focus was refused and playback did not start.
	ErrFocusDenied = errors.New("audio focus denied")
	// ErrRetriesExhausted is reported once a stream kept failing past the retry limit.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// State is the lifecycle stage of the current session.
type State int

const (
	Idle State = iota
	Resolving
	Preparing
	Playing
	Paused
	Completed
	Errored
)

var stateNames = map[State]string{
	Idle:      "idle",
	Resolving: "resolving",
	Preparing: "preparing",
	Playing:   "playing",
	Paused:    "paused",
	Completed: "completed",
	Errored:   "errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the current logical playback attempt.
type Session struct {
	ID             string
	Generation     uint64
	Ref            string
	StreamURL      string
	Headers        map[string]string
	ExpiresAt      mo.Option[time.Time]
	Title          string
	Channel        string
	ThumbnailURL   string
	DesiredPlaying bool
	UserPaused     bool
}

// Snapshot is a read-only view of the registry.
type Snapshot struct {
	ID             string     `json:"id"`
	Generation     uint64     `json:"generation"`
	State          State      `json:"state"`
	Ref            string     `json:"ref"`
	Title          string     `json:"title"`
	Channel        string     `json:"channel"`
	ThumbnailURL   string     `json:"thumbnail_url,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Playing        bool       `json:"playing"`
	DesiredPlaying bool       `json:"desired_playing"`
	UserPaused     bool       `json:"user_paused"`
	PositionMs     int64      `json:"position_ms"`
	DurationMs     int64      `json:"duration_ms"`
	Repeat         bool       `json:"repeat"`
	Index          int        `json:"index"`
	Tracks         int        `json:"tracks"`
	Retries        int        `json:"retries"`
}
