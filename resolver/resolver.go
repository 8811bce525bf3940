// Package resolver turns a video reference into a playable stream URL plus metadata.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNoStream is returned when a reference resolves but carries no playable format.
var ErrNoStream = errors.New("no playable stream")

// ResolutionError wraps any failure to resolve a reference.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Mode selects which kind of stream is picked from the available formats.
type Mode string

const (
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

// ParseMode maps a configuration value onto a Mode, defaulting to audio.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeVideo)) {
		return ModeVideo
	}
	return ModeAudio
}

// Stream is a resolved, directly playable stream.
type Stream struct {
	URL          string
	Headers      map[string]string
	ExpiresAt    mo.Option[time.Time]
	ThumbnailURL string
	Title        string
	Channel      string
	Duration     time.Duration
}

// Clone returns a copy whose headers can be mutated independently.
func (s *Stream) Clone() *Stream {
	c := *s
	if s.Headers != nil {
		c.Headers = lo.Assign(s.Headers)
	}
	return &c
}

// Resolver resolves video references.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*Stream, error)
}

// Func adapts a plain function to the Resolver interface.
type Func func(ctx context.Context, ref string) (*Stream, error)

func (f Func) Resolve(ctx context.Context, ref string) (*Stream, error) {
	return f(ctx, ref)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// NormalizeRef turns bare video IDs into watch URLs and leaves everything else untouched.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if videoIDPattern.MatchString(ref) {
		return constant.WatchURL + ref
	}
	return ref
}
