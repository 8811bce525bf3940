// Package playlist implements an ordered, wrap-around track list.
//
// A Playlist is not safe for concurrent use; the session registry owns it
// and serializes every access.
package playlist

import (
	"strings"

	"github.com/KoTeuKa404/pymusic/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Track is one playlist entry.
type Track struct {
	Ref     string `json:"ref"`
	Title   string `json:"title,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// Playlist holds tracks and the index of the current one.
// Whenever the list is non-empty, 0 <= index < len(tracks).
type Playlist struct {
	tracks []Track
	index  int
}

func New() *Playlist {
	return &Playlist{}
}

// SetTracks replaces the list (clear) or appends to it.
// The start index is clamped into range. When appending to a non-empty
// list the current index is kept.
func (p *Playlist) SetTracks(tracks []Track, start int, clear bool) {
	tracks = lo.Filter(tracks, func(t Track, _ int) bool {
		return strings.TrimSpace(t.Ref) != ""
	})

	wasEmpty := len(p.tracks) == 0
	if clear {
		p.tracks = append([]Track(nil), tracks...)
	} else {
		p.tracks = append(p.tracks, tracks...)
	}

	if len(p.tracks) == 0 {
		p.index = 0
		return
	}
	if clear || wasEmpty {
		p.index = util.Clamp(start, 0, len(p.tracks)-1)
	}
}

// Advance moves by step (+1 or -1), wrapping modulo the list length, and
// returns the new current track. Lists with fewer than two tracks do not move.
func (p *Playlist) Advance(step int) mo.Option[Track] {
	n := len(p.tracks)
	if n == 0 {
		return mo.None[Track]()
	}
	if n > 1 {
		p.index = ((p.index+step)%n + n) % n
	}
	return mo.Some(p.tracks[p.index])
}

// Current returns the current track, if any.
func (p *Playlist) Current() mo.Option[Track] {
	if len(p.tracks) == 0 {
		return mo.None[Track]()
	}
	return mo.Some(p.tracks[p.index])
}

// Index returns the current index. It is 0 for an empty list.
func (p *Playlist) Index() int {
	return p.index
}

func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []Track {
	return append([]Track(nil), p.tracks...)
}

// Clear empties the playlist.
func (p *Playlist) Clear() {
	p.tracks = nil
	p.index = 0
}
