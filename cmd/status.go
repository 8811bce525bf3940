package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/KoTeuKa404/pymusic/icon"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/KoTeuKa404/pymusic/util"
	"github.com/samber/mo"
)

// statusLine keeps a single, rewritten terminal line describing the session.
// It implements publisher.Publisher.
type statusLine struct {
	mu       sync.Mutex
	out      io.Writer
	title    string
	subtitle string
	playing  bool
	active   bool
	position int64
	repeat   bool
}

func newStatusLine(out io.Writer, repeat bool) *statusLine {
	return &statusLine{out: out, repeat: repeat}
}

// setRepeat redraws the line after a repeat toggle from the keyboard.
func (s *statusLine) setRepeat(repeat bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repeat = repeat
	s.renderLocked()
}

func (s *statusLine) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = active
	if !active {
		s.playing = false
	}
	s.renderLocked()
}

func (s *statusLine) PushPlaybackState(playing bool, positionMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = playing
	s.position = positionMs
	s.renderLocked()
}

func (s *statusLine) UpdateNotification(title, subtitle string, playing bool, _ mo.Option[string]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.title, s.subtitle, s.playing = title, subtitle, playing
	s.renderLocked()
}

// clear erases the line so the shell prompt starts clean.
func (s *statusLine) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprint(s.out, "\r\033[K")
}

func (s *statusLine) renderLocked() {
	_, _ = fmt.Fprint(s.out, "\r\033[K"+s.textLocked())
}

func (s *statusLine) textLocked() string {
	state := icon.Get(icon.Paused)
	switch {
	case !s.active:
		state = icon.Get(icon.Stopped)
	case s.playing:
		state = icon.Get(icon.Playing)
	}

	text := fmt.Sprintf("%s %s %s", state, style.Faint(util.FormatMs(s.position)), style.Bold(s.title))
	if s.subtitle != "" {
		text += " " + style.Faint(s.subtitle)
	}
	if s.repeat {
		text += " " + icon.Get(icon.Repeat)
	}
	return text
}
