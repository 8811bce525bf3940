// Package publisher pushes playback state to whatever presents it to the
// user: the log, websocket clients, the terminal.
package publisher

import (
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Publisher receives state changes. Implementations must not block.
type Publisher interface {
	SetActive(active bool)
	PushPlaybackState(playing bool, positionMs int64)
	UpdateNotification(title, subtitle string, playing bool, artwork mo.Option[string])
}

// Nop discards everything.
type Nop struct{}

func (Nop) SetActive(bool) {}

func (Nop) PushPlaybackState(bool, int64) {}

func (Nop) UpdateNotification(string, string, bool, mo.Option[string]) {}

// Multi fans out to several publishers in order.
type Multi []Publisher

// NewMulti builds a fan-out, skipping nil publishers.
func NewMulti(publishers ...Publisher) Multi {
	return lo.Filter(publishers, func(p Publisher, _ int) bool { return p != nil })
}

func (m Multi) SetActive(active bool) {
	for _, p := range m {
		p.SetActive(active)
	}
}

func (m Multi) PushPlaybackState(playing bool, positionMs int64) {
	for _, p := range m {
		p.PushPlaybackState(playing, positionMs)
	}
}

func (m Multi) UpdateNotification(title, subtitle string, playing bool, artwork mo.Option[string]) {
	for _, p := range m {
		p.UpdateNotification(title, subtitle, playing, artwork)
	}
}

// Log writes state changes to the application log.
type Log struct{}

func (Log) SetActive(active bool) {
	log.WithFields(map[string]any{"active": active}).Debug("publisher: session active")
}

func (Log) PushPlaybackState(playing bool, positionMs int64) {
	log.WithFields(map[string]any{"playing": playing, "position_ms": positionMs}).Debug("publisher: playback state")
}

func (Log) UpdateNotification(title, subtitle string, playing bool, artwork mo.Option[string]) {
	log.WithFields(map[string]any{
		"title":    title,
		"subtitle": subtitle,
		"playing":  playing,
		"artwork":  artwork.OrEmpty(),
	}).Info("publisher: now playing")
}
