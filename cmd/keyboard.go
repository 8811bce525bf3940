package cmd

import (
	"bufio"
	"context"
	"io"

	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/KoTeuKa404/pymusic/session"
)

const (
	keyCtrlC = 0x03
	keyCtrlD = 0x04
)

type keyboardSession interface {
	SetRepeat(repeat bool)
	Repeat() bool
	Snapshot() session.Snapshot
}

type keyboardDispatcher interface {
	Dispatch(source control.Source, action control.Action) bool
}

// keyboard turns single key presses from a raw terminal into playback commands.
type keyboard struct {
	session    keyboardSession
	dispatcher keyboardDispatcher
	status     *statusLine
	open       func(string) error
}

var keyboardActions = map[byte]control.Action{
	' ': control.Toggle,
	'p': control.Toggle,
	'n': control.Next,
	'b': control.Previous,
}

// handle applies one key press and reports whether it asked to quit.
func (k *keyboard) handle(b byte) bool {
	if action, ok := keyboardActions[b]; ok {
		k.dispatcher.Dispatch(control.User, action)
		return false
	}

	switch b {
	case 'r':
		repeat := !k.session.Repeat()
		k.session.SetRepeat(repeat)
		if k.status != nil {
			k.status.setRepeat(repeat)
		}
	case 'o':
		ref := k.session.Snapshot().Ref
		if ref == "" || k.open == nil {
			return false
		}
		if err := k.open(resolver.NormalizeRef(ref)); err != nil {
			log.Warnf("keyboard: open %s: %v", ref, err)
		}
	case 'q', keyCtrlC, keyCtrlD:
		return true
	}
	return false
}

// run reads key presses until ctx is done, the input ends or a quit key arrives.
// quit is called once in the last two cases.
func (k *keyboard) run(ctx context.Context, in io.Reader, quit func()) {
	reader := bufio.NewReader(in)
	for ctx.Err() == nil {
		b, err := reader.ReadByte()
		if err != nil {
			if err != io.EOF {
				log.Debugf("keyboard: %v", err)
			}
			quit()
			return
		}
		if k.handle(b) {
			quit()
			return
		}
	}
}
