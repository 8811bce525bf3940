package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/KoTeuKa404/pymusic/log"
)

// Event is one asynchronous message from mpv.
type Event struct {
	Name      string   `json:"event"`
	Reason    string   `json:"reason"`
	FileError string   `json:"file_error"`
	Args      []string `json:"args"`
}

// EventCallback receives every event read from mpv.
type EventCallback func(Event)

// EventListener reads mpv's event stream over a persistent connection.
type EventListener struct {
	socketPath string
	conn       net.Conn
	callback   EventCallback
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool
}

func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
		stopCh:     make(chan struct{}),
	}
}

// Start opens the event connection and begins reading in the background.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	// mpv delivers client-message only to clients that enabled it.
	if _, err := roundTrip(conn, []any{"enable_event", "client-message"}); err != nil {
		conn.Close()
		return fmt.Errorf("enable client-message: %w", err)
	}

	el.conn = conn
	el.listening = true
	go el.readLoop(conn)

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop terminates the event listener.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	el.conn.Close()
	el.listening = false
}

func (el *EventListener) readLoop(conn net.Conn) {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		el.processEvent(scanner.Bytes())
	}

	select {
	case <-el.stopCh:
	default:
		if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Warnf("event listener read error: %v", err)
		}
	}
}

func (el *EventListener) processEvent(line []byte) {
	var event Event
	if err := json.Unmarshal(line, &event); err != nil || event.Name == "" {
		return
	}
	if el.callback != nil {
		el.callback(event)
	}
}

// handleEvent translates mpv events into Listener notifications.
func (m *MPV) handleEvent(ev Event) {
	switch ev.Name {
	case "file-loaded":
		m.state.Lock()
		m.loaded = true
		l := m.listener
		m.state.Unlock()
		if l != nil {
			l.OnPrepared()
		}

	case "end-file":
		m.state.Lock()
		l := m.listener
		if ev.Reason == "eof" || ev.Reason == "error" {
			m.loaded = false
		}
		m.state.Unlock()
		if l == nil {
			return
		}

		switch ev.Reason {
		case "eof":
			l.OnCompletion()
		case "error":
			log.Warnf("mpv: playback error: %s", ev.FileError)
			l.OnError(errorCode(ev.FileError))
		}

	case "client-message":
		if len(ev.Args) < 2 || ev.Args[0] != keyMessage {
			return
		}
		m.state.Lock()
		onKey := m.onKey
		m.state.Unlock()
		if onKey != nil {
			onKey(ev.Args[1])
		}
	}
}

// errorCode maps mpv's file_error text onto an engine error code.
func errorCode(fileError string) int {
	e := strings.ToLower(fileError)
	switch {
	case strings.Contains(e, "unrecognized file format"), strings.Contains(e, "no audio or video"):
		return CodeUnsupported
	case strings.Contains(e, "loading failed"), strings.Contains(e, "network"):
		return CodeIO
	case strings.Contains(e, "timeout"), strings.Contains(e, "timed out"):
		return CodeTimedOut
	case strings.Contains(e, "demuxer"), strings.Contains(e, "corrupt"):
		return CodeMalformed
	default:
		return CodeUnknown
	}
}
