package player

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/where"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// keyMessage is the script-message name media keys are forwarded under.
const keyMessage = constant.App + "-key"

// mediaKeys binds mpv key names to the key names forwarded to the key handler.
var mediaKeys = map[string]string{
	"PLAYPAUSE": "media_play_pause",
	"PLAY":      "media_play",
	"PAUSE":     "media_pause",
	"STOP":      "media_stop",
	"NEXT":      "media_next",
	"PREV":      "media_previous",
	"SPACE":     "media_play_pause",
	"p":         "media_play_pause",
	">":         "media_next",
	"<":         "media_previous",
}

// MPV implements Engine on top of a single idle mpv process driven over JSON-IPC.
type MPV struct {
	binary     string
	video      bool
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	events     *EventListener
	mu         sync.Mutex // serializes socket writes

	state    sync.Mutex
	listener Listener
	source   string
	loaded   bool
	onKey    func(name string)
	closing  bool
}

// NewMPV creates an engine. Nothing is spawned until Open.
func NewMPV(binary string, video bool) *MPV {
	if binary == "" {
		binary = "mpv"
	}
	exited := make(chan struct{})
	close(exited)
	return &MPV{binary: binary, video: video, exited: exited}
}

// OnKey registers the handler for media keys pressed inside mpv.
func (m *MPV) OnKey(handler func(name string)) {
	m.state.Lock()
	defer m.state.Unlock()
	m.onKey = handler
}

// Open spawns mpv in idle mode and attaches the event listener.
func (m *MPV) Open(ctx context.Context) error {
	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(where.Temp(), fmt.Sprintf("mpv-%x.sock", randomBytes))
	}

	m.cmd = exec.CommandContext(ctx, m.binary, m.args()...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.exited = exited
	go func() {
		_ = m.cmd.Wait()
		close(exited)
		m.processExited()
	}()

	if err := m.waitForSocket(); err != nil {
		_ = killProcess(m.cmd)
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.events = NewEventListener(m.socketPath, m.handleEvent)
	if err := m.events.Start(); err != nil {
		_ = m.Close()
		return err
	}

	m.bindKeys()
	return nil
}

func (m *MPV) args() []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--keep-open=no",
		"--pause=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--title=%s", constant.App),
	}
	if m.video {
		args = append(args, "--force-window=yes")
	} else {
		args = append(args, "--no-video", "--force-window=no")
	}
	return args
}

// bindKeys routes media keys through script messages instead of mpv's own handling.
func (m *MPV) bindKeys() {
	for mpvKey, name := range mediaKeys {
		_, err := m.sendCommand([]any{"keybind", mpvKey, fmt.Sprintf("script-message %s %s", keyMessage, name)})
		if err != nil {
			log.Debugf("mpv: keybind %s: %v", mpvKey, err)
		}
	}
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) Load(rawURL string, headers map[string]string, startMs int64, l Listener) error {
	target, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if _, err := m.sendCommand([]any{"set_property", "http-header-fields", headerFields(headers)}); err != nil {
		return err
	}
	if err := m.set("pause", true); err != nil {
		return err
	}
	if err := m.set("start", startOption(startMs)); err != nil {
		return err
	}

	m.state.Lock()
	m.listener = l
	m.source = target
	m.loaded = false
	m.state.Unlock()
	return nil
}

func (m *MPV) Prepare() error {
	m.state.Lock()
	source := m.source
	m.state.Unlock()

	if source == "" {
		return ErrNotLoaded
	}
	_, err := m.sendCommand([]any{"loadfile", source, "replace"})
	return err
}

func (m *MPV) Start() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

func (m *MPV) SeekTo(ms int64) error {
	_, err := m.sendCommand([]any{"seek", float64(ms) / 1000, "absolute"})
	return err
}

func (m *MPV) Release() error {
	m.state.Lock()
	m.listener = nil
	m.source = ""
	m.loaded = false
	m.state.Unlock()

	if !m.IsRunning() {
		return nil
	}
	_, err := m.sendCommand([]any{"stop"})
	return err
}

func (m *MPV) Position() (int64, error) {
	if !m.isLoaded() {
		return 0, nil
	}
	pos, err := m.getFloatProperty("time-pos")
	if err != nil {
		return 0, err
	}
	return int64(pos * 1000), nil
}

func (m *MPV) Duration() (int64, error) {
	if !m.isLoaded() {
		return 0, nil
	}
	dur, err := m.getFloatProperty("duration")
	if err != nil {
		return 0, err
	}
	return int64(dur * 1000), nil
}

func (m *MPV) IsPlaying() (bool, error) {
	if !m.isLoaded() {
		return false, nil
	}
	data, err := m.sendCommand([]any{"get_property", "pause"})
	if err != nil {
		return false, err
	}
	paused, _ := data.(bool)
	return !paused, nil
}

// SetTitle shows title in mpv's window and OSD.
func (m *MPV) SetTitle(title string) error {
	return m.set("force-media-title", sanitizeTitle(title))
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	_, err := m.sendCommand([]any{"get_property", "pid"})
	return err == nil
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	m.state.Lock()
	m.closing = true
	m.listener = nil
	m.state.Unlock()

	if m.events != nil {
		m.events.Stop()
	}
	if m.socketPath == "" {
		return nil
	}

	_, _ = m.sendCommand([]any{"quit"})

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

func (m *MPV) isLoaded() bool {
	m.state.Lock()
	defer m.state.Unlock()
	return m.loaded
}

// startOption formats an offset for mpv's start property, which outlives a single file.
func startOption(ms int64) string {
	if ms <= 0 {
		return "none"
	}
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

func (m *MPV) set(property string, value any) error {
	_, err := m.sendCommand([]any{"set_property", property, value})
	return err
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand([]any{"get_property", name})
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

// processExited reports an unexpected mpv exit to the bound listener.
func (m *MPV) processExited() {
	m.state.Lock()
	l := m.listener
	closing := m.closing
	m.listener = nil
	m.loaded = false
	m.state.Unlock()

	if !closing && l != nil {
		log.Warn("mpv exited unexpectedly")
		l.OnError(CodeServerDied)
	}
}

// headerFields renders headers as mpv's http-header-fields list, sorted for stable output.
func headerFields(headers map[string]string) []string {
	keys := lo.Keys(headers)
	slices.Sort(keys)
	return lo.FilterMap(keys, func(k string, _ int) (string, bool) {
		v := headers[k]
		if k == "" || v == "" {
			return "", false
		}
		return fmt.Sprintf("%s: %s", k, strings.ReplaceAll(v, ",", "%2C")), true
	})
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// URLs must not look like flags.
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
