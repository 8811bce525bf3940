package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/player"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeEngine plays virtual time: while playing, the position follows the clock.
type fakeEngine struct {
	clock       clock.Clock
	autoPrepare bool
	durationMs  int64

	mu        sync.Mutex
	listeners []player.Listener
	loads     []string
	commands  []string
	seeks     []int64
	offsets   []int64
	loaded    bool
	playing   bool
	frozen    bool
	basePos   int64
	startedAt time.Time
}

func (f *fakeEngine) record(cmd string) {
	f.commands = append(f.commands, cmd)
}

func (f *fakeEngine) Load(url string, _ map[string]string, startMs int64, l player.Listener) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("load")
	f.loads = append(f.loads, url)
	f.offsets = append(f.offsets, startMs)
	f.listeners = append(f.listeners, l)
	f.loaded = true
	f.playing = false
	f.basePos = startMs
	return nil
}

func (f *fakeEngine) Prepare() error {
	f.mu.Lock()
	f.record("prepare")
	if !f.loaded {
		f.mu.Unlock()
		return player.ErrNotLoaded
	}
	l := f.listeners[len(f.listeners)-1]
	auto := f.autoPrepare
	f.mu.Unlock()

	if auto {
		l.OnPrepared()
	}
	return nil
}

func (f *fakeEngine) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start")
	if !f.playing {
		f.startedAt = f.clock.Now()
		f.playing = true
	}
	return nil
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	f.basePos = f.positionLocked()
	f.playing = false
	return nil
}

func (f *fakeEngine) SeekTo(ms int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek")
	f.seeks = append(f.seeks, ms)
	f.basePos = ms
	f.startedAt = f.clock.Now()
	return nil
}

func (f *fakeEngine) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("release")
	f.loaded = false
	f.playing = false
	f.basePos = 0
	return nil
}

func (f *fakeEngine) Position() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return 0, player.ErrNotLoaded
	}
	return f.positionLocked(), nil
}

func (f *fakeEngine) positionLocked() int64 {
	if !f.playing || f.frozen {
		return f.basePos
	}
	return f.basePos + f.clock.Now().Sub(f.startedAt).Milliseconds()
}

func (f *fakeEngine) Duration() (int64, error) {
	return f.durationMs, nil
}

func (f *fakeEngine) IsPlaying() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing, nil
}

// freeze stops the position from advancing while the engine still reports playing.
func (f *fakeEngine) freeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basePos = f.positionLocked()
	f.frozen = true
}

// halt stops playback without anyone asking for it.
func (f *fakeEngine) halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basePos = f.positionLocked()
	f.playing = false
}

func (f *fakeEngine) listener() player.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listeners) == 0 {
		return nil
	}
	return f.listeners[len(f.listeners)-1]
}

func (f *fakeEngine) complete() {
	f.listener().OnCompletion()
}

func (f *fakeEngine) fail(code int) {
	f.listener().OnError(code)
}

func (f *fakeEngine) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Count(f.commands, cmd)
}

func (f *fakeEngine) loadedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func (f *fakeEngine) startOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.offsets...)
}

// commandLog returns the engine commands in the order they ran.
func (f *fakeEngine) commandLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeEngine) seekLog() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.seeks...)
}

// fakeResolver hands out numbered streams per reference.
type fakeResolver struct {
	clock  clock.Clock
	expiry time.Duration

	mu    sync.Mutex
	calls map[string]int
	gates map[string]chan struct{}
	fail  map[string]error
}

func newFakeResolver(clk clock.Clock) *fakeResolver {
	return &fakeResolver{
		clock: clk,
		calls: make(map[string]int),
		gates: make(map[string]chan struct{}),
		fail:  make(map[string]error),
	}
}

func (f *fakeResolver) Resolve(ctx context.Context, ref string) (*resolver.Stream, error) {
	f.mu.Lock()
	f.calls[ref]++
	n := f.calls[ref]
	gate := f.gates[ref]
	err := f.fail[ref]
	expiry := f.expiry
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	stream := &resolver.Stream{
		URL:     streamURL(ref, n),
		Headers: map[string]string{"User-Agent": "test"},
		Title:   "Title " + ref,
		Channel: "Channel " + ref,
	}
	if expiry > 0 {
		stream.ExpiresAt = mo.Some(f.clock.Now().Add(expiry))
	}
	return stream, nil
}

func (f *fakeResolver) gate(ref string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[ref] = ch
	return ch
}

func (f *fakeResolver) failWith(ref string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[ref] = err
}

func (f *fakeResolver) count(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

func streamURL(ref string, n int) string {
	return fmt.Sprintf("https://media.example/%s/%d", ref, n)
}

type fakeFocus struct {
	mu       sync.Mutex
	deny     bool
	requests int
	abandons int
}

func (f *fakeFocus) Request() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return !f.deny
}

func (f *fakeFocus) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandons++
}

type harness struct {
	clock    *clock.Manual
	engine   *fakeEngine
	resolver *fakeResolver
	focus    *fakeFocus
	registry *Registry

	mu       sync.Mutex
	failures []error
}

func newHarness(configure func(*Options)) *harness {
	clk := clock.NewManual(epoch)
	h := &harness{
		clock:    clk,
		engine:   &fakeEngine{clock: clk, autoPrepare: true, durationMs: 200_000},
		resolver: newFakeResolver(clk),
		focus:    &fakeFocus{},
	}

	opts := Options{
		Clock: clk,
		Focus: h.focus,
		OnFailure: func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.failures = append(h.failures, err)
		},
	}
	if configure != nil {
		configure(&opts)
	}
	h.registry = New(h.engine, h.resolver, opts)
	return h
}

// settle waits for in-flight resolutions and the engine commands they queue.
func (h *harness) settle() {
	for i := 0; i < 3; i++ {
		h.registry.inflight.Wait()
		h.registry.queue.Flush()
	}
}

func (h *harness) failureLog() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.failures...)
}

func (h *harness) close() {
	h.registry.Close()
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
