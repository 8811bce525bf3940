package control

import "sync"

// AudioFocus is the platform's exclusive audio output arbiter.
type AudioFocus interface {
	Request() bool
	Abandon()
}

// AlwaysGranted is used where the platform has no focus concept.
type AlwaysGranted struct{}

func (AlwaysGranted) Request() bool { return true }
func (AlwaysGranted) Abandon() {}

// FocusChange is a focus signal from the platform.
type FocusChange int

const (
	FocusGain FocusChange = iota
	FocusLossTransient
	FocusLoss
)

func (c FocusChange) String() string {
	switch c {
	case FocusGain:
		return "gain"
	case FocusLossTransient:
		return "loss_transient"
	case FocusLoss:
		return "loss"
	default:
		return "unknown"
	}
}

// FocusArbiter tracks whether focus is held so redundant requests are no-ops.
type FocusArbiter struct {
	mu    sync.Mutex
	focus AudioFocus
	held  bool
}

func NewFocusArbiter(focus AudioFocus) *FocusArbiter {
	if focus == nil {
		focus = AlwaysGranted{}
	}
	return &FocusArbiter{focus: focus}
}

// RequestFocus asks the platform for focus unless it is already held.
func (a *FocusArbiter) RequestFocus() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.held {
		return true
	}
	a.held = a.focus.Request()
	return a.held
}

// AbandonFocus gives focus back if it is held.
func (a *FocusArbiter) AbandonFocus() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.held {
		return
	}
	a.focus.Abandon()
	a.held = false
}

// Apply records a platform focus signal. Only a permanent loss clears the held state.
func (a *FocusArbiter) Apply(change FocusChange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch change {
	case FocusGain:
		a.held = true
	case FocusLoss:
		a.held = false
	}
}

func (a *FocusArbiter) Held() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.held
}
