package player

import (
	"errors"
	"sync"

	"github.com/KoTeuKa404/pymusic/log"
)

var (
	// ErrStale is returned by Call when the command was dropped for belonging to a superseded generation.
	ErrStale = errors.New("stale generation")
	// ErrClosed is returned once the queue no longer accepts commands.
	ErrClosed = errors.New("command queue closed")
)

type command struct {
	gen  uint64
	name string
	fn   func(Engine) error
	done chan error
}

// Queue executes engine commands one at a time, in submission order, on a
// single worker goroutine.
//
// A command tagged with a generation lower than the highest generation
// already issued is dropped. Generation 0 commands are never dropped.
type Queue struct {
	engine Engine

	mu      sync.Mutex
	pending []command
	closed  bool
	issued  uint64
	wake    chan struct{}
	stopped chan struct{}
}

func NewQueue(engine Engine) *Queue {
	q := &Queue{
		engine:  engine,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit enqueues fn without waiting for it.
func (q *Queue) Submit(gen uint64, name string, fn func(Engine) error) {
	q.enqueue(command{gen: gen, name: name, fn: fn})
}

// Call enqueues fn and waits for its result.
func (q *Queue) Call(gen uint64, name string, fn func(Engine) error) error {
	done := make(chan error, 1)
	if !q.enqueue(command{gen: gen, name: name, fn: fn, done: done}) {
		return ErrClosed
	}
	return <-done
}

// Flush waits until every command submitted before it has run.
func (q *Queue) Flush() {
	_ = q.Call(0, "flush", func(Engine) error { return nil })
}

// Issued returns the highest generation a command has been issued for.
func (q *Queue) Issued() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.issued
}

// Close runs what is already queued, then stops the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
	<-q.stopped
}

func (q *Queue) enqueue(c command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if c.done != nil {
			c.done <- ErrClosed
		}
		return false
	}
	q.pending = append(q.pending, c)
	q.mu.Unlock()

	q.signal()
	return true
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.stopped)

	for {
		c, ok, closed := q.next()
		if !ok {
			if closed {
				return
			}
			<-q.wake
			continue
		}
		q.execute(c)
	}
}

func (q *Queue) next() (command, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return command{}, false, q.closed
	}
	c := q.pending[0]
	q.pending[0] = command{}
	q.pending = q.pending[1:]
	return c, true, false
}

func (q *Queue) execute(c command) {
	q.mu.Lock()
	stale := c.gen != 0 && c.gen < q.issued
	if !stale && c.gen > q.issued {
		q.issued = c.gen
	}
	q.mu.Unlock()

	if stale {
		log.Debugf("engine: dropped %s for stale generation %d", c.name, c.gen)
		if c.done != nil {
			c.done <- ErrStale
		}
		return
	}

	err := c.fn(q.engine)
	if err != nil {
		log.WithFields(map[string]any{"generation": c.gen, "command": c.name}).
			Warnf("engine command failed: %v", err)
	}
	if c.done != nil {
		c.done <- err
	}
}
