package lazyload

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Gate opens once, after the delay of its priority plus an extra delay has
// elapsed on its clock. A disabled gate never opens.
//
// Changing the parameters restarts the wait but never closes a gate that
// already opened. Only a new Gate starts closed again.
type Gate struct {
	clock  clockwork.Clock
	onOpen func()
	done   chan struct{}

	mu         sync.Mutex
	enabled    bool
	priority   Priority
	extraDelay time.Duration
	timer      clockwork.Timer
	// generation invalidates callbacks of timers that were replaced or
	// stopped too late.
	generation uint64
	opened     bool
	closed     bool
}

// NewGate creates a gate and, if enabled, starts its timer. onOpen may be nil;
// it is called at most once, outside any lock, when the gate opens and is
// skipped if the gate was closed in the meantime.
func NewGate(clock clockwork.Clock, enabled bool, priority Priority, extraDelay time.Duration, onOpen func()) *Gate {
	g := &Gate{
		clock:      clock,
		onOpen:     onOpen,
		done:       make(chan struct{}),
		enabled:    enabled,
		priority:   priority,
		extraDelay: max(extraDelay, 0),
	}
	g.reschedule()
	return g
}

// Delay is the total wait with the current parameters.
func (g *Gate) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delayLocked()
}

func (g *Gate) delayLocked() time.Duration {
	return g.priority.Delay() + g.extraDelay
}

// Opened reports whether the gate has opened.
func (g *Gate) Opened() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// Done is closed when the gate opens.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Update cancels the pending timer and schedules a new one for the given
// parameters. Calling it with the current parameters does nothing.
func (g *Gate) Update(enabled bool, priority Priority, extraDelay time.Duration) {
	extraDelay = max(extraDelay, 0)

	g.mu.Lock()
	if g.closed || (g.enabled == enabled && g.priority == priority && g.extraDelay == extraDelay) {
		g.mu.Unlock()
		return
	}
	g.enabled = enabled
	g.priority = priority
	g.extraDelay = extraDelay
	g.mu.Unlock()

	g.reschedule()
}

// Close cancels the pending timer. A gate that has not opened when Close
// returns never opens, and onOpen is not called after that point. Close does
// not wait for an onOpen call already in progress.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.reschedule()
}

func (g *Gate) reschedule() {
	g.mu.Lock()
	g.generation++
	gen := g.generation
	prev := g.timer
	g.timer = nil
	arm := g.enabled && !g.closed
	delay := g.delayLocked()
	g.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	if !arm {
		return
	}

	// The clock may run the callback before AfterFunc returns.
	t := g.clock.AfterFunc(delay, func() { g.fire(gen) })

	g.mu.Lock()
	if gen == g.generation && !g.closed {
		g.timer = t
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	t.Stop()
}

func (g *Gate) fire(gen uint64) {
	if g.open(gen) {
		g.runOnOpen()
	}
}

// open marks the gate open and reports whether it was the first time.
func (g *Gate) open(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation || g.closed {
		return false
	}
	g.timer = nil
	if g.opened {
		return false
	}
	g.opened = true
	close(g.done)
	return true
}

func (g *Gate) runOnOpen() {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()

	if closed || g.onOpen == nil {
		return
	}
	g.onOpen()
}
