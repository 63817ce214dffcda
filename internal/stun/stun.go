// Package stun suspends a controller's ability to act for a fixed time after
// it is forcibly ejected.
package stun

import (
	"sync"
	"time"

	"github.com/pixil98/go-possess/internal/schedule"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
)

// Timer tracks one recovery task per controller.
type Timer struct {
	mu     sync.Mutex
	sched  *schedule.Scheduler
	tokens map[storage.Identifier]schedule.Token
}

func NewTimer(sched *schedule.Scheduler) *Timer {
	return &Timer{
		sched:  sched,
		tokens: make(map[storage.Identifier]schedule.Token),
	}
}

// Start stuns the controller for d. While stunned the body falls under
// gravity and may tumble. A running stun is restarted rather than extended.
func (t *Timer) Start(c *world.Controller, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tok, ok := t.tokens[c.Id]; ok {
		t.sched.Cancel(tok)
	}

	c.Stunned = true
	c.StunnedUntil = t.sched.Now() + d
	c.ClearInput()
	if c.Body != nil {
		c.Body.SetGravityEnabled(true)
		c.Body.SetRotationFrozen(false)
	}

	t.tokens[c.Id] = t.sched.Schedule(d, func() {
		t.recover(c)
	})
}

func (t *Timer) recover(c *world.Controller) {
	t.mu.Lock()
	delete(t.tokens, c.Id)
	t.mu.Unlock()

	c.Stunned = false
	c.StunnedUntil = 0
	if c.Body != nil {
		c.Body.SetGravityEnabled(false)
		c.Body.SetRotationFrozen(true)
	}
}

// Cancel aborts a pending recovery without touching the controller. It
// returns false if no stun was running.
func (t *Timer) Cancel(c *world.Controller) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tok, ok := t.tokens[c.Id]
	if !ok {
		return false
	}
	delete(t.tokens, c.Id)
	return t.sched.Cancel(tok)
}

// Clear ends a running stun at once, restoring the controller as recovery
// would. It returns false if no stun was running.
func (t *Timer) Clear(c *world.Controller) bool {
	if !t.Cancel(c) {
		return false
	}
	t.recover(c)
	return true
}

// Running reports whether a recovery is pending for the controller.
func (t *Timer) Running(c *world.Controller) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.tokens[c.Id]
	return ok
}
