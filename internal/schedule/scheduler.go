// Package schedule runs delayed callbacks against a clock advanced by the
// owning peer's tick.
package schedule

import (
	"sync"
	"time"
)

// Token identifies a scheduled task so it can be cancelled.
type Token uint64

type task struct {
	token Token
	due   time.Duration
	fn    func()
}

// Scheduler holds pending tasks. Tasks only run from Advance, on the
// goroutine that drives the tick.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Duration
	last  Token
	tasks map[Token]*task
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make(map[Token]*task),
	}
}

// Now returns the simulated time elapsed since the scheduler was created.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule registers fn to run once delay has elapsed.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	s.last++
	s.tasks[s.last] = &task{token: s.last, due: s.now + delay, fn: fn}
	return s.last
}

// Cancel removes a pending task. It returns false if the task already ran or
// was never scheduled.
func (s *Scheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[tok]; !ok {
		return false
	}
	delete(s.tasks, tok)
	return true
}

// Pending reports whether the task is still waiting to run.
func (s *Scheduler) Pending(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[tok]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Advance moves the clock forward by dt and runs every task that became due,
// earliest first. Ties run in scheduling order. A task may schedule or cancel
// other tasks; cancelled tasks never run.
func (s *Scheduler) Advance(dt time.Duration) {
	s.mu.Lock()
	s.now += dt
	s.mu.Unlock()

	for {
		s.mu.Lock()
		t := s.popDueLocked()
		s.mu.Unlock()

		if t == nil {
			return
		}
		t.fn()
	}
}

func (s *Scheduler) popDueLocked() *task {
	var next *task
	for _, t := range s.tasks {
		if t.due > s.now {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.token < next.token) {
			next = t
		}
	}
	if next != nil {
		delete(s.tasks, next.token)
	}
	return next
}
