// Package input buffers operator input between polls.
package input

import (
	"math"
	"sync"

	"github.com/pixil98/go-possess/internal/world"
)

// Queue is an InputSource fed by console sessions. Axes hold until changed;
// key presses and jumps are delivered to exactly one poll.
type Queue struct {
	mu      sync.Mutex
	axisH   float64
	axisV   float64
	jump    bool
	pressed []world.Key
}

var _ world.InputSource = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{}
}

// SetAxes sets the analog stick, clamping each axis to [-1, 1]. NaN reads as 0.
func (q *Queue) SetAxes(h, v float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.axisH = clamp(h)
	q.axisV = clamp(v)
}

func (q *Queue) Jump() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jump = true
}

func (q *Queue) Press(k world.Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pressed = append(q.pressed, k)
}

func (q *Queue) Poll() world.InputFrame {
	q.mu.Lock()
	defer q.mu.Unlock()

	f := world.InputFrame{
		AxisH:   q.axisH,
		AxisV:   q.axisV,
		Jump:    q.jump,
		Pressed: q.pressed,
	}
	q.jump = false
	q.pressed = nil
	return f
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
