// Package movement implements the Possessable contract with interchangeable
// movement strategies.
package movement

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/world"
)

// Strategy moves a transform toward the requested input. Strategies own no
// state; the per-object velocity lives in Motion.
type Strategy interface {
	Name() string
	Move(m *Motion, tr *world.Transform, in world.MovementInput, dt time.Duration)
}

// Motion is the smoothed velocity a strategy integrates.
type Motion struct {
	Velocity mgl64.Vec3
}

// Controllable routes movement input into a strategy while it is possessed.
type Controllable struct {
	transform *world.Transform
	strategy  Strategy

	controlled bool
	latched    world.MovementInput
	motion     Motion
}

var _ world.Possessable = (*Controllable)(nil)

func NewControllable(tr *world.Transform, s Strategy) *Controllable {
	return &Controllable{
		transform: tr,
		strategy:  s,
	}
}

// NewSelfControlled creates a Controllable that always accepts input, for the
// mask avatar driving itself.
func NewSelfControlled(tr *world.Transform, s Strategy) *Controllable {
	c := NewControllable(tr, s)
	c.controlled = true
	return c
}

func (c *Controllable) OnPossessed() {
	c.controlled = true
}

func (c *Controllable) OnUnpossessed() {
	c.controlled = false
	c.latched = world.MovementInput{}
	c.motion.Velocity = mgl64.Vec3{}
}

func (c *Controllable) Controlled() bool {
	return c.controlled
}

// ConsumeMovementInput latches in and advances the strategy by dt. Input is
// ignored while the object is not controlled.
func (c *Controllable) ConsumeMovementInput(in world.MovementInput, dt time.Duration) {
	if !c.controlled {
		return
	}
	c.latched = in
	c.strategy.Move(&c.motion, c.transform, in, dt)
}

// Latched returns the last input accepted.
func (c *Controllable) Latched() world.MovementInput {
	return c.latched
}

// Velocity returns the smoothed velocity.
func (c *Controllable) Velocity() mgl64.Vec3 {
	return c.motion.Velocity
}

// Strategy returns the movement strategy name.
func (c *Controllable) Strategy() string {
	return c.strategy.Name()
}
