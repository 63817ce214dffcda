// Package physics provides a small rigid body integrator for headless peers.
package physics

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/world"
)

// DefaultGravity is applied to bodies with gravity enabled.
var DefaultGravity = mgl64.Vec3{0, -9.81, 0}

const groundEpsilon = 1e-6

// SimBody is a point-mass body that moves its transform. The ground is the
// plane y=0.
type SimBody struct {
	transform *world.Transform
	mass      float64

	velocity  mgl64.Vec3
	kinematic bool
	gravity   bool
	frozen    bool
}

var _ world.Body = (*SimBody)(nil)

// NewSimBody creates a dynamic body with gravity. Non-positive mass is treated as 1.
func NewSimBody(tr *world.Transform, mass float64) *SimBody {
	if mass <= 0 {
		mass = 1
	}
	return &SimBody{
		transform: tr,
		mass:      mass,
		gravity:   true,
	}
}

func (b *SimBody) SetKinematic(k bool) {
	b.kinematic = k
	if k {
		b.velocity = mgl64.Vec3{}
	}
}

func (b *SimBody) SetVelocity(v mgl64.Vec3) { b.velocity = v }
func (b *SimBody) SetGravityEnabled(g bool) { b.gravity = g }
func (b *SimBody) SetRotationFrozen(f bool) { b.frozen = f }

// ApplyImpulse changes velocity by j/mass. Kinematic bodies ignore impulses.
func (b *SimBody) ApplyImpulse(j mgl64.Vec3) {
	if b.kinematic {
		return
	}
	b.velocity = b.velocity.Add(j.Mul(1 / b.mass))
}

func (b *SimBody) Kinematic() bool      { return b.kinematic }
func (b *SimBody) Velocity() mgl64.Vec3 { return b.velocity }
func (b *SimBody) GravityEnabled() bool { return b.gravity }
func (b *SimBody) RotationFrozen() bool { return b.frozen }
func (b *SimBody) Mass() float64        { return b.mass }

// Grounded reports whether the body rests on the ground plane.
func (b *SimBody) Grounded() bool {
	return b.transform.WorldPosition()[1] <= groundEpsilon && b.velocity[1] <= groundEpsilon
}

// Step integrates the body over dt. Kinematic bodies and bodies docked under
// another transform are moved by their owner, not by the integrator.
func (b *SimBody) Step(dt time.Duration) {
	if b.kinematic || b.transform.Parent() != nil {
		return
	}
	secs := dt.Seconds()

	if b.gravity {
		b.velocity = b.velocity.Add(DefaultGravity.Mul(secs))
	}

	pos := b.transform.LocalPosition.Add(b.velocity.Mul(secs))
	if pos[1] < 0 {
		pos[1] = 0
		if b.velocity[1] < 0 {
			b.velocity[1] = 0
		}
	}
	b.transform.LocalPosition = pos
}
