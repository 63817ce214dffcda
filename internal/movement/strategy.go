package movement

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

const epsilon = 1e-9

const gravity = 9.81

// PlanarDirection turns the input axes into a world direction relative to the
// camera, projected onto the ground plane. Its length is at most 1.
func PlanarDirection(in world.MovementInput) mgl64.Vec3 {
	fwd := mgl64.Vec3{in.CameraForward[0], 0, in.CameraForward[2]}
	if fwd.Len() < epsilon {
		fwd = mgl64.Vec3{0, 0, 1}
	} else {
		fwd = fwd.Normalize()
	}
	right := world.Up.Cross(fwd)

	dir := fwd.Mul(in.AxisV).Add(right.Mul(in.AxisH))
	if dir.Len() > 1 {
		dir = dir.Normalize()
	}
	return dir
}

// blend is the exponential smoothing factor for rate over dt.
func blend(rate float64, dt time.Duration) float64 {
	return 1 - math.Exp(-rate*dt.Seconds())
}

func approach(cur, target mgl64.Vec3, t float64) mgl64.Vec3 {
	return cur.Add(target.Sub(cur).Mul(t))
}

func turnToward(tr *world.Transform, dir mgl64.Vec3, rate float64, dt time.Duration) {
	if dir.Len() < epsilon {
		return
	}
	heading := mgl64.QuatRotate(math.Atan2(dir[0], dir[2]), world.Up)
	tr.LocalRotation = mgl64.QuatSlerp(tr.LocalRotation, heading, blend(rate, dt))
}

// Ground walks on the ground plane and can jump while standing on it.
type Ground struct {
	Tuning tuning.Movement
}

func (g *Ground) Name() string { return "ground" }

func (g *Ground) Move(m *Motion, tr *world.Transform, in world.MovementInput, dt time.Duration) {
	secs := dt.Seconds()
	dir := PlanarDirection(in)

	target := dir.Mul(g.Tuning.Speed)
	horiz := approach(mgl64.Vec3{m.Velocity[0], 0, m.Velocity[2]}, target, blend(g.Tuning.Acceleration, dt))

	pos := tr.WorldPosition()
	vy := m.Velocity[1]
	grounded := pos[1] <= epsilon && vy <= epsilon
	if grounded && in.Jump {
		vy = g.Tuning.JumpImpulse
	} else if !grounded {
		vy -= gravity * secs
	}

	m.Velocity = mgl64.Vec3{horiz[0], vy, horiz[2]}
	pos = pos.Add(m.Velocity.Mul(secs))
	if pos[1] < 0 {
		pos[1] = 0
		m.Velocity[1] = 0
	}
	tr.SetWorldPosition(pos)

	turnToward(tr, dir, g.Tuning.TurnRate, dt)
}

// Hover flies without gravity; jump rises.
type Hover struct {
	Tuning tuning.Movement
}

func (h *Hover) Name() string { return "hover" }

func (h *Hover) Move(m *Motion, tr *world.Transform, in world.MovementInput, dt time.Duration) {
	dir := PlanarDirection(in)

	target := dir.Mul(h.Tuning.Speed)
	if in.Jump {
		target[1] = h.Tuning.JumpImpulse
	}
	m.Velocity = approach(m.Velocity, target, blend(h.Tuning.Acceleration, dt))

	pos := tr.WorldPosition().Add(m.Velocity.Mul(dt.Seconds()))
	if pos[1] < 0 {
		pos[1] = 0
		m.Velocity[1] = 0
	}
	tr.SetWorldPosition(pos)

	turnToward(tr, dir, h.Tuning.TurnRate, dt)
}

// ForName returns the strategy registered under name.
func ForName(name string, t tuning.Tuning) (Strategy, bool) {
	switch name {
	case "ground", "":
		return &Ground{Tuning: t.Ground}, true
	case "hover":
		return &Hover{Tuning: t.Hover}, true
	default:
		return nil, false
	}
}
