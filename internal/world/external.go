package world

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Body is the physics body attached to an entity or controller.
type Body interface {
	SetKinematic(bool)
	SetVelocity(mgl64.Vec3)
	ApplyImpulse(mgl64.Vec3)
	SetGravityEnabled(bool)
	SetRotationFrozen(bool)

	Kinematic() bool
	Velocity() mgl64.Vec3
	GravityEnabled() bool
	RotationFrozen() bool
}

// TransformSync replicates an entity transform to remote peers while enabled.
type TransformSync interface {
	SetEnabled(bool)
	Enabled() bool
}

// CameraRig follows a single transform.
type CameraRig interface {
	SetFollowTarget(*Transform)
	// Forward is the camera's view direction, used for camera-relative movement.
	Forward() mgl64.Vec3
}

// Key is a discrete input action.
type Key int

const (
	KeyPossess Key = iota
	KeyRelease
	KeyEject
)

// InputFrame is one polled sample of the input device.
type InputFrame struct {
	AxisH   float64
	AxisV   float64
	Jump    bool
	Pressed []Key
}

// Down reports whether k was pressed during the frame.
func (f InputFrame) Down(k Key) bool {
	for _, p := range f.Pressed {
		if p == k {
			return true
		}
	}
	return false
}

// InputSource is polled once per tick.
type InputSource interface {
	Poll() InputFrame
}
