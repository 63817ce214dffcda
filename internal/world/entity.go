package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/storage"
)

// DefaultAnchorSlot is the name of the child transform a possessing controller docks onto.
const DefaultAnchorSlot = "MaskSlot"

// MovementInput is the latched movement state routed to whatever a controller drives.
type MovementInput struct {
	AxisH float64
	AxisV float64
	Jump  bool

	// CameraForward is the view direction the axes are relative to.
	CameraForward mgl64.Vec3
}

// Possessable is implemented by everything a controller can drive.
type Possessable interface {
	OnPossessed()
	OnUnpossessed()
	ConsumeMovementInput(in MovementInput, dt time.Duration)
	Controlled() bool
}

// suspension remembers the physics state an entity had before it was possessed.
type suspension struct {
	kinematic   bool
	syncEnabled bool
}

// Entity is a possessable world object.
type Entity struct {
	Id   storage.Identifier
	Name string

	Transform *Transform
	Anchor    *Transform

	Body     Body
	Sync     TransformSync
	Behavior Possessable

	// Authority state. CurrentController is a weak reference resolved through the World.
	CurrentController storage.Identifier
	Locked            bool
	Owner             storage.Identifier

	suspended *suspension
}

// Free reports whether nobody holds authority over the entity.
func (e *Entity) Free() bool {
	return !e.Locked && e.CurrentController == ""
}

// PhysicsSuspended reports whether the entity's own simulation is currently handed off.
func (e *Entity) PhysicsSuspended() bool {
	return e.suspended != nil
}

// SuspendPhysics stops the entity's own simulation and transform replication so the
// possessing controller is the only source of truth for its transform.
func (e *Entity) SuspendPhysics() {
	if e.suspended == nil {
		s := &suspension{}
		if e.Body != nil {
			s.kinematic = e.Body.Kinematic()
		}
		if e.Sync != nil {
			s.syncEnabled = e.Sync.Enabled()
		}
		e.suspended = s
	}

	if e.Body != nil {
		e.Body.SetVelocity(mgl64.Vec3{})
		e.Body.SetKinematic(true)
	}
	if e.Sync != nil {
		e.Sync.SetEnabled(false)
	}
}

// RestorePhysics returns the body and sync to their state before SuspendPhysics.
// Without a recorded suspension the entity is restored to a free simulated object.
func (e *Entity) RestorePhysics() {
	s := e.suspended
	if s == nil {
		s = &suspension{kinematic: false, syncEnabled: true}
	}
	e.suspended = nil

	if e.Body != nil {
		e.Body.SetKinematic(s.kinematic)
	}
	if e.Sync != nil {
		e.Sync.SetEnabled(s.syncEnabled)
	}
}
