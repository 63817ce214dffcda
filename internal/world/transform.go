package world

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis.
var Up = mgl64.Vec3{0, 1, 0}

// Transform is a node in the scene graph. Local values are relative to the
// parent, or to the world when the node has no parent.
type Transform struct {
	Name          string
	LocalPosition mgl64.Vec3
	LocalRotation mgl64.Quat
	LocalScale    mgl64.Vec3

	parent   *Transform
	children map[string]*Transform
}

// NewTransform creates a root transform at pos with identity rotation and unit scale.
func NewTransform(name string, pos mgl64.Vec3) *Transform {
	return &Transform{
		Name:          name,
		LocalPosition: pos,
		LocalRotation: mgl64.QuatIdent(),
		LocalScale:    mgl64.Vec3{1, 1, 1},
	}
}

// Parent returns the node this transform is attached to, or nil.
func (t *Transform) Parent() *Transform {
	return t.parent
}

// AddChild creates a named child at the given local offset. An existing child
// with the same name is replaced.
func (t *Transform) AddChild(name string, offset mgl64.Vec3) *Transform {
	c := NewTransform(name, offset)
	c.parent = t
	if t.children == nil {
		t.children = make(map[string]*Transform)
	}
	t.children[name] = c
	return c
}

// Child returns the named child, or nil.
func (t *Transform) Child(name string) *Transform {
	return t.children[name]
}

// WorldRotation composes the rotations up the parent chain.
func (t *Transform) WorldRotation() mgl64.Quat {
	if t.parent == nil {
		return t.LocalRotation
	}
	return t.parent.WorldRotation().Mul(t.LocalRotation)
}

func (t *Transform) worldScale() mgl64.Vec3 {
	if t.parent == nil {
		return t.LocalScale
	}
	ps := t.parent.worldScale()
	return mgl64.Vec3{ps[0] * t.LocalScale[0], ps[1] * t.LocalScale[1], ps[2] * t.LocalScale[2]}
}

// WorldPosition resolves the position through the parent chain.
func (t *Transform) WorldPosition() mgl64.Vec3 {
	if t.parent == nil {
		return t.LocalPosition
	}
	ps := t.parent.worldScale()
	scaled := mgl64.Vec3{t.LocalPosition[0] * ps[0], t.LocalPosition[1] * ps[1], t.LocalPosition[2] * ps[2]}
	return t.parent.WorldPosition().Add(t.parent.WorldRotation().Rotate(scaled))
}

// SetWorldPosition moves the node so that its world position is pos.
func (t *Transform) SetWorldPosition(pos mgl64.Vec3) {
	if t.parent == nil {
		t.LocalPosition = pos
		return
	}
	rel := t.parent.WorldRotation().Inverse().Rotate(pos.Sub(t.parent.WorldPosition()))
	ps := t.parent.worldScale()
	t.LocalPosition = mgl64.Vec3{safeDiv(rel[0], ps[0]), safeDiv(rel[1], ps[1]), safeDiv(rel[2], ps[2])}
}

// Dock attaches t to slot at zero local offset and identity local rotation.
// Docking to nil is the same as Undock at the current world position.
func (t *Transform) Dock(slot *Transform) {
	if slot == nil {
		t.Undock(t.WorldPosition())
		return
	}
	t.parent = slot
	t.LocalPosition = mgl64.Vec3{}
	t.LocalRotation = mgl64.QuatIdent()
}

// Undock detaches t from its parent and places it at pos, keeping its world rotation.
func (t *Transform) Undock(pos mgl64.Vec3) {
	rot := t.WorldRotation()
	t.parent = nil
	t.LocalPosition = pos
	t.LocalRotation = rot
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
