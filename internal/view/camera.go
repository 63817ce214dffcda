// Package view holds the headless camera rig.
package view

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/world"
)

// FollowCamera trails a single transform at a fixed offset.
type FollowCamera struct {
	mu      sync.RWMutex
	target  *world.Transform
	offset  mgl64.Vec3
	forward mgl64.Vec3
}

var _ world.CameraRig = (*FollowCamera)(nil)

// NewFollowCamera looks along +Z from offset behind its target.
func NewFollowCamera(offset mgl64.Vec3) *FollowCamera {
	return &FollowCamera{
		offset:  offset,
		forward: mgl64.Vec3{0, 0, 1},
	}
}

func (c *FollowCamera) SetFollowTarget(t *world.Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
}

func (c *FollowCamera) Target() *world.Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// SetForward turns the camera. A zero vector is ignored.
func (c *FollowCamera) SetForward(f mgl64.Vec3) {
	if f.Len() == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward = f.Normalize()
}

func (c *FollowCamera) Forward() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forward
}

// Position is where the camera sits. Without a target it sits at the offset.
func (c *FollowCamera) Position() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.target == nil {
		return c.offset
	}
	return c.target.WorldPosition().Add(c.offset)
}
