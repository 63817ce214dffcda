package world

import (
	"time"

	"github.com/pixil98/go-possess/internal/storage"
)

// Controller is a player's mask avatar.
type Controller struct {
	Id   storage.Identifier
	Name string

	// Peer is the connection that owns this controller.
	Peer storage.Identifier

	Transform *Transform
	Body      Body
	Behavior  Possessable

	// PossessedEntity is a weak reference resolved through the World.
	PossessedEntity storage.Identifier

	Stunned      bool
	StunnedUntil time.Duration

	Input MovementInput

	// IsLocalAuthority is set on the replica that accepts local input for this controller.
	IsLocalAuthority bool
}

// Possessing reports whether the controller currently holds an entity.
func (c *Controller) Possessing() bool {
	return c.PossessedEntity != ""
}

// ClearInput zeroes latched movement axes.
func (c *Controller) ClearInput() {
	c.Input.AxisH = 0
	c.Input.AxisV = 0
	c.Input.Jump = false
}
