// Package scene builds a peer's world replica from scene assets.
package scene

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// EntitySpec describes a possessable world object.
type EntitySpec struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Mass     float64    `json:"mass"`
	// Movement is the strategy used while possessed: "ground" or "hover".
	Movement     string     `json:"movement"`
	AnchorOffset [3]float64 `json:"anchor_offset"`
}

func (s *EntitySpec) Validate() error {
	if s == nil {
		return fmt.Errorf("spec must be set")
	}
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if s.Mass < 0 {
		el.Add(fmt.Errorf("mass must not be negative"))
	}
	switch s.Movement {
	case "", "ground", "hover":
	default:
		el.Add(fmt.Errorf("unknown movement %q", s.Movement))
	}

	return el.Err()
}

// ControllerSpec describes a mask avatar and the peer that drives it.
type ControllerSpec struct {
	Name     string     `json:"name"`
	Peer     string     `json:"peer"`
	Position [3]float64 `json:"position"`
}

func (s *ControllerSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("spec must be set")
	}
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if s.Peer == "" {
		el.Add(fmt.Errorf("peer must be set"))
	}

	return el.Err()
}
