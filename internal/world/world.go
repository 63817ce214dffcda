package world

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-possess/internal/storage"
)

// World is one peer's replica of every entity and controller in the session.
// The registry is safe for concurrent use; entity and controller fields are
// only mutated from the owning peer's tick.
type World struct {
	mu          sync.RWMutex
	host        storage.Identifier
	entities    map[storage.Identifier]*Entity
	controllers map[storage.Identifier]*Controller
}

// NewWorld creates an empty world whose free entities are owned by host.
func NewWorld(host storage.Identifier) *World {
	return &World{
		host:        host,
		entities:    make(map[storage.Identifier]*Entity),
		controllers: make(map[storage.Identifier]*Controller),
	}
}

// Host returns the authoritative peer.
func (w *World) Host() storage.Identifier {
	return w.host
}

// AddEntity registers an entity. Free entities are owned by the host.
func (w *World) AddEntity(e *Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entities[e.Id]; exists {
		return fmt.Errorf("%w: %s", ErrEntityExists, e.Id)
	}
	if e.Owner == "" {
		e.Owner = w.host
	}
	w.entities[e.Id] = e
	return nil
}

// AddController registers a controller.
func (w *World) AddController(c *Controller) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.controllers[c.Id]; exists {
		return fmt.Errorf("%w: %s", ErrControllerExists, c.Id)
	}
	w.controllers[c.Id] = c
	return nil
}

// Entity returns the entity or nil.
func (w *World) Entity(id storage.Identifier) *Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.entities[id]
}

// Controller returns the controller or nil.
func (w *World) Controller(id storage.Identifier) *Controller {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.controllers[id]
}

// Entities returns all entities ordered by id.
func (w *World) Entities() []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// Controllers returns all controllers ordered by id.
func (w *World) Controllers() []*Controller {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Controller, 0, len(w.controllers))
	for _, c := range w.controllers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// ControllersOf returns the controllers owned by peer, ordered by id.
func (w *World) ControllersOf(peer storage.Identifier) []*Controller {
	var out []*Controller
	for _, c := range w.Controllers() {
		if c.Peer == peer {
			out = append(out, c)
		}
	}
	return out
}

// LocalControllers returns the controllers this replica accepts input for.
func (w *World) LocalControllers() []*Controller {
	var out []*Controller
	for _, c := range w.Controllers() {
		if c.IsLocalAuthority {
			out = append(out, c)
		}
	}
	return out
}

// NearestFree returns the closest free entity within radius of pos, or nil.
func (w *World) NearestFree(pos mgl64.Vec3, radius float64) *Entity {
	var best *Entity
	bestDist := math.Inf(1)
	for _, e := range w.Entities() {
		if !e.Free() {
			continue
		}
		d := e.Transform.WorldPosition().Sub(pos).Len()
		if d <= radius && d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

// CheckInvariants verifies the authority invariants on this replica and
// returns every violation found.
func (w *World) CheckInvariants() error {
	el := errors.NewErrorList()

	controllers := w.Controllers()
	holders := make(map[storage.Identifier][]*Controller)
	for _, c := range controllers {
		if c.PossessedEntity != "" {
			holders[c.PossessedEntity] = append(holders[c.PossessedEntity], c)
		}
	}

	for _, e := range w.Entities() {
		h := holders[e.Id]
		switch {
		case len(h) > 1:
			el.Add(fmt.Errorf("entity %s held by %d controllers", e.Id, len(h)))
		case len(h) == 1 && e.CurrentController != h[0].Id:
			el.Add(fmt.Errorf("entity %s back reference %q does not match holder %s", e.Id, e.CurrentController, h[0].Id))
		case len(h) == 0 && e.CurrentController != "":
			el.Add(fmt.Errorf("entity %s references controller %s which does not hold it", e.Id, e.CurrentController))
		}
		if e.Locked != (len(h) == 1) {
			el.Add(fmt.Errorf("entity %s locked=%t with %d holders", e.Id, e.Locked, len(h)))
		}
		if e.Locked && e.Body != nil && !e.Body.Kinematic() {
			el.Add(fmt.Errorf("entity %s simulates physics while driven", e.Id))
		}
	}

	for _, c := range controllers {
		if c.PossessedEntity == "" {
			if c.Transform.Parent() != nil {
				el.Add(fmt.Errorf("controller %s is parented while free", c.Id))
			}
			continue
		}
		e := w.Entity(c.PossessedEntity)
		if e == nil {
			el.Add(fmt.Errorf("controller %s possesses unknown entity %s", c.Id, c.PossessedEntity))
			continue
		}
		if c.Transform.Parent() != e.Anchor {
			el.Add(fmt.Errorf("controller %s is not docked on %s", c.Id, e.Id))
		} else if c.Transform.LocalPosition != (mgl64.Vec3{}) {
			el.Add(fmt.Errorf("controller %s docked with offset %v", c.Id, c.Transform.LocalPosition))
		}
	}

	return el.Err()
}
