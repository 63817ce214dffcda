package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/movement"
	"github.com/pixil98/go-possess/internal/physics"
	"github.com/pixil98/go-possess/internal/replication"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

func vec(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// Build creates the world replica seen by peer self in a session hosted by host.
func Build(
	self, host storage.Identifier,
	entities storage.Storer[*EntitySpec],
	controllers storage.Storer[*ControllerSpec],
	t tuning.Tuning,
) (*world.World, error) {
	w := world.NewWorld(host)

	for _, id := range entities.Ids() {
		e, err := newEntity(id, entities.Get(id), t)
		if err != nil {
			return nil, fmt.Errorf("building entity %s: %w", id, err)
		}
		if err := w.AddEntity(e); err != nil {
			return nil, err
		}
	}

	for _, id := range controllers.Ids() {
		c := newController(id, controllers.Get(id), self, t)
		if err := w.AddController(c); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func newEntity(id storage.Identifier, spec *EntitySpec, t tuning.Tuning) (*world.Entity, error) {
	strategy, ok := movement.ForName(spec.Movement, t)
	if !ok {
		return nil, fmt.Errorf("unknown movement %q", spec.Movement)
	}

	tr := world.NewTransform(spec.Name, vec(spec.Position))
	return &world.Entity{
		Id:        id,
		Name:      spec.Name,
		Transform: tr,
		Anchor:    tr.AddChild(t.AnchorSlot, vec(spec.AnchorOffset)),
		Body:      physics.NewSimBody(tr, spec.Mass),
		Sync:      replication.NewSync(),
		Behavior:  movement.NewControllable(tr, strategy),
	}, nil
}

// newController builds a hovering mask: no gravity, rotation frozen.
func newController(id storage.Identifier, spec *ControllerSpec, self storage.Identifier, t tuning.Tuning) *world.Controller {
	tr := world.NewTransform(spec.Name, vec(spec.Position))

	body := physics.NewSimBody(tr, 1)
	body.SetGravityEnabled(false)
	body.SetRotationFrozen(true)

	hover, _ := movement.ForName("hover", t)

	return &world.Controller{
		Id:               id,
		Name:             spec.Name,
		Peer:             storage.Identifier(spec.Peer),
		Transform:        tr,
		Body:             body,
		Behavior:         movement.NewSelfControlled(tr, hover),
		IsLocalAuthority: storage.Identifier(spec.Peer) == self,
	}
}
