package replication

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
)

const (
	// HandlerTransform carries host snapshots to every peer.
	HandlerTransform messaging.HandlerId = "transform"
	// HandlerTransformUpdate carries an owner's transforms to the host.
	HandlerTransformUpdate messaging.HandlerId = "transform-update"
)

type EntityTransform struct {
	Id       storage.Identifier `msgpack:"id"`
	Position [3]float64         `msgpack:"position"`
	// Rotation is w, x, y, z.
	Rotation [4]float64 `msgpack:"rotation"`
}

type Snapshot struct {
	Entities []EntityTransform `msgpack:"entities"`
}

func capture(e *world.Entity) EntityTransform {
	p := e.Transform.WorldPosition()
	q := e.Transform.LocalRotation
	return EntityTransform{
		Id:       e.Id,
		Position: [3]float64{p[0], p[1], p[2]},
		Rotation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
	}
}

// finite reports whether every component is a real number.
func (et EntityTransform) finite() bool {
	for _, v := range et.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range et.Rotation {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func apply(e *world.Entity, et EntityTransform) {
	e.Transform.SetWorldPosition(mgl64.Vec3{et.Position[0], et.Position[1], et.Position[2]})
	e.Transform.LocalRotation = mgl64.Quat{W: et.Rotation[0], V: mgl64.Vec3{et.Rotation[1], et.Rotation[2], et.Rotation[3]}}
}

// Replicator sends and applies transform snapshots for one peer. The host
// publishes entities that replicate on their own; an entity driven by a
// client is published by that client and relayed by the host.
type Replicator struct {
	world         *world.World
	transport     messaging.Transport
	peer          storage.Identifier
	authoritative bool
	every         int
	ticks         int
}

// NewReplicator publishes once every `every` ticks.
func NewReplicator(w *world.World, t messaging.Transport, every int) *Replicator {
	if every < 1 {
		every = 1
	}
	return &Replicator{
		world:         w,
		transport:     t,
		peer:          t.Peer(),
		authoritative: t.Peer() == w.Host(),
		every:         every,
	}
}

func (r *Replicator) Register(router *messaging.Router) {
	router.Handle(HandlerTransform, r.Handle)
	router.Handle(HandlerTransformUpdate, r.Handle)
}

// drives reports whether this peer is the source of truth for e.
func (r *Replicator) drives(e *world.Entity) bool {
	return e.Locked && e.Owner == r.peer
}

// Tick publishes transforms when due.
func (r *Replicator) Tick(ctx context.Context) error {
	r.ticks++
	if r.ticks%r.every != 0 {
		return nil
	}

	var snap Snapshot
	for _, e := range r.world.Entities() {
		switch {
		case r.drives(e):
		case r.authoritative && !e.Locked && e.Sync != nil && e.Sync.Enabled():
		default:
			continue
		}
		snap.Entities = append(snap.Entities, capture(e))
	}
	if len(snap.Entities) == 0 {
		return nil
	}

	if r.authoritative {
		if err := r.transport.Broadcast(HandlerTransform, snap); err != nil {
			return fmt.Errorf("broadcasting snapshot: %w", err)
		}
		return nil
	}
	if err := r.transport.SendCommand(HandlerTransformUpdate, snap); err != nil {
		return fmt.Errorf("sending transform update: %w", err)
	}
	return nil
}

func (r *Replicator) Handle(ctx context.Context, env messaging.Envelope) error {
	var snap Snapshot
	if err := env.Decode(&snap); err != nil {
		return err
	}

	switch env.Handler {
	case HandlerTransformUpdate:
		return r.onUpdate(ctx, env.Sender, snap)
	case HandlerTransform:
		r.onSnapshot(env.Sender, snap)
		return nil
	default:
		return fmt.Errorf("unhandled message %q", env.Handler)
	}
}

// onUpdate accepts transforms only from the current owner and relays them.
func (r *Replicator) onUpdate(ctx context.Context, sender storage.Identifier, snap Snapshot) error {
	if !r.authoritative {
		return nil
	}

	var accepted Snapshot
	for _, et := range snap.Entities {
		e := r.world.Entity(et.Id)
		if e == nil {
			continue
		}
		if e.Owner != sender || !e.Locked {
			slog.WarnContext(ctx, "transform update from non-owner", "sender", sender, "entity", et.Id, "owner", e.Owner)
			continue
		}
		if !et.finite() {
			slog.WarnContext(ctx, "discarding non-finite transform", "sender", sender, "entity", et.Id)
			continue
		}
		apply(e, et)
		accepted.Entities = append(accepted.Entities, et)
	}

	if len(accepted.Entities) == 0 {
		return nil
	}
	if err := r.transport.Broadcast(HandlerTransform, accepted); err != nil {
		return fmt.Errorf("relaying transform update: %w", err)
	}
	return nil
}

func (r *Replicator) onSnapshot(sender storage.Identifier, snap Snapshot) {
	if sender == r.peer {
		return
	}
	for _, et := range snap.Entities {
		e := r.world.Entity(et.Id)
		if e == nil || r.drives(e) || !et.finite() {
			continue
		}
		apply(e, et)
	}
}
