// Package possession implements the authority handoff between controllers
// and the entities they drive.
package possession

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/schedule"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/stun"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

type CoordinatorOpt func(*Coordinator)

// WithCamera sets the rig retargeted when a local controller possesses or releases.
func WithCamera(cam world.CameraRig) CoordinatorOpt {
	return func(c *Coordinator) {
		c.camera = cam
	}
}

// WithRecorder sets where authoritative transitions are persisted.
func WithRecorder(r Recorder) CoordinatorOpt {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

func WithTuning(t tuning.Tuning) CoordinatorOpt {
	return func(c *Coordinator) {
		c.tuning = t
	}
}

// pending is an outstanding request from a local controller.
type pending struct {
	phase   Phase
	target  storage.Identifier
	timeout schedule.Token
}

// Coordinator runs the possession protocol for one peer. It is driven from the
// peer's tick and is not safe for concurrent use.
type Coordinator struct {
	world         *world.World
	transport     messaging.Transport
	sched         *schedule.Scheduler
	stun          *stun.Timer
	camera        world.CameraRig
	recorder      Recorder
	tuning        tuning.Tuning
	inst          *instruments
	peer          storage.Identifier
	authoritative bool

	pending map[storage.Identifier]*pending

	// Authoritative claims table: entity to controller and back.
	claims map[storage.Identifier]storage.Identifier
	holds  map[storage.Identifier]storage.Identifier
}

func NewCoordinator(w *world.World, t messaging.Transport, sched *schedule.Scheduler, opts ...CoordinatorOpt) (*Coordinator, error) {
	inst, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("creating instruments: %w", err)
	}

	c := &Coordinator{
		world:         w,
		transport:     t,
		sched:         sched,
		stun:          stun.NewTimer(sched),
		recorder:      nopRecorder{},
		tuning:        tuning.Default(),
		inst:          inst,
		peer:          t.Peer(),
		authoritative: t.Peer() == w.Host(),
		pending:       make(map[storage.Identifier]*pending),
		claims:        make(map[storage.Identifier]storage.Identifier),
		holds:         make(map[storage.Identifier]storage.Identifier),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Coordinator) Peer() storage.Identifier { return c.peer }

func (c *Coordinator) Authoritative() bool { return c.authoritative }

func (c *Coordinator) World() *world.World { return c.world }

func (c *Coordinator) Stun() *stun.Timer { return c.stun }

// Phase reports where the controller stands in the protocol on this replica.
func (c *Coordinator) Phase(controllerId storage.Identifier) Phase {
	if p, ok := c.pending[controllerId]; ok {
		return p.phase
	}
	ctrl := c.world.Controller(controllerId)
	if ctrl != nil && ctrl.Possessing() {
		return PhasePossessed
	}
	return PhaseFree
}

// Register routes the protocol's handler ids to the coordinator.
func (c *Coordinator) Register(r *messaging.Router) {
	for _, id := range []messaging.HandlerId{
		HandlerPossess,
		HandlerUnpossess,
		HandlerPeerLeft,
		HandlerPossessGranted,
		HandlerPossessRejected,
		HandlerUnpossessReleased,
	} {
		r.Handle(id, c.Handle)
	}
}

// Handle applies one inbound envelope.
func (c *Coordinator) Handle(ctx context.Context, env messaging.Envelope) error {
	switch env.Handler {
	case HandlerPossess:
		var cmd PossessCommand
		if err := env.Decode(&cmd); err != nil {
			return err
		}
		return c.OnPossessCommand(ctx, env.Sender, cmd)

	case HandlerUnpossess:
		var cmd UnpossessCommand
		if err := env.Decode(&cmd); err != nil {
			return err
		}
		return c.OnUnpossessCommand(ctx, env.Sender, cmd)

	case HandlerPeerLeft:
		var msg PeerLeft
		if err := env.Decode(&msg); err != nil {
			return err
		}
		if msg.Peer != env.Sender {
			slog.WarnContext(ctx, "ignoring peer-left sent on behalf of another peer", "sender", env.Sender, "peer", msg.Peer)
			return nil
		}
		return c.DisconnectPeer(ctx, msg.Peer)

	case HandlerPossessGranted:
		var msg PossessGranted
		if err := env.Decode(&msg); err != nil {
			return err
		}
		c.OnPossessGranted(ctx, msg)
		return nil

	case HandlerPossessRejected:
		var msg PossessRejected
		if err := env.Decode(&msg); err != nil {
			return err
		}
		c.OnPossessRejected(ctx, msg)
		return nil

	case HandlerUnpossessReleased:
		var msg UnpossessReleased
		if err := env.Decode(&msg); err != nil {
			return err
		}
		c.OnUnpossessReleased(ctx, msg)
		return nil

	default:
		return fmt.Errorf("unhandled message %q", env.Handler)
	}
}

func (c *Coordinator) setPending(ctx context.Context, ctrl *world.Controller, phase Phase, target storage.Identifier) {
	c.clearPending(ctrl.Id)

	id := ctrl.Id
	p := &pending{phase: phase, target: target}
	p.timeout = c.sched.Schedule(c.tuning.RequestTimeout, func() {
		if c.pending[id] != p {
			return
		}
		delete(c.pending, id)
		slog.WarnContext(ctx, "request timed out", "controller", id, "phase", phase.String(), "target", target)
	})
	c.pending[id] = p
}

func (c *Coordinator) clearPending(controllerId storage.Identifier) {
	if p, ok := c.pending[controllerId]; ok {
		c.sched.Cancel(p.timeout)
		delete(c.pending, controllerId)
	}
}

func (c *Coordinator) record(ctx context.Context, tr Transition) {
	c.inst.transition(ctx, tr.Kind)
	if err := c.recorder.Record(ctx, tr); err != nil {
		slog.ErrorContext(ctx, "recording transition", "kind", tr.Kind, "controller", tr.Controller, "entity", tr.Entity, "error", err)
	}
}
