// Package peer runs one participant of a possession session.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-possess/internal/driver"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/possession"
	"github.com/pixil98/go-possess/internal/replication"
	"github.com/pixil98/go-possess/internal/schedule"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

var ErrUnknownController = errors.New("no such local controller")

type PeerOpt func(*Peer)

func WithInput(in world.InputSource) PeerOpt {
	return func(p *Peer) {
		p.input = in
	}
}

func WithCamera(cam world.CameraRig) PeerOpt {
	return func(p *Peer) {
		p.camera = cam
	}
}

func WithTuning(t tuning.Tuning) PeerOpt {
	return func(p *Peer) {
		p.tuning = t
	}
}

func WithRecorder(r possession.Recorder) PeerOpt {
	return func(p *Peer) {
		p.recorder = r
	}
}

// action is work queued from another goroutine to run inside a tick.
type action struct {
	fn   func(ctx context.Context) error
	done chan error
}

// stepper is a body the peer integrates itself.
type stepper interface {
	Step(dt time.Duration)
}

// Peer owns a world replica and everything that mutates it. All mutation
// happens inside Tick; other goroutines go through Do.
type Peer struct {
	world      *world.World
	transport  messaging.Transport
	router     *messaging.Router
	sched      *schedule.Scheduler
	coord      *possession.Coordinator
	replicator *replication.Replicator

	input    world.InputSource
	camera   world.CameraRig
	tuning   tuning.Tuning
	recorder possession.Recorder

	actions chan action
	opened  bool

	mu     sync.RWMutex
	active storage.Identifier
}

var _ driver.Manager = (*Peer)(nil)
var _ driver.Stopper = (*Peer)(nil)

func NewPeer(w *world.World, t messaging.Transport, opts ...PeerOpt) (*Peer, error) {
	p := &Peer{
		world:     w,
		transport: t,
		router:    messaging.NewRouter(),
		sched:     schedule.NewScheduler(),
		tuning:    tuning.Default(),
		actions:   make(chan action, 64),
	}

	for _, opt := range opts {
		opt(p)
	}

	coordOpts := []possession.CoordinatorOpt{possession.WithTuning(p.tuning)}
	if p.camera != nil {
		coordOpts = append(coordOpts, possession.WithCamera(p.camera))
	}
	if p.recorder != nil {
		coordOpts = append(coordOpts, possession.WithRecorder(p.recorder))
	}

	coord, err := possession.NewCoordinator(w, t, p.sched, coordOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating coordinator: %w", err)
	}
	p.coord = coord
	p.coord.Register(p.router)

	p.replicator = replication.NewReplicator(w, t, p.tuning.SnapshotEveryTicks)
	p.replicator.Register(p.router)

	if local := w.LocalControllers(); len(local) > 0 {
		p.active = local[0].Id
		if p.camera != nil {
			p.camera.SetFollowTarget(local[0].Transform)
		}
	}

	return p, nil
}

func (p *Peer) Id() storage.Identifier { return p.transport.Peer() }

func (p *Peer) World() *world.World { return p.world }

func (p *Peer) Coordinator() *possession.Coordinator { return p.coord }

func (p *Peer) Scheduler() *schedule.Scheduler { return p.sched }

func (p *Peer) Tuning() tuning.Tuning { return p.tuning }

// Active is the controller local input is routed to.
func (p *Peer) Active() storage.Identifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Select routes local input to another controller driven from this peer.
func (p *Peer) Select(id storage.Identifier) error {
	c := p.world.Controller(id)
	if c == nil || !c.IsLocalAuthority {
		return fmt.Errorf("%w: %s", ErrUnknownController, id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = id
	return nil
}

// Do runs fn inside the next tick and waits for it to finish.
func (p *Peer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	a := action{fn: fn, done: make(chan error, 1)}
	select {
	case p.actions <- a:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-a.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick advances the peer by dt.
func (p *Peer) Tick(ctx context.Context, dt time.Duration) error {
	if !p.opened {
		if err := p.transport.Open(); err != nil {
			return fmt.Errorf("opening transport: %w", err)
		}
		p.opened = true
	}

	p.runActions(ctx)
	p.drainInbox(ctx)
	p.sched.Advance(dt)

	if p.input != nil {
		p.route(ctx, p.input.Poll(), dt)
	}

	p.stepPhysics(dt)

	if err := p.replicator.Tick(ctx); err != nil {
		slog.WarnContext(ctx, "replicating transforms", "error", err)
	}

	return nil
}

func (p *Peer) runActions(ctx context.Context) {
	for {
		select {
		case a := <-p.actions:
			a.done <- a.fn(ctx)
		default:
			return
		}
	}
}

// drainInbox applies every envelope queued so far, including those the
// authority broadcasts to itself while draining.
func (p *Peer) drainInbox(ctx context.Context) {
	inbox := p.transport.Inbox()
	for {
		env, ok := inbox.Next()
		if !ok {
			return
		}
		if err := p.router.Dispatch(ctx, env); err != nil {
			slog.WarnContext(ctx, "handling message", "handler", env.Handler, "sender", env.Sender, "error", err)
		}
	}
}

func (p *Peer) stepPhysics(dt time.Duration) {
	for _, e := range p.world.Entities() {
		if s, ok := e.Body.(stepper); ok {
			s.Step(dt)
		}
	}
	for _, c := range p.world.Controllers() {
		if s, ok := c.Body.(stepper); ok {
			s.Step(dt)
		}
	}
}

// Stop tells the authority this peer is leaving and closes the transport.
func (p *Peer) Stop(ctx context.Context) error {
	return p.Leave(ctx)
}

func (p *Peer) Leave(ctx context.Context) error {
	defer p.transport.Close()
	if !p.opened || p.coord.Authoritative() {
		return nil
	}

	err := p.transport.SendCommand(possession.HandlerPeerLeft, possession.PeerLeft{Peer: p.Id()})
	if err != nil {
		return fmt.Errorf("announcing departure: %w", err)
	}
	slog.InfoContext(ctx, "left session", "peer", p.Id())
	return nil
}
