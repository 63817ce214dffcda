package possession

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/schedule"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

type recordingBody struct {
	kinematic bool
	velocity  mgl64.Vec3
	gravity   bool
	frozen    bool
	impulses  []mgl64.Vec3
}

func (b *recordingBody) SetKinematic(k bool)      { b.kinematic = k }
func (b *recordingBody) SetVelocity(v mgl64.Vec3) { b.velocity = v }
func (b *recordingBody) SetGravityEnabled(g bool) { b.gravity = g }
func (b *recordingBody) SetRotationFrozen(f bool) { b.frozen = f }
func (b *recordingBody) Kinematic() bool          { return b.kinematic }
func (b *recordingBody) Velocity() mgl64.Vec3     { return b.velocity }
func (b *recordingBody) GravityEnabled() bool     { return b.gravity }
func (b *recordingBody) RotationFrozen() bool     { return b.frozen }

func (b *recordingBody) ApplyImpulse(j mgl64.Vec3) {
	b.impulses = append(b.impulses, j)
}

type recordingSync struct{ enabled bool }

func (s *recordingSync) SetEnabled(e bool) { s.enabled = e }
func (s *recordingSync) Enabled() bool     { return s.enabled }

type recordingBehavior struct {
	controlled  bool
	possessed   int
	unpossessed int
}

func (b *recordingBehavior) OnPossessed()   { b.controlled = true; b.possessed++ }
func (b *recordingBehavior) OnUnpossessed() { b.controlled = false; b.unpossessed++ }
func (b *recordingBehavior) Controlled() bool {
	return b.controlled
}
func (b *recordingBehavior) ConsumeMovementInput(world.MovementInput, time.Duration) {}

type recordingCamera struct {
	target *world.Transform
}

func (c *recordingCamera) SetFollowTarget(t *world.Transform) { c.target = t }
func (c *recordingCamera) Forward() mgl64.Vec3                { return mgl64.Vec3{0, 0, 1} }

type memRecorder struct {
	transitions []Transition
}

func (r *memRecorder) Record(_ context.Context, tr Transition) error {
	r.transitions = append(r.transitions, tr)
	return nil
}

func (r *memRecorder) kinds() string {
	s := ""
	for i, tr := range r.transitions {
		if i > 0 {
			s += ","
		}
		s += string(tr.Kind)
	}
	return s
}

// replica is one peer's copy of the session.
type replica struct {
	id        storage.Identifier
	world     *world.World
	sched     *schedule.Scheduler
	transport *messaging.LocalTransport
	coord     *Coordinator
	camera    *recordingCamera
}

func (r *replica) entity(id storage.Identifier) *world.Entity { return r.world.Entity(id) }

func (r *replica) controller(id storage.Identifier) *world.Controller { return r.world.Controller(id) }

func (r *replica) body(id storage.Identifier) *recordingBody {
	return r.world.Entity(id).Body.(*recordingBody)
}

func (r *replica) sync(id storage.Identifier) *recordingSync {
	return r.world.Entity(id).Sync.(*recordingSync)
}

func (r *replica) behavior(id storage.Identifier) *recordingBehavior {
	return r.world.Entity(id).Behavior.(*recordingBehavior)
}

type session struct {
	t        *testing.T
	hub      *messaging.LocalHub
	peers    []*replica
	recorder *memRecorder
	tuning   tuning.Tuning
}

var entityPositions = map[storage.Identifier]mgl64.Vec3{
	"crate":  {0, 0, 0},
	"barrel": {5, 0, 0},
}

// noiseHandler is lossy filler traffic the pump skips.
const noiseHandler messaging.HandlerId = "noise"

const sessionInboxSize = 8

// newSession builds one replica per peer. The first peer is the host and
// every peer owns a controller named mask-<peer>.
func newSession(t *testing.T, peers ...storage.Identifier) *session {
	t.Helper()

	hub, err := messaging.NewLocalHub(peers[0], messaging.WithInboxSize(sessionInboxSize), messaging.WithLossy(noiseHandler))
	if err != nil {
		t.Fatalf("creating hub: %v", err)
	}

	s := &session{t: t, hub: hub, recorder: &memRecorder{}, tuning: tuning.Default()}
	for _, id := range peers {
		s.peers = append(s.peers, s.newReplica(id, peers))
	}
	return s
}

func (s *session) newReplica(id storage.Identifier, peers []storage.Identifier) *replica {
	s.t.Helper()

	w := world.NewWorld(peers[0])
	for _, eid := range []storage.Identifier{"crate", "barrel"} {
		tr := world.NewTransform(string(eid), entityPositions[eid])
		err := w.AddEntity(&world.Entity{
			Id:        eid,
			Transform: tr,
			Anchor:    tr.AddChild(world.DefaultAnchorSlot, mgl64.Vec3{0, 1, 0}),
			Body:      &recordingBody{gravity: true},
			Sync:      &recordingSync{enabled: true},
			Behavior:  &recordingBehavior{},
		})
		if err != nil {
			s.t.Fatalf("adding entity: %v", err)
		}
	}
	for _, p := range peers {
		err := w.AddController(&world.Controller{
			Id:               maskOf(p),
			Peer:             p,
			Transform:        world.NewTransform("mask", mgl64.Vec3{0, 2, -2}),
			Body:             &recordingBody{frozen: true},
			IsLocalAuthority: p == id,
		})
		if err != nil {
			s.t.Fatalf("adding controller: %v", err)
		}
	}

	tr, err := s.hub.Join(id)
	if err != nil {
		s.t.Fatalf("joining hub: %v", err)
	}

	r := &replica{
		id:        id,
		world:     w,
		sched:     schedule.NewScheduler(),
		transport: tr,
		camera:    &recordingCamera{},
	}

	opts := []CoordinatorOpt{WithCamera(r.camera), WithTuning(s.tuning)}
	if id == peers[0] {
		opts = append(opts, WithRecorder(s.recorder))
	}
	r.coord, err = NewCoordinator(w, tr, r.sched, opts...)
	if err != nil {
		s.t.Fatalf("creating coordinator: %v", err)
	}
	return r
}

func maskOf(peer storage.Identifier) storage.Identifier {
	return storage.Identifier(fmt.Sprintf("mask-%s", peer))
}

func (s *session) peer(id storage.Identifier) *replica {
	for _, r := range s.peers {
		if r.id == id {
			return r
		}
	}
	s.t.Fatalf("unknown peer %s", id)
	return nil
}

func (s *session) host() *replica { return s.peers[0] }

// pump delivers messages until every inbox is empty.
func (s *session) pump() {
	s.t.Helper()
	for {
		progressed := false
		for _, r := range s.peers {
			for {
				env, ok := r.transport.Inbox().Next()
				if !ok {
					break
				}
				progressed = true
				if env.Handler == noiseHandler {
					continue
				}
				if err := r.coord.Handle(context.Background(), env); err != nil {
					s.t.Fatalf("%s handling %s: %v", r.id, env.Handler, err)
				}
			}
		}
		if !progressed {
			return
		}
	}
}

// queued is the number of undelivered messages across the session.
func (s *session) queued() int {
	n := 0
	for _, r := range s.peers {
		n += r.transport.Inbox().Len()
	}
	return n
}

func (s *session) checkInvariants() {
	s.t.Helper()
	for _, r := range s.peers {
		if err := r.world.CheckInvariants(); err != nil {
			s.t.Fatalf("%s invariants: %v", r.id, err)
		}
	}
}
