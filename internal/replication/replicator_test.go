package replication

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
	"github.com/pixil98/go-testutil"
)

type peer struct {
	world      *world.World
	transport  *messaging.LocalTransport
	replicator *Replicator
	router     *messaging.Router
}

func newPeers(t *testing.T, ids ...storage.Identifier) map[storage.Identifier]*peer {
	t.Helper()
	hub, err := messaging.NewLocalHub(ids[0])
	if err != nil {
		t.Fatalf("creating hub: %v", err)
	}

	peers := map[storage.Identifier]*peer{}
	for _, id := range ids {
		w := world.NewWorld(ids[0])
		err := w.AddEntity(&world.Entity{
			Id:        "crate",
			Transform: world.NewTransform("crate", mgl64.Vec3{}),
			Sync:      NewSync(),
		})
		if err != nil {
			t.Fatalf("adding entity: %v", err)
		}

		tr, err := hub.Join(id)
		if err != nil {
			t.Fatalf("joining: %v", err)
		}
		p := &peer{world: w, transport: tr, replicator: NewReplicator(w, tr, 1), router: messaging.NewRouter()}
		p.replicator.Register(p.router)
		peers[id] = p
	}
	return peers
}

func deliver(t *testing.T, peers map[storage.Identifier]*peer) {
	t.Helper()
	for progressed := true; progressed; {
		progressed = false
		for _, p := range peers {
			for {
				env, ok := p.transport.Inbox().Next()
				if !ok {
					break
				}
				progressed = true
				if err := p.router.Dispatch(context.Background(), env); err != nil {
					t.Fatalf("dispatch: %v", err)
				}
			}
		}
	}
}

func possessBy(peers map[storage.Identifier]*peer, owner storage.Identifier) {
	for _, p := range peers {
		e := p.world.Entity("crate")
		e.Locked = true
		e.Owner = owner
		e.Sync.SetEnabled(false)
	}
}

func TestReplicator_HostPublishesFreeEntities(t *testing.T) {
	ctx := context.Background()
	peers := newPeers(t, "host", "a")

	peers["host"].world.Entity("crate").Transform.LocalPosition = mgl64.Vec3{1, 0, 2}
	testutil.AssertEqual(t, "tick", peers["host"].replicator.Tick(ctx), nil)
	testutil.AssertEqual(t, "client tick", peers["a"].replicator.Tick(ctx), nil)
	deliver(t, peers)

	testutil.AssertEqual(t, "replicated", peers["a"].world.Entity("crate").Transform.WorldPosition(), mgl64.Vec3{1, 0, 2})
}

func TestReplicator_OwnerDrivesPossessedEntity(t *testing.T) {
	ctx := context.Background()
	peers := newPeers(t, "host", "a", "b")
	possessBy(peers, "a")

	peers["a"].world.Entity("crate").Transform.LocalPosition = mgl64.Vec3{3, 0, 0}
	testutil.AssertEqual(t, "host tick", peers["host"].replicator.Tick(ctx), nil)
	testutil.AssertEqual(t, "host quiet", peers["a"].transport.Inbox().Len(), 0)

	testutil.AssertEqual(t, "owner tick", peers["a"].replicator.Tick(ctx), nil)
	deliver(t, peers)

	for id, p := range peers {
		testutil.AssertEqual(t, string(id)+" position", p.world.Entity("crate").Transform.WorldPosition(), mgl64.Vec3{3, 0, 0})
	}
}

func TestReplicator_RejectsNonOwner(t *testing.T) {
	peers := newPeers(t, "host", "a", "b")
	possessBy(peers, "a")

	forged := Snapshot{Entities: []EntityTransform{{Id: "crate", Position: [3]float64{9, 9, 9}, Rotation: [4]float64{1, 0, 0, 0}}}}
	testutil.AssertEqual(t, "send", peers["b"].transport.SendCommand(HandlerTransformUpdate, forged), nil)
	deliver(t, peers)

	for id, p := range peers {
		testutil.AssertEqual(t, string(id)+" untouched", p.world.Entity("crate").Transform.WorldPosition(), mgl64.Vec3{})
	}
}

func TestReplicator_DiscardsNonFiniteTransforms(t *testing.T) {
	ctx := context.Background()
	peers := newPeers(t, "host", "a", "b")
	possessBy(peers, "a")

	tests := map[string]EntityTransform{
		"nan position": {Id: "crate", Position: [3]float64{math.NaN(), 0, 0}, Rotation: [4]float64{1, 0, 0, 0}},
		"inf position": {Id: "crate", Position: [3]float64{0, math.Inf(1), 0}, Rotation: [4]float64{1, 0, 0, 0}},
		"nan rotation": {Id: "crate", Position: [3]float64{1, 0, 0}, Rotation: [4]float64{math.NaN(), 0, 0, 0}},
	}

	for name, et := range tests {
		t.Run(name, func(t *testing.T) {
			err := peers["host"].replicator.onUpdate(ctx, "a", Snapshot{Entities: []EntityTransform{et}})
			testutil.AssertEqual(t, "update", err, nil)
			testutil.AssertEqual(t, "nothing relayed", peers["b"].transport.Inbox().Len(), 0)

			peers["b"].replicator.onSnapshot("host", Snapshot{Entities: []EntityTransform{et}})
			for id, p := range peers {
				testutil.AssertEqual(t, string(id)+" untouched", p.world.Entity("crate").Transform.WorldPosition(), mgl64.Vec3{})
			}
		})
	}
}
