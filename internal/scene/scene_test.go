package scene

import (
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/physics"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-testutil"
)

type memStore[T storage.ValidatingSpec] map[storage.Identifier]T

func (m memStore[T]) Get(id storage.Identifier) T { return m[id] }

func (m memStore[T]) GetAll() map[storage.Identifier]T { return m }

func (m memStore[T]) Ids() []storage.Identifier {
	ids := make([]storage.Identifier, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestBuild(t *testing.T) {
	entities := memStore[*EntitySpec]{
		"crate": {Name: "Crate", Position: [3]float64{1, 0, 0}, Mass: 2, AnchorOffset: [3]float64{0, 1, 0}},
		"drone": {Name: "Drone", Movement: "hover"},
	}
	controllers := memStore[*ControllerSpec]{
		"mask-a": {Name: "Mask A", Peer: "a", Position: [3]float64{0, 2, 0}},
		"mask-b": {Name: "Mask B", Peer: "b"},
	}

	w, err := Build("a", "host", entities, controllers, tuning.Default())
	testutil.AssertEqual(t, "error", err, nil)
	testutil.AssertEqual(t, "host", w.Host(), storage.Identifier("host"))

	crate := w.Entity("crate")
	testutil.AssertEqual(t, "name", crate.Name, "Crate")
	testutil.AssertEqual(t, "owner", crate.Owner, storage.Identifier("host"))
	testutil.AssertEqual(t, "anchor", crate.Anchor.WorldPosition(), mgl64.Vec3{1, 1, 0})
	testutil.AssertEqual(t, "anchor name", crate.Anchor == crate.Transform.Child(anchorSlot()), true)
	testutil.AssertEqual(t, "mass", crate.Body.(*physics.SimBody).Mass(), 2.0)
	testutil.AssertEqual(t, "sync", crate.Sync.Enabled(), true)
	testutil.AssertEqual(t, "not controlled", crate.Behavior.Controlled(), false)

	a := w.Controller("mask-a")
	testutil.AssertEqual(t, "local", a.IsLocalAuthority, true)
	testutil.AssertEqual(t, "peer", a.Peer, storage.Identifier("a"))
	testutil.AssertEqual(t, "hovering", a.Body.GravityEnabled(), false)
	testutil.AssertEqual(t, "frozen", a.Body.RotationFrozen(), true)
	testutil.AssertEqual(t, "self driven", a.Behavior.Controlled(), true)
	testutil.AssertEqual(t, "remote", w.Controller("mask-b").IsLocalAuthority, false)

	testutil.AssertEqual(t, "invariants", w.CheckInvariants(), nil)
}

func anchorSlot() string {
	return tuning.Default().AnchorSlot
}

func TestSpecValidate(t *testing.T) {
	tests := map[string]struct {
		spec   storage.ValidatingSpec
		expErr string
	}{
		"entity valid": {
			spec: &EntitySpec{Name: "Crate"},
		},
		"entity missing name": {
			spec:   &EntitySpec{},
			expErr: "name must be set",
		},
		"entity bad movement": {
			spec:   &EntitySpec{Name: "Crate", Movement: "swim"},
			expErr: `unknown movement "swim"`,
		},
		"entity negative mass": {
			spec:   &EntitySpec{Name: "Crate", Mass: -1},
			expErr: "mass must not be negative",
		},
		"controller missing peer": {
			spec:   &ControllerSpec{Name: "Mask"},
			expErr: "peer must be set",
		},
		"controller nil": {
			spec:   (*ControllerSpec)(nil),
			expErr: "spec must be set",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.expErr == "" {
				testutil.AssertEqual(t, "error", err, nil)
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
