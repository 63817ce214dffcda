package movement

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
	"github.com/pixil98/go-testutil"
)

const tick = 20 * time.Millisecond

func TestPlanarDirection(t *testing.T) {
	tests := map[string]struct {
		in  world.MovementInput
		exp mgl64.Vec3
	}{
		"forward along default view": {
			in:  world.MovementInput{AxisV: 1},
			exp: mgl64.Vec3{0, 0, 1},
		},
		"right along default view": {
			in:  world.MovementInput{AxisH: 1, CameraForward: mgl64.Vec3{0, 0, 1}},
			exp: mgl64.Vec3{1, 0, 0},
		},
		"camera pitch is flattened": {
			in:  world.MovementInput{AxisV: 1, CameraForward: mgl64.Vec3{1, -1, 0}},
			exp: mgl64.Vec3{1, 0, 0},
		},
		"camera facing left": {
			in:  world.MovementInput{AxisV: 1, CameraForward: mgl64.Vec3{-1, 0, 0}},
			exp: mgl64.Vec3{-1, 0, 0},
		},
		"no input": {
			in:  world.MovementInput{CameraForward: mgl64.Vec3{0, 0, 1}},
			exp: mgl64.Vec3{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := PlanarDirection(tt.in)
			if !got.ApproxEqualThreshold(tt.exp, 1e-9) {
				t.Errorf("got %v, expected %v", got, tt.exp)
			}
		})
	}
}

func TestPlanarDirection_DiagonalClamped(t *testing.T) {
	got := PlanarDirection(world.MovementInput{AxisH: 1, AxisV: 1})
	if math.Abs(got.Len()-1) > 1e-9 {
		t.Errorf("diagonal length = %v, expected 1", got.Len())
	}
}

func TestControllable_IgnoresInputUntilPossessed(t *testing.T) {
	tr := world.NewTransform("crate", mgl64.Vec3{})
	c := NewControllable(tr, &Ground{Tuning: tuning.Default().Ground})

	c.ConsumeMovementInput(world.MovementInput{AxisV: 1}, tick)
	testutil.AssertEqual(t, "unmoved", tr.LocalPosition, mgl64.Vec3{})
	testutil.AssertEqual(t, "controlled", c.Controlled(), false)

	c.OnPossessed()
	c.ConsumeMovementInput(world.MovementInput{AxisV: 1}, tick)
	if tr.LocalPosition[2] <= 0 {
		t.Errorf("expected forward motion, got %v", tr.LocalPosition)
	}
	testutil.AssertEqual(t, "latched", c.Latched().AxisV, 1.0)

	c.OnUnpossessed()
	testutil.AssertEqual(t, "latched cleared", c.Latched(), world.MovementInput{})
	testutil.AssertEqual(t, "velocity cleared", c.Velocity(), mgl64.Vec3{})
}

func TestGround_SmoothsTowardTargetSpeed(t *testing.T) {
	tun := tuning.Default().Ground
	tr := world.NewTransform("crate", mgl64.Vec3{})
	c := NewSelfControlled(tr, &Ground{Tuning: tun})

	c.ConsumeMovementInput(world.MovementInput{AxisV: 1}, tick)
	first := c.Velocity().Len()
	if first <= 0 || first >= tun.Speed {
		t.Fatalf("first step speed %v should be between 0 and %v", first, tun.Speed)
	}

	for i := 0; i < 200; i++ {
		c.ConsumeMovementInput(world.MovementInput{AxisV: 1}, tick)
	}
	if math.Abs(c.Velocity().Len()-tun.Speed) > 1e-3 {
		t.Errorf("speed %v did not converge to %v", c.Velocity().Len(), tun.Speed)
	}
}

func TestGround_TurnsGraduallyTowardHeading(t *testing.T) {
	tr := world.NewTransform("crate", mgl64.Vec3{})
	c := NewSelfControlled(tr, &Ground{Tuning: tuning.Default().Ground})

	in := world.MovementInput{AxisH: 1, CameraForward: mgl64.Vec3{0, 0, 1}}
	c.ConsumeMovementInput(in, tick)

	facing := tr.LocalRotation.Rotate(mgl64.Vec3{0, 0, 1})
	if facing.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-3) {
		t.Fatal("rotation snapped to heading in one step")
	}
	if facing[0] <= 0 {
		t.Fatalf("expected rotation toward +x, facing %v", facing)
	}

	for i := 0; i < 300; i++ {
		c.ConsumeMovementInput(in, tick)
	}
	facing = tr.LocalRotation.Rotate(mgl64.Vec3{0, 0, 1})
	if !facing.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-3) {
		t.Errorf("facing %v did not converge to +x", facing)
	}
}

func TestGround_JumpOnlyWhenGrounded(t *testing.T) {
	tr := world.NewTransform("crate", mgl64.Vec3{})
	c := NewSelfControlled(tr, &Ground{Tuning: tuning.Default().Ground})

	c.ConsumeMovementInput(world.MovementInput{Jump: true}, tick)
	if tr.LocalPosition[1] <= 0 {
		t.Fatalf("expected to leave the ground, at %v", tr.LocalPosition)
	}
	vy := c.Velocity()[1]

	c.ConsumeMovementInput(world.MovementInput{Jump: true}, tick)
	if c.Velocity()[1] >= vy {
		t.Errorf("airborne jump added lift: %v -> %v", vy, c.Velocity()[1])
	}
}

func TestHover_RisesOnJump(t *testing.T) {
	tr := world.NewTransform("mask", mgl64.Vec3{0, 1, 0})
	c := NewSelfControlled(tr, &Hover{Tuning: tuning.Default().Hover})

	c.ConsumeMovementInput(world.MovementInput{Jump: true}, tick)
	if tr.LocalPosition[1] <= 1 {
		t.Errorf("expected hover to rise, at %v", tr.LocalPosition)
	}

	for i := 0; i < 100; i++ {
		c.ConsumeMovementInput(world.MovementInput{}, tick)
	}
	if math.Abs(c.Velocity()[1]) > 1e-3 {
		t.Errorf("hover kept vertical speed %v without input", c.Velocity()[1])
	}
}

func TestForName(t *testing.T) {
	tun := tuning.Default()

	s, ok := ForName("hover", tun)
	testutil.AssertEqual(t, "hover found", ok, true)
	testutil.AssertEqual(t, "hover name", s.Name(), "hover")

	s, ok = ForName("", tun)
	testutil.AssertEqual(t, "default found", ok, true)
	testutil.AssertEqual(t, "default name", s.Name(), "ground")

	_, ok = ForName("teleport", tun)
	testutil.AssertEqual(t, "unknown", ok, false)
}
