package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-testutil"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing tuning: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	testutil.AssertEqual(t, "eject", d.Eject(), mgl64.Vec3{0, 5, 0})
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
stun_duration: 3s
eject_impulse: [1, 6, 0]
ground:
  speed: 9
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "stun", got.StunDuration, 3*time.Second)
	testutil.AssertEqual(t, "eject", got.Eject(), mgl64.Vec3{1, 6, 0})
	testutil.AssertEqual(t, "ground speed", got.Ground.Speed, 9.0)
	testutil.AssertEqual(t, "ground accel kept", got.Ground.Acceleration, Default().Ground.Acceleration)
	testutil.AssertEqual(t, "anchor kept", got.AnchorSlot, "MaskSlot")
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]struct {
		body   string
		expErr string
	}{
		"bad yaml": {
			body:   "stun_duration: [",
			expErr: "parsing",
		},
		"bad duration": {
			body:   "stun_duration: soon",
			expErr: "parsing",
		},
		"zero stun": {
			body:   "stun_duration: 0s",
			expErr: "stun_duration must be positive",
		},
		"zero request timeout": {
			body:   "request_timeout: 0s",
			expErr: "request_timeout must be positive",
		},
		"negative request timeout": {
			body:   "request_timeout: -1s",
			expErr: "request_timeout must be positive",
		},
		"empty anchor": {
			body:   `anchor_slot: ""`,
			expErr: "anchor_slot is required",
		},
		"bad hover": {
			body:   "hover:\n  speed: -1",
			expErr: "hover.speed must be positive",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	testutil.AssertErrorContains(t, err, "reading tuning")
}
