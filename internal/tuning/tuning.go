// Package tuning loads gameplay constants from a YAML file.
package tuning

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-errors"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	StunDuration   time.Duration `yaml:"stun_duration"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// UpOffset is how far above the released entity an ejected mask reappears.
	UpOffset      float64    `yaml:"up_offset"`
	EjectImpulse  [3]float64 `yaml:"eject_impulse"`
	AnchorSlot    string     `yaml:"anchor_slot"`
	PossessRadius float64    `yaml:"possess_radius"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Ground Movement `yaml:"ground"`
	Hover  Movement `yaml:"hover"`
}

// Movement holds the smoothing constants of one movement strategy.
type Movement struct {
	Speed        float64 `yaml:"speed"`
	Acceleration float64 `yaml:"acceleration"`
	TurnRate     float64 `yaml:"turn_rate"`
	JumpImpulse  float64 `yaml:"jump_impulse"`
}

func Default() Tuning {
	return Tuning{
		StunDuration:       2 * time.Second,
		RequestTimeout:     5 * time.Second,
		UpOffset:           1.5,
		EjectImpulse:       [3]float64{0, 5, 0},
		AnchorSlot:         "MaskSlot",
		PossessRadius:      3,
		SnapshotEveryTicks: 3,
		Ground: Movement{
			Speed:        4,
			Acceleration: 10,
			TurnRate:     8,
			JumpImpulse:  5,
		},
		Hover: Movement{
			Speed:        6,
			Acceleration: 6,
			TurnRate:     10,
			JumpImpulse:  2,
		},
	}
}

// Load reads a tuning file. Keys missing from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("validating %s: %w", path, err)
	}
	return t, nil
}

func (t *Tuning) Validate() error {
	el := errors.NewErrorList()

	if t.StunDuration <= 0 {
		el.Add(fmt.Errorf("stun_duration must be positive"))
	}
	if t.RequestTimeout <= 0 {
		el.Add(fmt.Errorf("request_timeout must be positive"))
	}
	if t.AnchorSlot == "" {
		el.Add(fmt.Errorf("anchor_slot is required"))
	}
	if t.PossessRadius <= 0 {
		el.Add(fmt.Errorf("possess_radius must be positive"))
	}
	if t.SnapshotEveryTicks < 1 {
		el.Add(fmt.Errorf("snapshot_every_ticks must be at least 1"))
	}
	el.Add(t.Ground.validate("ground"))
	el.Add(t.Hover.validate("hover"))

	return el.Err()
}

// Eject returns the impulse applied to an entity when its mask is forced out.
func (t *Tuning) Eject() mgl64.Vec3 {
	return mgl64.Vec3(t.EjectImpulse)
}

func (m *Movement) validate(name string) error {
	el := errors.NewErrorList()
	if m.Speed <= 0 {
		el.Add(fmt.Errorf("%s.speed must be positive", name))
	}
	if m.Acceleration <= 0 {
		el.Add(fmt.Errorf("%s.acceleration must be positive", name))
	}
	if m.TurnRate <= 0 {
		el.Add(fmt.Errorf("%s.turn_rate must be positive", name))
	}
	return el.Err()
}
