package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-possess/internal/tuning"
)

type TuningConfig struct {
	Path string `json:"path"`
}

func (c *TuningConfig) validate() error {
	if c.Path == "" {
		return nil
	}
	if _, err := os.Stat(c.Path); err != nil {
		return fmt.Errorf("tuning: invalid path %q: %w", c.Path, err)
	}
	return nil
}

// Load returns the defaults when no tuning file is configured.
func (c *TuningConfig) Load() (tuning.Tuning, error) {
	if c.Path == "" {
		return tuning.Default(), nil
	}
	return tuning.Load(c.Path)
}
