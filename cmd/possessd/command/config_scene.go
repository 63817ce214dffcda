package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-possess/internal/scene"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/tuning"
	"github.com/pixil98/go-possess/internal/world"
)

type SceneConfig struct {
	Entities    AssetConfig[*scene.EntitySpec]     `json:"entities"`
	Controllers AssetConfig[*scene.ControllerSpec] `json:"controllers"`
}

func (c *SceneConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Entities.Validate("entities"))
	el.Add(c.Controllers.Validate("controllers"))
	return el.Err()
}

func (c *SceneConfig) BuildWorld(p *PeerConfig, t tuning.Tuning) (*world.World, error) {
	entities, err := c.Entities.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating entity store: %w", err)
	}
	controllers, err := c.Controllers.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating controller store: %w", err)
	}

	w, err := scene.Build(p.self(), p.host(), entities, controllers, t)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	if len(w.LocalControllers()) == 0 {
		return nil, fmt.Errorf("no controller belongs to peer %s", p.Id)
	}

	return w, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
