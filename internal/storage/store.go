package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Storer gives read access to loaded scene assets.
type Storer[T ValidatingSpec] interface {
	Get(Identifier) T
	GetAll() map[Identifier]T
	Ids() []Identifier
}

// FileStore loads every *.json asset under a directory tree. Scene assets are
// authored offline, so the store is read-only at runtime.
type FileStore[T ValidatingSpec] struct {
	path    string
	records map[Identifier]T

	mu sync.RWMutex
}

func NewFileStore[T ValidatingSpec](path string) (*FileStore[T], error) {
	s := &FileStore[T]{
		path:    path,
		records: map[Identifier]T{},
	}

	err := s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore[T]) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = map[Identifier]T{}

	return filepath.Walk(s.path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		asset, err := s.loadAsset(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}

		err = asset.Validate()
		if err != nil {
			return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
		}

		if _, ok := s.records[asset.Id()]; ok {
			return fmt.Errorf("duplicate key detected: %s", asset.Id())
		}

		s.records[asset.Id()] = asset.Spec
		return nil
	})
}

// Get returns the asset with the given id, or the zero value if it is unknown.
func (s *FileStore[T]) Get(id Identifier) T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[id]
}

func (s *FileStore[T]) GetAll() map[Identifier]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals := make(map[Identifier]T, len(s.records))
	for id, v := range s.records {
		vals[id] = v
	}

	return vals
}

// Ids returns the loaded ids in sorted order so scenes build deterministically.
func (s *FileStore[T]) Ids() []Identifier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]Identifier, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (s *FileStore[T]) loadAsset(path string) (*Asset[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	jsonData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	asset := &Asset[T]{}
	err = json.Unmarshal(jsonData, asset)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}

	return asset, nil
}
