// Package replication keeps entity transforms consistent across peers.
package replication

import (
	"sync"

	"github.com/pixil98/go-possess/internal/world"
)

// Sync marks an entity as replicated by the host. It starts enabled.
type Sync struct {
	mu      sync.RWMutex
	enabled bool
}

var _ world.TransformSync = (*Sync)(nil)

func NewSync() *Sync {
	return &Sync{enabled: true}
}

func (s *Sync) SetEnabled(e bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = e
}

func (s *Sync) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}
