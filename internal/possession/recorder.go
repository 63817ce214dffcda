package possession

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/storage"
)

type TransitionKind string

const (
	TransitionGranted  TransitionKind = "granted"
	TransitionRejected TransitionKind = "rejected"
	TransitionReleased TransitionKind = "released"
)

// Transition is one decision taken by the authoritative peer.
type Transition struct {
	Kind       TransitionKind
	Controller storage.Identifier
	Entity     storage.Identifier
	Peer       storage.Identifier
	Impulse    mgl64.Vec3
	Reason     string
}

// Recorder persists authoritative transitions.
type Recorder interface {
	Record(ctx context.Context, tr Transition) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Transition) error { return nil }
