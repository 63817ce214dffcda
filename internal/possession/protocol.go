package possession

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/storage"
)

// Commands travel from a peer to the authority; the rest are broadcasts.
const (
	HandlerPossess           messaging.HandlerId = "possess"
	HandlerUnpossess         messaging.HandlerId = "unpossess"
	HandlerPeerLeft          messaging.HandlerId = "peer-left"
	HandlerPossessGranted    messaging.HandlerId = "possess-granted"
	HandlerPossessRejected   messaging.HandlerId = "possess-rejected"
	HandlerUnpossessReleased messaging.HandlerId = "unpossess-released"
)

type PossessCommand struct {
	ControllerId storage.Identifier `msgpack:"controller_id"`
	TargetId     storage.Identifier `msgpack:"target_id"`
}

type PossessGranted struct {
	ControllerId storage.Identifier `msgpack:"controller_id"`
	TargetId     storage.Identifier `msgpack:"target_id"`
	Owner        storage.Identifier `msgpack:"owner"`
}

type PossessRejected struct {
	ControllerId storage.Identifier `msgpack:"controller_id"`
	TargetId     storage.Identifier `msgpack:"target_id"`
	Reason       string             `msgpack:"reason"`
}

type UnpossessCommand struct {
	ControllerId storage.Identifier `msgpack:"controller_id"`
	Impulse      [3]float64         `msgpack:"impulse"`
}

type UnpossessReleased struct {
	ControllerId storage.Identifier `msgpack:"controller_id"`
	TargetId     storage.Identifier `msgpack:"target_id"`
	Impulse      [3]float64         `msgpack:"impulse"`
}

// PeerLeft is sent by a peer that is shutting down.
type PeerLeft struct {
	Peer storage.Identifier `msgpack:"peer"`
}

func toWire(v mgl64.Vec3) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}

func fromWire(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}
