package messaging

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// HandlerId names the handler an envelope is dispatched to.
type HandlerId string

// Envelope is the unit carried by every transport.
type Envelope struct {
	Id      string             `msgpack:"id"`
	Handler HandlerId          `msgpack:"handler"`
	Sender  storage.Identifier `msgpack:"sender"`
	Seq     uint64             `msgpack:"seq"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// NewEnvelope encodes payload for handler.
func NewEnvelope(handler HandlerId, sender storage.Identifier, seq uint64, payload any) (Envelope, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", handler, err)
	}
	return Envelope{
		Id:      uuid.NewString(),
		Handler: handler,
		Sender:  sender,
		Seq:     seq,
		Payload: b,
	}, nil
}

// Decode unpacks the payload into out.
func (e Envelope) Decode(out any) error {
	if err := msgpack.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Handler, err)
	}
	return nil
}

// Marshal encodes the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	return msgpack.Marshal(&e)
}

// UnmarshalEnvelope decodes an envelope read from the wire.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if e.Handler == "" {
		return Envelope{}, fmt.Errorf("decoding envelope: missing handler")
	}
	return e, nil
}
