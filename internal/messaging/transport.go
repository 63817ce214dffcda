package messaging

import (
	"errors"

	"github.com/pixil98/go-possess/internal/storage"
)

const DefaultInboxSize = 256

var (
	ErrNotAuthority = errors.New("only the authoritative peer may broadcast")
	ErrNoAuthority  = errors.New("authoritative peer not connected")
	ErrClosed       = errors.New("transport closed")
)

// Transport is a peer's view of the session channel. Commands go from any
// peer to the authoritative peer; broadcasts go from the authoritative peer to
// every peer, itself included, in the order they were issued. Received
// envelopes are queued on the Inbox and consumed by the peer's tick.
type Transport interface {
	Peer() storage.Identifier
	SendCommand(handler HandlerId, payload any) error
	Broadcast(handler HandlerId, payload any) error
	Inbox() *Inbox
	Open() error
	Close()
}

// TransportOpt configures a transport.
type TransportOpt func(*transportOptions)

type transportOptions struct {
	inboxSize int
	lossy     map[HandlerId]bool
}

func defaultTransportOptions(opts []TransportOpt) transportOptions {
	o := transportOptions{inboxSize: DefaultInboxSize, lossy: map[HandlerId]bool{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithInboxSize sets how many undelivered envelopes a peer holds before it
// starts dropping lossy ones.
func WithInboxSize(n int) TransportOpt {
	return func(o *transportOptions) {
		if n > 0 {
			o.inboxSize = n
		}
	}
}

// WithLossy marks handlers whose envelopes may be dropped when the inbox is
// over its size. Envelopes of other handlers are never dropped.
func WithLossy(handlers ...HandlerId) TransportOpt {
	return func(o *transportOptions) {
		for _, h := range handlers {
			o.lossy[h] = true
		}
	}
}
