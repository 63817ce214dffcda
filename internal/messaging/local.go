package messaging

import (
	"fmt"
	"sync"

	"github.com/pixil98/go-possess/internal/storage"
)

// LocalHub connects peers living in the same process through channels.
type LocalHub struct {
	mu    sync.RWMutex
	host  storage.Identifier
	peers []*LocalTransport
	opts  transportOptions
	inst  *instruments
}

func NewLocalHub(host storage.Identifier, opts ...TransportOpt) (*LocalHub, error) {
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}
	return &LocalHub{
		host: host,
		opts: defaultTransportOptions(opts),
		inst: inst,
	}, nil
}

// Join attaches a peer to the hub.
func (h *LocalHub) Join(peer storage.Identifier) (*LocalTransport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.peers {
		if p.peer == peer {
			return nil, fmt.Errorf("peer %s already joined", peer)
		}
	}

	t := &LocalTransport{
		hub:   h,
		peer:  peer,
		inbox: newInbox(peer, h.opts, h.inst),
	}
	h.peers = append(h.peers, t)
	return t, nil
}

func (h *LocalHub) leave(t *LocalTransport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, p := range h.peers {
		if p == t {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return
		}
	}
}

func (h *LocalHub) toHost(env Envelope) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.peers {
		if p.peer == h.host {
			p.inbox.push(env)
			return nil
		}
	}
	return ErrNoAuthority
}

func (h *LocalHub) toAll(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.peers {
		p.inbox.push(env)
	}
}

// LocalTransport is one peer's end of a LocalHub.
type LocalTransport struct {
	hub   *LocalHub
	peer  storage.Identifier
	inbox *Inbox

	mu     sync.Mutex
	seq    uint64
	closed bool
}

var _ Transport = (*LocalTransport)(nil)

func (t *LocalTransport) Peer() storage.Identifier { return t.peer }

func (t *LocalTransport) Inbox() *Inbox { return t.inbox }

func (t *LocalTransport) Open() error { return nil }

// Close detaches the peer from the hub. Its inbox stays readable.
func (t *LocalTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.hub.leave(t)
}

func (t *LocalTransport) envelope(handler HandlerId, payload any) (Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Envelope{}, ErrClosed
	}
	t.seq++
	return NewEnvelope(handler, t.peer, t.seq, payload)
}

func (t *LocalTransport) SendCommand(handler HandlerId, payload any) error {
	env, err := t.envelope(handler, payload)
	if err != nil {
		return err
	}
	return t.hub.toHost(env)
}

func (t *LocalTransport) Broadcast(handler HandlerId, payload any) error {
	if t.peer != t.hub.host {
		return ErrNotAuthority
	}
	env, err := t.envelope(handler, payload)
	if err != nil {
		return err
	}
	t.hub.toAll(env)
	return nil
}
