package messaging

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pixil98/go-possess/internal/storage"
)

// Bus is a subject based publish/subscribe connection. Subscriptions accept
// NATS wildcards and the handler is told the concrete subject.
type Bus interface {
	Subscribe(subject string, handler func(subject string, data []byte)) (unsubscribe func(), err error)
	Publish(subject string, data []byte) error
}

// NatsTransport carries a session over NATS subjects: each peer sends
// commands on possess.<session>.cmd.<peer> and the authority broadcasts on
// possess.<session>.bcast. The authority takes a command's sender from its
// subject, so the bus must only let a peer publish on its own command subject.
type NatsTransport struct {
	bus           Bus
	session       string
	peer          storage.Identifier
	authoritative bool
	inbox         *Inbox

	mu     sync.Mutex
	seq    uint64
	unsubs []func()
	open   bool
}

var _ Transport = (*NatsTransport)(nil)

func NewNatsTransport(bus Bus, session string, peer storage.Identifier, authoritative bool, opts ...TransportOpt) (*NatsTransport, error) {
	if session == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if !validToken(session) {
		return nil, fmt.Errorf("session name %q is not a subject token", session)
	}
	if !validToken(string(peer)) {
		return nil, fmt.Errorf("peer id %q is not a subject token", peer)
	}
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}
	o := defaultTransportOptions(opts)
	return &NatsTransport{
		bus:           bus,
		session:       session,
		peer:          peer,
		authoritative: authoritative,
		inbox:         newInbox(peer, o, inst),
	}, nil
}

func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

func (t *NatsTransport) commandPrefix() string {
	return fmt.Sprintf("possess.%s.cmd.", t.session)
}

func (t *NatsTransport) commandSubject() string {
	return t.commandPrefix() + string(t.peer)
}

func (t *NatsTransport) broadcastSubject() string {
	return fmt.Sprintf("possess.%s.bcast", t.session)
}

func (t *NatsTransport) Peer() storage.Identifier { return t.peer }

func (t *NatsTransport) Inbox() *Inbox { return t.inbox }

// Open subscribes to the broadcast subject, and to the command subject when
// this peer is authoritative.
func (t *NatsTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open {
		return nil
	}

	subjects := map[string]func(string, []byte){
		t.broadcastSubject(): t.receiveBroadcast,
	}
	if t.authoritative {
		subjects[t.commandPrefix()+"*"] = t.receiveCommand
	}

	for subject, handler := range subjects {
		unsub, err := t.bus.Subscribe(subject, handler)
		if err != nil {
			t.unsubscribeLocked()
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		t.unsubs = append(t.unsubs, unsub)
	}
	t.open = true
	return nil
}

func (t *NatsTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.unsubscribeLocked()
	t.open = false
}

func (t *NatsTransport) unsubscribeLocked() {
	for _, unsub := range t.unsubs {
		unsub()
	}
	t.unsubs = nil
}

func (t *NatsTransport) publish(subject string, handler HandlerId, payload any) error {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return ErrClosed
	}
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	env, err := NewEnvelope(handler, t.peer, seq, payload)
	if err != nil {
		return err
	}
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	if err := t.bus.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", handler, err)
	}
	return nil
}

func (t *NatsTransport) SendCommand(handler HandlerId, payload any) error {
	return t.publish(t.commandSubject(), handler, payload)
}

func (t *NatsTransport) Broadcast(handler HandlerId, payload any) error {
	if !t.authoritative {
		return ErrNotAuthority
	}
	return t.publish(t.broadcastSubject(), handler, payload)
}

func (t *NatsTransport) decode(data []byte) (Envelope, bool) {
	env, err := UnmarshalEnvelope(data)
	if err != nil {
		slog.Warn("discarding malformed envelope", "peer", t.peer, "error", err)
		return Envelope{}, false
	}
	return env, true
}

func (t *NatsTransport) receiveBroadcast(_ string, data []byte) {
	if env, ok := t.decode(data); ok {
		t.inbox.push(env)
	}
}

// receiveCommand accepts a command only when its sender matches the subject
// it was published on.
func (t *NatsTransport) receiveCommand(subject string, data []byte) {
	env, ok := t.decode(data)
	if !ok {
		return
	}
	from := storage.Identifier(strings.TrimPrefix(subject, t.commandPrefix()))
	if env.Sender != from {
		slog.Warn("discarding command with forged sender", "peer", t.peer, "subject", subject, "sender", env.Sender, "handler", env.Handler)
		return
	}
	t.inbox.push(env)
}
