package messaging

import (
	"log/slog"
	"sync"

	"github.com/pixil98/go-possess/internal/storage"
)

// Inbox queues received envelopes until the peer's tick consumes them.
// Envelopes of lossy handlers are dropped once limit envelopes are waiting;
// every other envelope is always queued, in arrival order.
type Inbox struct {
	peer  storage.Identifier
	limit int
	lossy map[HandlerId]bool
	inst  *instruments

	mu    sync.Mutex
	queue []Envelope
}

func newInbox(peer storage.Identifier, o transportOptions, inst *instruments) *Inbox {
	return &Inbox{
		peer:  peer,
		limit: o.inboxSize,
		lossy: o.lossy,
		inst:  inst,
	}
}

func (b *Inbox) push(env Envelope) {
	b.mu.Lock()
	drop := b.lossy[env.Handler] && len(b.queue) >= b.limit
	if !drop {
		b.queue = append(b.queue, env)
	}
	n := len(b.queue)
	b.mu.Unlock()

	b.inst.record(!drop, env)
	if drop {
		slog.Warn("peer inbox full, dropping envelope", "peer", b.peer, "handler", env.Handler, "sender", env.Sender)
	} else if n == b.limit+1 {
		slog.Warn("peer inbox over limit, consumer is falling behind", "peer", b.peer, "queued", n)
	}
}

// Next pops the oldest envelope without blocking.
func (b *Inbox) Next() (Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return Envelope{}, false
	}
	env := b.queue[0]
	b.queue[0] = Envelope{}
	b.queue = b.queue[1:]
	return env, true
}

// Len is the number of envelopes waiting.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
