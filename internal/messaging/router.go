package messaging

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc consumes one inbound envelope.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Router dispatches envelopes to the handler registered for their HandlerId.
type Router struct {
	mu       sync.RWMutex
	handlers map[HandlerId]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[HandlerId]HandlerFunc)}
}

// Handle registers fn for id, replacing any previous handler.
func (r *Router) Handle(id HandlerId, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = fn
}

func (r *Router) Dispatch(ctx context.Context, env Envelope) error {
	r.mu.RLock()
	fn, ok := r.handlers[env.Handler]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler registered for %q", env.Handler)
	}
	return fn(ctx, env)
}
