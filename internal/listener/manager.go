package listener

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/pixil98/go-possess/internal/storage"
)

// Session describes the operator on the other end of a connection.
type Session struct {
	Protocol string
	Remote   string
	// Controller is the controller the operator asked to drive, empty when
	// the protocol carries no identity.
	Controller storage.Identifier
}

// SessionRunner serves one interactive session over a connection.
type SessionRunner interface {
	RunSession(ctx context.Context, rw io.ReadWriter, sess Session) error
}

type ManagerOpt func(*ConnectionManager)

// WithMaxSessions refuses connections once n sessions are running. Zero
// means no limit.
func WithMaxSessions(n int) ManagerOpt {
	return func(m *ConnectionManager) {
		m.maxSessions = int64(n)
	}
}

type ConnectionManager struct {
	runner      SessionRunner
	maxSessions int64
	active      atomic.Int64
}

func NewConnectionManager(r SessionRunner, opts ...ManagerOpt) *ConnectionManager {
	m := &ConnectionManager{
		runner: r,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the number of sessions currently running.
func (m *ConnectionManager) Active() int64 {
	return m.active.Load()
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter, sess Session) {
	log := slog.With("protocol", sess.Protocol, "remote", sess.Remote)
	if sess.Controller != "" {
		log = log.With("controller", sess.Controller)
	}

	n := m.active.Add(1)
	defer m.active.Add(-1)

	if m.maxSessions > 0 && n > m.maxSessions {
		log.WarnContext(ctx, "refusing console session", "sessions", n-1, "max", m.maxSessions)
		if _, err := io.WriteString(conn, "Too many operator sessions, try again later.\n"); err != nil {
			log.WarnContext(ctx, "writing refusal", "error", err)
		}
		return
	}

	log.InfoContext(ctx, "console session opened", "sessions", n)
	if err := m.runner.RunSession(ctx, conn, sess); err != nil {
		log.WarnContext(ctx, "console session", "error", err)
	}
	log.InfoContext(ctx, "console session closed")
}
