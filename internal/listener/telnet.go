package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"

	"github.com/iammegalith/telnet"
)

type TelnetListener struct {
	addr string
	cm   *ConnectionManager
}

func NewTelnetListener(addr string, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		addr: addr,
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("address %s is already in use (another peer running?)", l.addr)
		}
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}

	slog.InfoContext(ctx, "listening for telnet", "addr", ln.Addr())
	return l.serve(ctx, ln)
}

// serve accepts telnet sessions on ln until ctx is done, then closes every
// open session and waits for them to finish.
func (l *TelnetListener) serve(ctx context.Context, ln net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	h := &telnetHandler{cm: l.cm, ctx: connCtx}
	defer func() {
		cancelConns()
		h.wg.Wait()
	}()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	err := telnet.NewServer(ln.Addr().String(), h).Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("serving telnet on %s: %w", ln.Addr(), err)
}

type telnetHandler struct {
	cm  *ConnectionManager
	ctx context.Context
	wg  sync.WaitGroup
}

// HandleTelnet runs one session. The server closes conn once this returns.
func (h *telnetHandler) HandleTelnet(conn *telnet.Connection) {
	h.wg.Add(1)
	defer h.wg.Done()

	// Unblocks the session's reads on shutdown.
	stop := context.AfterFunc(h.ctx, func() { conn.Close() })
	defer stop()

	h.cm.AcceptConnection(h.ctx, conn, Session{
		Protocol: "telnet",
		Remote:   conn.RemoteAddr().String(),
	})
}
