package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/pixil98/go-possess/internal/storage"
	"golang.org/x/crypto/ssh"
)

// SshListener serves operator sessions over ssh. The login name picks the
// controller the session drives.
type SshListener struct {
	addr   string
	cm     *ConnectionManager
	config *ssh.ServerConfig
}

func NewSshListener(addr string, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	config := &ssh.ServerConfig{
		NoClientAuth:  true,
		ServerVersion: "SSH-2.0-possessd",
	}
	config.AddHostKey(hostKey)

	return &SshListener{
		addr:   addr,
		cm:     cm,
		config: config,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}

	slog.InfoContext(ctx, "listening for ssh", "addr", ln.Addr())
	return l.serve(ctx, ln)
}

func (l *SshListener) serve(ctx context.Context, ln net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	defer func() {
		cancelConns()
		wg.Wait()
	}()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handleConnection(connCtx, conn)
		}()
	}
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		slog.WarnContext(ctx, "ssh handshake", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sshConn.Close()

	stop := context.AfterFunc(ctx, func() { sshConn.Close() })
	defer stop()

	go ssh.DiscardRequests(reqs)

	sess := Session{
		Protocol:   "ssh",
		Remote:     conn.RemoteAddr().String(),
		Controller: storage.Identifier(sshConn.User()),
	}
	for newChan := range chans {
		l.serveChannel(ctx, newChan, sess)
	}
}

func (l *SshListener) serveChannel(ctx context.Context, newChan ssh.NewChannel, sess Session) {
	if newChan.ChannelType() != "session" {
		newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
		return
	}

	ch, requests, err := newChan.Accept()
	if err != nil {
		slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
		return
	}
	defer ch.Close()

	if !awaitShell(ctx, requests) {
		return
	}
	l.cm.AcceptConnection(ctx, newCRLFReadWriter(ch), sess)
}

// awaitShell answers channel requests and reports once a shell is granted.
// Clients only forward input after that reply.
func awaitShell(ctx context.Context, requests <-chan *ssh.Request) bool {
	ready := make(chan bool, 1)
	go func() {
		granted := false
		for req := range requests {
			// PTY is refused so the client keeps local echo and line editing.
			ok := req.Type == "shell" && !granted
			req.Reply(ok, nil)
			if ok {
				granted = true
				ready <- true
			}
		}
		if !granted {
			ready <- false
		}
	}()

	select {
	case ok := <-ready:
		return ok
	case <-ctx.Done():
		return false
	}
}
