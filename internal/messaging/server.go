package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// natsConn is the client side shared by the embedded server and the remote client.
type natsConn struct {
	mu    sync.RWMutex
	conn  *nats.Conn
	ready chan struct{}
}

func (c *natsConn) init() {
	c.ready = make(chan struct{})
}

func (c *natsConn) setConn(conn *nats.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	close(c.ready)
}

func (c *natsConn) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Ready is closed once the connection can publish and subscribe.
func (c *natsConn) Ready() <-chan struct{} {
	return c.ready
}

// Subscribe creates a subscription on the given subject.
// The handler is called for each message received.
// Returns an unsubscribe function to remove the subscription.
func (c *natsConn) Subscribe(subject string, handler func(subject string, data []byte)) (func(), error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return nil, fmt.Errorf("nats connection not ready")
	}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Publish sends a message to the given subject
func (c *natsConn) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("nats connection not ready")
	}
	return conn.Publish(subject, data)
}

// NatsServer runs an embedded NATS server for the authoritative peer and
// holds an internal client connection to it.
type NatsServer struct {
	natsConn
	ns *server.Server

	startupTimeout time.Duration
	host           string
	port           int
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	s := &NatsServer{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
		port:           4222,
	}

	s.init()
	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true, // Let the application handle signals
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns

	return s, nil
}

func (n *NatsServer) Start(ctx context.Context) error {
	n.ns.Start()

	if !n.ns.ReadyForConnections(n.startupTimeout) {
		return fmt.Errorf("nats server not ready for connections")
	}

	conn, err := nats.Connect(n.ClientURL(), nats.Name("possessd-host"))
	if err != nil {
		return fmt.Errorf("creating nats client connection: %w", err)
	}
	n.setConn(conn)

	slog.InfoContext(ctx, "nats server listening", "addr", n.ns.Addr())

	<-ctx.Done()
	n.closeConn()
	n.ns.Shutdown()
	n.ns.WaitForShutdown()

	return nil
}

// ClientURL is the address peers connect to.
func (n *NatsServer) ClientURL() string {
	return fmt.Sprintf("nats://%s:%d", n.host, n.port)
}

// NatsClient connects a non-authoritative peer to a remote session server.
type NatsClient struct {
	natsConn
	url  string
	name string
}

func NewNatsClient(url, name string) *NatsClient {
	c := &NatsClient{
		url:  url,
		name: name,
	}
	c.init()
	return c
}

func (c *NatsClient) Start(ctx context.Context) error {
	conn, err := nats.Connect(c.url, nats.Name(c.name), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.url, err)
	}
	c.setConn(conn)

	slog.InfoContext(ctx, "connected to session server", "url", c.url)

	<-ctx.Done()
	c.closeConn()
	return nil
}
