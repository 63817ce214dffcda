package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-service"
)

type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`

	// Url is the session server a client peer connects to.
	Url string `json:"url"`
}

func (n *NatsConfig) validate(role Role) error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if n.Port < 0 || n.Port > 65535 {
		el.Add(fmt.Errorf("port %d out of range", n.Port))
	}
	if role == RoleClient && n.Url == "" {
		el.Add(fmt.Errorf("nats url is required for a client peer"))
	}

	return el.Err()
}

// bus is the worker that owns the NATS connection transports publish on.
type bus interface {
	service.Worker
	messaging.Bus
	Ready() <-chan struct{}
}

func (n *NatsConfig) buildBus(p *PeerConfig) (bus, error) {
	if p.Role == RoleClient {
		return messaging.NewNatsClient(n.Url, "possessd-"+p.Id), nil
	}

	s, err := n.buildNatsServer()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if n.StartTimeout != "" {
		d, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}
