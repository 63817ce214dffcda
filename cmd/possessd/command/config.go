package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-possess/internal/storage"
)

type Config struct {
	Peer      PeerConfig       `json:"peer"`
	Nats      NatsConfig       `json:"nats"`
	Listeners []ListenerConfig `json:"listeners"`
	// MaxSessions caps concurrent operator sessions across all listeners.
	MaxSessions int           `json:"max_sessions,omitempty"`
	Scene       SceneConfig   `json:"scene"`
	Tuning      TuningConfig  `json:"tuning"`
	Journal     JournalConfig `json:"journal"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Peer.validate())
	el.Add(c.Nats.validate(c.Peer.Role))

	for i, l := range c.Listeners {
		if err := l.validate(); err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}
	if c.MaxSessions < 0 {
		el.Add(fmt.Errorf("max_sessions must not be negative"))
	}

	el.Add(c.Scene.validate())
	el.Add(c.Tuning.validate())
	el.Add(c.Journal.validate())

	return el.Err()
}

type Role int

const (
	RoleHost Role = iota
	RoleClient
)

func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "host":
		*r = RoleHost
	case "client":
		*r = RoleClient
	default:
		return fmt.Errorf("unknown role: %s", text)
	}
	return nil
}

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "host"
}

type PeerConfig struct {
	Id           string `json:"id"`
	Role         Role   `json:"role"`
	Host         string `json:"host"`
	Session      string `json:"session"`
	TickInterval string `json:"tick_interval"`
}

func (c *PeerConfig) validate() error {
	el := errors.NewErrorList()

	if c.Id == "" {
		el.Add(fmt.Errorf("peer id is required"))
	}
	if c.Session == "" {
		el.Add(fmt.Errorf("session is required"))
	}
	if c.Role == RoleClient && c.Host == "" {
		el.Add(fmt.Errorf("host is required for a client peer"))
	}
	if c.Role == RoleHost && c.Host != "" && c.Host != c.Id {
		el.Add(fmt.Errorf("host must be empty or equal to the peer id on a host peer"))
	}

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("tick_interval must be positive"))
		}
	}

	return el.Err()
}

func (c *PeerConfig) self() storage.Identifier {
	return storage.Identifier(c.Id)
}

func (c *PeerConfig) host() storage.Identifier {
	if c.Role == RoleHost {
		return c.self()
	}
	return storage.Identifier(c.Host)
}

func (c *PeerConfig) tickLength() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0
	}
	return d
}
