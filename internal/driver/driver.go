// Package driver runs fixed-step simulation ticks.
package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second / 30
)

// Manager is advanced once per tick by dt of simulated time.
type Manager interface {
	Tick(ctx context.Context, dt time.Duration) error
}

// Stopper is implemented by managers that need to say goodbye on shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}

type Driver struct {
	tickLength time.Duration
	ready      <-chan struct{}
	managers   []Manager
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start waits for the ready signal, then ticks until ctx is cancelled.
func (d *Driver) Start(ctx context.Context) error {
	if d.ready != nil {
		select {
		case <-ctx.Done():
			return nil
		case <-d.ready:
		}
	}

	slog.InfoContext(ctx, "driver started", "tick", d.tickLength)

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				d.stop()
				return err
			}
		}
	}
}

// Tick advances every manager by one tick length, in order.
func (d *Driver) Tick(ctx context.Context) error {
	for _, m := range d.managers {
		if err := m.Tick(ctx, d.tickLength); err != nil {
			return err
		}
	}
	return nil
}

// stop runs on a fresh context since the driver's own is already done.
func (d *Driver) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), d.tickLength*10)
	defer cancel()

	for _, m := range d.managers {
		s, ok := m.(Stopper)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			slog.WarnContext(ctx, "stopping manager", "error", err)
		}
	}
}
