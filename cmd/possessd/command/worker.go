package command

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/console"
	"github.com/pixil98/go-possess/internal/driver"
	"github.com/pixil98/go-possess/internal/input"
	"github.com/pixil98/go-possess/internal/listener"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/peer"
	"github.com/pixil98/go-possess/internal/replication"
	"github.com/pixil98/go-possess/internal/view"
	"github.com/pixil98/go-service"
)

var cameraOffset = mgl64.Vec3{0, 2, -4}

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	workers := service.WorkerList{}

	t, err := cfg.Tuning.Load()
	if err != nil {
		return nil, fmt.Errorf("loading tuning: %w", err)
	}

	w, err := cfg.Scene.BuildWorld(&cfg.Peer, t)
	if err != nil {
		return nil, err
	}

	nc, err := cfg.Nats.buildBus(&cfg.Peer)
	if err != nil {
		return nil, fmt.Errorf("creating nats worker: %w", err)
	}
	workers["nats"] = nc

	// Snapshots are superseded by the next one, protocol messages never are.
	transport, err := messaging.NewNatsTransport(nc, cfg.Peer.Session, cfg.Peer.self(), cfg.Peer.Role == RoleHost,
		messaging.WithLossy(replication.HandlerTransform, replication.HandlerTransformUpdate),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	q := input.NewQueue()
	peerOpts := []peer.PeerOpt{
		peer.WithInput(q),
		peer.WithCamera(view.NewFollowCamera(cameraOffset)),
		peer.WithTuning(t),
	}
	var consoleOpts []console.ConsoleOpt

	// Only the authority observes every transition.
	switch {
	case cfg.Peer.Role == RoleHost:
		j, err := cfg.Journal.Open()
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		if j != nil {
			peerOpts = append(peerOpts, peer.WithRecorder(j))
			consoleOpts = append(consoleOpts, console.WithHistory(j))
			workers["journal"] = &journalWorker{j: j}
		}
	case cfg.Journal.Path != "":
		slog.Warn("journal is only kept by the host peer, ignoring journal path", "path", cfg.Journal.Path)
	}

	p, err := peer.NewPeer(w, transport, peerOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating peer: %w", err)
	}

	driverOpts := []driver.DriverOpt{driver.WithReady(nc.Ready())}
	if d := cfg.Peer.tickLength(); d > 0 {
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	workers["driver"] = driver.NewDriver([]driver.Manager{p}, driverOpts...)

	cm := listener.NewConnectionManager(
		console.NewConsole(p, q, consoleOpts...),
		listener.WithMaxSessions(cfg.MaxSessions),
	)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lw, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lw
	}
	workers["listeners"] = &listeners

	slog.Info("peer configured",
		"peer", cfg.Peer.Id,
		"role", cfg.Peer.Role,
		"session", cfg.Peer.Session,
		"entities", len(w.Entities()),
		"controllers", len(w.Controllers()),
	)

	return workers, nil
}
