package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/driver"
	"github.com/pixil98/go-possess/internal/input"
	"github.com/pixil98/go-possess/internal/journal"
	"github.com/pixil98/go-possess/internal/listener"
	"github.com/pixil98/go-possess/internal/messaging"
	"github.com/pixil98/go-possess/internal/peer"
	"github.com/pixil98/go-possess/internal/physics"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
	"github.com/pixil98/go-testutil"
)

type fakeHistory struct {
	entries []journal.Entry
}

func (f *fakeHistory) History(_ context.Context, entity storage.Identifier) ([]journal.Entry, error) {
	var out []journal.Entry
	for _, e := range f.entries {
		if e.Entity == string(entity) {
			out = append(out, e)
		}
	}
	return out, nil
}

// startConsole runs a lone host peer in the background.
func startConsole(t *testing.T, opts ...ConsoleOpt) *Console {
	t.Helper()

	w := world.NewWorld("host")
	tr := world.NewTransform("crate", mgl64.Vec3{1, 0, 0})
	err := w.AddEntity(&world.Entity{
		Id:        "crate",
		Transform: tr,
		Anchor:    tr.AddChild(world.DefaultAnchorSlot, mgl64.Vec3{0, 1, 0}),
		Body:      physics.NewSimBody(tr, 1),
	})
	if err != nil {
		t.Fatalf("adding entity: %v", err)
	}
	mask := world.NewTransform("mask", mgl64.Vec3{0, 2, 0})
	err = w.AddController(&world.Controller{
		Id:               "mask-host",
		Peer:             "host",
		Transform:        mask,
		IsLocalAuthority: true,
	})
	if err != nil {
		t.Fatalf("adding controller: %v", err)
	}
	spare := world.NewTransform("spare", mgl64.Vec3{4, 2, 0})
	err = w.AddController(&world.Controller{
		Id:               "mask-spare",
		Peer:             "host",
		Transform:        spare,
		IsLocalAuthority: true,
	})
	if err != nil {
		t.Fatalf("adding controller: %v", err)
	}

	hub, err := messaging.NewLocalHub("host")
	if err != nil {
		t.Fatalf("creating hub: %v", err)
	}
	transport, err := hub.Join("host")
	if err != nil {
		t.Fatalf("joining: %v", err)
	}

	q := input.NewQueue()
	p, err := peer.NewPeer(w, transport, peer.WithInput(q))
	if err != nil {
		t.Fatalf("creating peer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = driver.NewDriver([]driver.Manager{p}, driver.WithTickLength(time.Millisecond)).Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewConsole(p, q, opts...)
}

func exec(t *testing.T, c *Console, line string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := c.Exec(ctx, line)
	if err != nil {
		t.Fatalf("%q: %v", line, err)
	}
	return out
}

func TestConsole_PossessFlow(t *testing.T) {
	c := startConsole(t)

	out := exec(t, c, "status")
	testutil.AssertEqual(t, "role", strings.Contains(out, "Host peer host"), true)
	testutil.AssertEqual(t, "entity", strings.Contains(out, "crate"), true)
	testutil.AssertEqual(t, "driving", strings.Contains(out, "driving mask-host"), true)

	testutil.AssertEqual(t, "possess", exec(t, c, "possess crate"), "You reach for crate.\n")

	out = exec(t, c, "status")
	testutil.AssertEqual(t, "held", strings.Contains(out, "held by mask-host"), true)
	testutil.AssertEqual(t, "phase", strings.Contains(out, "possessed in crate"), true)
	testutil.AssertEqual(t, "check", exec(t, c, "check"), "All invariants hold.\n")

	_, err := c.Exec(context.Background(), "possess crate")
	testutil.AssertErrorContains(t, err, "You cannot possess crate: controller already possesses an entity.")
}

func TestConsole_UserErrors(t *testing.T) {
	c := startConsole(t)

	tests := map[string]struct {
		line   string
		expErr string
	}{
		"unknown command": {
			line:   "dance",
			expErr: "Unknown command: dance",
		},
		"missing args": {
			line:   "move 1",
			expErr: "Usage: move <h> <v>",
		},
		"bad axis": {
			line:   "move x 1",
			expErr: "Invalid axis: x",
		},
		"nan axis": {
			line:   "move nan 0",
			expErr: "Invalid axis: nan",
		},
		"infinite axis": {
			line:   "move 0 -Inf",
			expErr: "Invalid axis: -Inf",
		},
		"foreign controller": {
			line:   "controller mask-z",
			expErr: "You do not drive mask-z.",
		},
		"unknown target": {
			line:   "possess anvil",
			expErr: "You cannot possess anvil: unknown target.",
		},
		"history disabled": {
			line:   "history crate",
			expErr: "Unknown command: history",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Exec(context.Background(), tt.line)
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestConsole_History(t *testing.T) {
	h := &fakeHistory{entries: []journal.Entry{
		{At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Kind: "granted", Controller: "mask-a", Entity: "crate", Peer: "a"},
		{At: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC), Kind: "rejected", Controller: "mask-b", Entity: "crate", Peer: "b", Reason: "target already claimed"},
	}}
	c := startConsole(t, WithHistory(h))

	out := exec(t, c, "history crate")
	testutil.AssertEqual(t, "granted", strings.Contains(out, "03:04:05 granted  mask-a by a"), true)
	testutil.AssertEqual(t, "reason", strings.Contains(out, "target already claimed"), true)

	out = exec(t, c, "history barrel")
	testutil.AssertEqual(t, "empty", strings.Contains(out, "nothing recorded"), true)
}

func TestConsole_RunSession(t *testing.T) {
	c := startConsole(t)

	var out bytes.Buffer
	rw := struct {
		io.Reader
		io.Writer
	}{
		Reader: strings.NewReader("help\nmove 0 1\ndance\nquit\nstatus\n"),
		Writer: &out,
	}

	err := c.RunSession(context.Background(), rw, listener.Session{Protocol: "telnet"})
	testutil.AssertEqual(t, "error", err, nil)

	text := out.String()
	testutil.AssertEqual(t, "banner", strings.HasPrefix(text, "Connected to peer host."), true)
	testutil.AssertEqual(t, "help", strings.Contains(text, "possess [entity]"), true)
	testutil.AssertEqual(t, "user error", strings.Contains(text, "Unknown command: dance"), true)
	testutil.AssertEqual(t, "goodbye", strings.HasSuffix(text, "Goodbye.\n"), true)
	testutil.AssertEqual(t, "stopped at quit", strings.Contains(text, "Entities:"), false)
}

func TestConsole_RunSessionSelectsController(t *testing.T) {
	tests := map[string]struct {
		controller storage.Identifier
		expBanner  string
		expActive  storage.Identifier
	}{
		"no identity": {
			expBanner: "Connected to peer host. Type 'help' for commands.\n> ",
			expActive: "mask-host",
		},
		"local controller": {
			controller: "mask-spare",
			expBanner:  "Connected to peer host. Type 'help' for commands.\nNow driving mask-spare.\n> ",
			expActive:  "mask-spare",
		},
		"foreign controller": {
			controller: "mask-z",
			expBanner:  "Connected to peer host. Type 'help' for commands.\nYou do not drive mask-z. Use 'controller <id>' to pick one.\n> ",
			expActive:  "mask-host",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := startConsole(t)

			var out bytes.Buffer
			rw := struct {
				io.Reader
				io.Writer
			}{
				Reader: strings.NewReader(""),
				Writer: &out,
			}

			sess := listener.Session{Protocol: "ssh", Remote: "10.0.0.7:5122", Controller: tt.controller}
			err := c.RunSession(context.Background(), rw, sess)
			testutil.AssertEqual(t, "error", err, nil)
			testutil.AssertEqual(t, "banner", out.String(), tt.expBanner)
			testutil.AssertEqual(t, "active", c.peer.Active(), tt.expActive)
		})
	}
}
