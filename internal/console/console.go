// Package console serves line-oriented operator sessions bound to the local peer.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/pixil98/go-possess/internal/input"
	"github.com/pixil98/go-possess/internal/journal"
	"github.com/pixil98/go-possess/internal/listener"
	"github.com/pixil98/go-possess/internal/possession"
	"github.com/pixil98/go-possess/internal/schedule"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
)

// Peer is the local participant a console drives.
type Peer interface {
	Id() storage.Identifier
	World() *world.World
	Coordinator() *possession.Coordinator
	Scheduler() *schedule.Scheduler
	Active() storage.Identifier
	Select(id storage.Identifier) error
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// HistorySource lists recorded transitions of an entity.
type HistorySource interface {
	History(ctx context.Context, entity storage.Identifier) ([]journal.Entry, error)
}

type ConsoleOpt func(*Console)

// WithHistory enables the history command.
func WithHistory(h HistorySource) ConsoleOpt {
	return func(c *Console) {
		c.history = h
	}
}

type command struct {
	Name    string
	Usage   string
	Help    string
	MinArgs int
	MaxArgs int
	run     func(ctx context.Context, args []string) (string, error)
}

type Console struct {
	peer     Peer
	input    *input.Queue
	history  HistorySource
	commands map[string]*command
}

func NewConsole(p Peer, in *input.Queue, opts ...ConsoleOpt) *Console {
	c := &Console{
		peer:  p,
		input: in,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.commands = c.buildCommands()
	return c
}

// RunSession reads commands from rw until the operator quits or the
// connection closes. A session naming a controller starts out driving it.
func (c *Console) RunSession(ctx context.Context, rw io.ReadWriter, sess listener.Session) error {
	write := func(s string) error {
		_, err := io.WriteString(rw, s)
		return err
	}

	banner := fmt.Sprintf("Connected to peer %s. Type 'help' for commands.\n", c.peer.Id())
	if sess.Controller != "" {
		out, err := c.controller(ctx, []string{string(sess.Controller)})
		var uerr *UserError
		switch {
		case errors.As(err, &uerr):
			out = uerr.Message + " Use 'controller <id>' to pick one.\n"
		case err != nil:
			return err
		}
		banner += out
	}

	if err := write(banner + "> "); err != nil {
		return err
	}

	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		out, err := c.Exec(ctx, scanner.Text())

		var uerr *UserError
		switch {
		case errors.Is(err, errQuit):
			return write("Goodbye.\n")
		case errors.As(err, &uerr):
			out = uerr.Message + "\n"
		case err != nil:
			slog.WarnContext(ctx, "console command failed", "line", scanner.Text(), "error", err)
			out = "Something went wrong, see the peer log.\n"
		}

		if err := write(out + "> "); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Exec runs one command line and returns its output.
func (c *Console) Exec(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return "", NewUserError("Unknown command: %s", fields[0])
	}

	args := fields[1:]
	if len(args) < cmd.MinArgs || len(args) > cmd.MaxArgs {
		return "", NewUserError("Usage: %s", cmd.Usage)
	}

	return cmd.run(ctx, args)
}

func (c *Console) sortedCommands() []*command {
	out := make([]*command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
