package console

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/pixil98/go-possess/internal/possession"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
)

func (c *Console) buildCommands() map[string]*command {
	cmds := []*command{
		{Name: "status", Usage: "status", Help: "Summarize the world as this peer sees it.", run: c.status},
		{Name: "check", Usage: "check", Help: "Verify the authority invariants.", run: c.check},
		{Name: "possess", Usage: "possess [entity]", Help: "Possess an entity, or the nearest free one.", MaxArgs: 1, run: c.possess},
		{Name: "release", Usage: "release", Help: "Release the possessed entity.", run: c.press(world.KeyRelease, "You let go.")},
		{Name: "eject", Usage: "eject", Help: "Eject violently from the possessed entity.", run: c.press(world.KeyEject, "You burst out.")},
		{Name: "move", Usage: "move <h> <v>", Help: "Set the movement axes, each between -1 and 1.", MinArgs: 2, MaxArgs: 2, run: c.move},
		{Name: "jump", Usage: "jump", Help: "Jump once.", run: c.jump},
		{Name: "controller", Usage: "controller <id>", Help: "Choose which local controller receives input.", MinArgs: 1, MaxArgs: 1, run: c.controller},
		{Name: "help", Usage: "help", Help: "List commands.", run: c.help},
		{Name: "quit", Usage: "quit", Help: "End the session.", run: func(context.Context, []string) (string, error) { return "", errQuit }},
	}
	if c.history != nil {
		cmds = append(cmds, &command{Name: "history", Usage: "history <entity>", Help: "Show recorded transitions of an entity.", MinArgs: 1, MaxArgs: 1, run: c.showHistory})
	}

	m := make(map[string]*command, len(cmds))
	for _, cmd := range cmds {
		m[cmd.Name] = cmd
	}
	return m
}

type entityView struct {
	Id       storage.Identifier
	Position [3]float64
	Owner    storage.Identifier
	Locked   bool
	Holder   storage.Identifier
}

type controllerView struct {
	Id         storage.Identifier
	Peer       storage.Identifier
	Phase      string
	Possessing storage.Identifier
	Stunned    bool
	Local      bool
}

type statusView struct {
	Role        string
	Peer        storage.Identifier
	Clock       string
	Active      storage.Identifier
	Entities    []entityView
	Controllers []controllerView
}

func (c *Console) status(ctx context.Context, _ []string) (string, error) {
	var view statusView
	err := c.peer.Do(ctx, func(context.Context) error {
		coord := c.peer.Coordinator()
		view.Role = "client"
		if coord.Authoritative() {
			view.Role = "host"
		}
		view.Peer = c.peer.Id()
		view.Clock = c.peer.Scheduler().Now().String()
		view.Active = c.peer.Active()

		w := c.peer.World()
		for _, e := range w.Entities() {
			p := e.Transform.WorldPosition()
			view.Entities = append(view.Entities, entityView{
				Id:       e.Id,
				Position: [3]float64{p[0], p[1], p[2]},
				Owner:    e.Owner,
				Locked:   e.Locked,
				Holder:   e.CurrentController,
			})
		}
		for _, ctrl := range w.Controllers() {
			view.Controllers = append(view.Controllers, controllerView{
				Id:         ctrl.Id,
				Peer:       ctrl.Peer,
				Phase:      coord.Phase(ctrl.Id).String(),
				Possessing: ctrl.PossessedEntity,
				Stunned:    ctrl.Stunned,
				Local:      ctrl.IsLocalAuthority,
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return Render(statusTemplate, view)
}

func (c *Console) check(ctx context.Context, _ []string) (string, error) {
	var result error
	err := c.peer.Do(ctx, func(context.Context) error {
		result = c.peer.World().CheckInvariants()
		return nil
	})
	if err != nil {
		return "", err
	}
	if result != nil {
		return "Invariant violations:\n" + result.Error() + "\n", nil
	}
	return "All invariants hold.\n", nil
}

func (c *Console) possess(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		c.input.Press(world.KeyPossess)
		return "You reach for the nearest object.\n", nil
	}

	target := storage.Identifier(args[0])
	var result error
	err := c.peer.Do(ctx, func(ctx context.Context) error {
		result = c.peer.Coordinator().RequestPossess(ctx, c.peer.Active(), target)
		return nil
	})
	if err != nil {
		return "", err
	}

	switch {
	case errors.Is(result, possession.ErrPrecondition):
		reason := strings.TrimPrefix(result.Error(), possession.ErrPrecondition.Error()+": ")
		return "", NewUserError("You cannot possess %s: %s.", target, reason)
	case result != nil:
		return "", result
	}
	return "You reach for " + string(target) + ".\n", nil
}

func (c *Console) press(k world.Key, msg string) func(context.Context, []string) (string, error) {
	return func(context.Context, []string) (string, error) {
		c.input.Press(k)
		return msg + "\n", nil
	}
}

func parseAxis(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewUserError("Invalid axis: %s", s)
	}
	return v, nil
}

func (c *Console) move(_ context.Context, args []string) (string, error) {
	h, err := parseAxis(args[0])
	if err != nil {
		return "", err
	}
	v, err := parseAxis(args[1])
	if err != nil {
		return "", err
	}
	c.input.SetAxes(h, v)
	return "", nil
}

func (c *Console) jump(context.Context, []string) (string, error) {
	c.input.Jump()
	return "", nil
}

func (c *Console) controller(ctx context.Context, args []string) (string, error) {
	id := storage.Identifier(args[0])
	var result error
	err := c.peer.Do(ctx, func(context.Context) error {
		result = c.peer.Select(id)
		return nil
	})
	if err != nil {
		return "", err
	}
	if result != nil {
		return "", NewUserError("You do not drive %s.", id)
	}
	return "Now driving " + string(id) + ".\n", nil
}

func (c *Console) help(context.Context, []string) (string, error) {
	return Render(helpTemplate, c.sortedCommands())
}

func (c *Console) showHistory(ctx context.Context, args []string) (string, error) {
	entity := storage.Identifier(args[0])
	entries, err := c.history.History(ctx, entity)
	if err != nil {
		return "", err
	}
	return Render(historyTemplate, map[string]any{
		"Entity":  entity,
		"Entries": entries,
	})
}
