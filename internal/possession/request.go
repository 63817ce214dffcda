package possession

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/storage"
	"github.com/pixil98/go-possess/internal/world"
)

// localController resolves a controller this peer may issue requests for.
func (c *Coordinator) localController(id storage.Identifier) (*world.Controller, error) {
	ctrl := c.world.Controller(id)
	if ctrl == nil {
		return nil, ErrUnknownController
	}
	if !ctrl.IsLocalAuthority {
		return nil, ErrNotLocalAuthority
	}
	return ctrl, nil
}

func (c *Coordinator) refuse(ctx context.Context, kind string, controllerId storage.Identifier, err error) error {
	c.inst.refuse(ctx, kind, err)
	slog.DebugContext(ctx, "request refused", "kind", kind, "controller", controllerId, "error", err)
	return err
}

// RequestPossess asks the authority to hand targetId to the controller.
func (c *Coordinator) RequestPossess(ctx context.Context, controllerId, targetId storage.Identifier) error {
	ctrl, err := c.localController(controllerId)
	if err != nil {
		return c.refuse(ctx, "possess", controllerId, err)
	}
	if ctrl.Stunned {
		return c.refuse(ctx, "possess", controllerId, ErrStunned)
	}
	if _, ok := c.pending[ctrl.Id]; ok {
		return c.refuse(ctx, "possess", controllerId, ErrRequestPending)
	}
	if ctrl.Possessing() {
		return c.refuse(ctx, "possess", controllerId, ErrAlreadyPossessing)
	}

	target := c.world.Entity(targetId)
	if target == nil {
		return c.refuse(ctx, "possess", controllerId, ErrUnknownTarget)
	}
	if !target.Free() {
		return c.refuse(ctx, "possess", controllerId, ErrTargetUnavailable)
	}

	err = c.transport.SendCommand(HandlerPossess, PossessCommand{
		ControllerId: ctrl.Id,
		TargetId:     target.Id,
	})
	if err != nil {
		return fmt.Errorf("sending possess command: %w", err)
	}

	c.setPending(ctx, ctrl, PhaseRequestPending, target.Id)
	c.inst.request(ctx, "possess")
	slog.InfoContext(ctx, "possess requested", "controller", ctrl.Id, "target", target.Id)
	return nil
}

// RequestUnpossess asks the authority to release whatever the controller holds.
func (c *Coordinator) RequestUnpossess(ctx context.Context, controllerId storage.Identifier) error {
	ctrl, err := c.releasable(ctx, "unpossess", controllerId)
	if err != nil {
		return err
	}
	return c.sendUnpossess(ctx, ctrl, mgl64.Vec3{}, "unpossess")
}

// RequestForceEject releases the held entity with an impulse and stuns the
// controller. The stun starts immediately, before the authority answers.
func (c *Coordinator) RequestForceEject(ctx context.Context, controllerId storage.Identifier, impulse mgl64.Vec3) error {
	ctrl, err := c.releasable(ctx, "eject", controllerId)
	if err != nil {
		return err
	}

	c.stun.Start(ctrl, c.tuning.StunDuration)
	if err := c.sendUnpossess(ctx, ctrl, impulse, "eject"); err != nil {
		c.stun.Clear(ctrl)
		return err
	}
	return nil
}

func (c *Coordinator) releasable(ctx context.Context, kind string, controllerId storage.Identifier) (*world.Controller, error) {
	ctrl, err := c.localController(controllerId)
	if err != nil {
		return nil, c.refuse(ctx, kind, controllerId, err)
	}
	if !ctrl.Possessing() {
		return nil, c.refuse(ctx, kind, controllerId, ErrNotPossessing)
	}
	if _, ok := c.pending[ctrl.Id]; ok {
		return nil, c.refuse(ctx, kind, controllerId, ErrRequestPending)
	}
	return ctrl, nil
}

func (c *Coordinator) sendUnpossess(ctx context.Context, ctrl *world.Controller, impulse mgl64.Vec3, kind string) error {
	err := c.transport.SendCommand(HandlerUnpossess, UnpossessCommand{
		ControllerId: ctrl.Id,
		Impulse:      toWire(impulse),
	})
	if err != nil {
		return fmt.Errorf("sending unpossess command: %w", err)
	}

	c.setPending(ctx, ctrl, PhaseUnpossessPending, ctrl.PossessedEntity)
	c.inst.request(ctx, kind)
	slog.InfoContext(ctx, "release requested", "controller", ctrl.Id, "target", ctrl.PossessedEntity, "impulse", impulse)
	return nil
}
