package peer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pixil98/go-possess/internal/possession"
	"github.com/pixil98/go-possess/internal/world"
)

// route turns one input frame into protocol requests and movement for the
// active controller.
func (p *Peer) route(ctx context.Context, f world.InputFrame, dt time.Duration) {
	ctrl := p.world.Controller(p.Active())
	if ctrl == nil {
		return
	}

	switch {
	case f.Down(world.KeyEject):
		p.report(ctx, "eject", p.coord.RequestForceEject(ctx, ctrl.Id, p.tuning.Eject()))
	case f.Down(world.KeyRelease):
		p.report(ctx, "release", p.coord.RequestUnpossess(ctx, ctrl.Id))
	case f.Down(world.KeyPossess) && !ctrl.Possessing():
		candidate := p.world.NearestFree(ctrl.Transform.WorldPosition(), p.tuning.PossessRadius)
		if candidate == nil {
			slog.DebugContext(ctx, "no possession candidate in range", "controller", ctrl.Id)
			break
		}
		p.report(ctx, "possess", p.coord.RequestPossess(ctx, ctrl.Id, candidate.Id))
	}

	if ctrl.Stunned {
		return
	}

	ctrl.Input = world.MovementInput{
		AxisH: f.AxisH,
		AxisV: f.AxisV,
		Jump:  f.Jump,
	}
	if p.camera != nil {
		ctrl.Input.CameraForward = p.camera.Forward()
	}

	driven := ctrl.Behavior
	if ctrl.Possessing() {
		driven = nil
		if e := p.world.Entity(ctrl.PossessedEntity); e != nil {
			driven = e.Behavior
		}
	}
	if driven != nil {
		driven.ConsumeMovementInput(ctrl.Input, dt)
	}
}

// report logs failures that are not plain refusals; refusals are logged by
// the coordinator.
func (p *Peer) report(ctx context.Context, kind string, err error) {
	if err == nil || errors.Is(err, possession.ErrPrecondition) {
		return
	}
	slog.WarnContext(ctx, "request failed", "kind", kind, "error", err)
}
