package possession

import (
	"context"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/world"
)

// anchor is where a possessing controller docks on the entity.
func (c *Coordinator) anchor(e *world.Entity) *world.Transform {
	if e.Anchor != nil {
		return e.Anchor
	}
	if slot := e.Transform.Child(c.tuning.AnchorSlot); slot != nil {
		return slot
	}
	return e.Transform
}

// OnPossessGranted applies a grant on this replica.
func (c *Coordinator) OnPossessGranted(ctx context.Context, msg PossessGranted) {
	ctrl := c.world.Controller(msg.ControllerId)
	target := c.world.Entity(msg.TargetId)
	if ctrl == nil || target == nil {
		slog.DebugContext(ctx, "grant references missing objects", "controller", msg.ControllerId, "target", msg.TargetId)
		return
	}
	if ctrl.PossessedEntity == target.Id {
		return
	}
	if ctrl.Possessing() || (target.CurrentController != "" && target.CurrentController != ctrl.Id) {
		slog.WarnContext(ctx, "grant conflicts with local state", "controller", ctrl.Id, "holding", ctrl.PossessedEntity, "target", target.Id, "held_by", target.CurrentController)
		return
	}

	c.clearPending(ctrl.Id)

	ctrl.PossessedEntity = target.Id
	target.CurrentController = ctrl.Id
	target.Locked = true
	target.Owner = msg.Owner

	target.SuspendPhysics()
	if ctrl.Body != nil {
		ctrl.Body.SetVelocity(mgl64.Vec3{})
		ctrl.Body.SetKinematic(true)
	}
	ctrl.Transform.Dock(c.anchor(target))

	if ctrl.IsLocalAuthority {
		ctrl.ClearInput()
		if c.camera != nil {
			c.camera.SetFollowTarget(target.Transform)
		}
		if target.Behavior != nil {
			target.Behavior.OnPossessed()
		}
	}

	slog.DebugContext(ctx, "possession applied", "controller", ctrl.Id, "target", target.Id, "owner", msg.Owner)
}

// OnPossessRejected lets a requester whose request lost leave the pending phase.
func (c *Coordinator) OnPossessRejected(ctx context.Context, msg PossessRejected) {
	p, ok := c.pending[msg.ControllerId]
	if !ok || p.phase != PhaseRequestPending || p.target != msg.TargetId {
		return
	}
	c.clearPending(msg.ControllerId)
	slog.DebugContext(ctx, "possess request lost", "controller", msg.ControllerId, "target", msg.TargetId, "reason", msg.Reason)
}

// OnUnpossessReleased applies a release on this replica. The impulse is
// applied only when the controller still held the target here, so a
// duplicate release cannot push the entity twice.
func (c *Coordinator) OnUnpossessReleased(ctx context.Context, msg UnpossessReleased) {
	ctrl := c.world.Controller(msg.ControllerId)
	target := c.world.Entity(msg.TargetId)
	if ctrl == nil || target == nil {
		slog.DebugContext(ctx, "release references missing objects", "controller", msg.ControllerId, "target", msg.TargetId)
		return
	}
	if ctrl.PossessedEntity != target.Id {
		slog.DebugContext(ctx, "release for possession not held here", "controller", ctrl.Id, "target", target.Id)
		return
	}

	c.clearPending(ctrl.Id)

	target.CurrentController = ""
	target.Locked = false
	target.Owner = c.world.Host()
	ctrl.PossessedEntity = ""

	exit := target.Transform.WorldPosition().Add(world.Up.Mul(c.tuning.UpOffset))
	ctrl.Transform.Undock(exit)

	target.RestorePhysics()
	if impulse := fromWire(msg.Impulse); impulse != (mgl64.Vec3{}) && target.Body != nil {
		target.Body.ApplyImpulse(impulse)
	}
	if ctrl.Body != nil {
		ctrl.Body.SetKinematic(false)
	}

	if ctrl.IsLocalAuthority {
		if target.Behavior != nil {
			target.Behavior.OnUnpossessed()
		}
		if c.camera != nil {
			c.camera.SetFollowTarget(ctrl.Transform)
		}
	}

	slog.DebugContext(ctx, "release applied", "controller", ctrl.Id, "target", target.Id)
}
