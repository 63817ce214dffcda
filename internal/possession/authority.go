package possession

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pixil98/go-possess/internal/storage"
)

// OnPossessCommand decides a possess request. The first valid request for a
// target wins; later ones are rejected.
func (c *Coordinator) OnPossessCommand(ctx context.Context, sender storage.Identifier, cmd PossessCommand) error {
	if !c.authoritative {
		return ErrNotAuthoritative
	}

	ctrl := c.world.Controller(cmd.ControllerId)
	target := c.world.Entity(cmd.TargetId)

	var reason string
	switch {
	case ctrl == nil || target == nil:
		reason = reasonUnknown
	case ctrl.Peer != sender:
		reason = reasonNotOwner
	case c.holds[ctrl.Id] != "":
		reason = reasonHolding
	case c.claims[target.Id] != "":
		reason = reasonClaimed
	}

	if reason != "" {
		slog.WarnContext(ctx, "possess rejected", "sender", sender, "controller", cmd.ControllerId, "target", cmd.TargetId, "reason", reason)
		c.record(ctx, Transition{
			Kind:       TransitionRejected,
			Controller: cmd.ControllerId,
			Entity:     cmd.TargetId,
			Peer:       sender,
			Reason:     reason,
		})
		err := c.transport.Broadcast(HandlerPossessRejected, PossessRejected{
			ControllerId: cmd.ControllerId,
			TargetId:     cmd.TargetId,
			Reason:       reason,
		})
		if err != nil {
			return fmt.Errorf("broadcasting rejection: %w", err)
		}
		return nil
	}

	c.claims[target.Id] = ctrl.Id
	c.holds[ctrl.Id] = target.Id
	target.Locked = true
	target.Owner = sender

	err := c.transport.Broadcast(HandlerPossessGranted, PossessGranted{
		ControllerId: ctrl.Id,
		TargetId:     target.Id,
		Owner:        sender,
	})
	if err != nil {
		return fmt.Errorf("broadcasting grant: %w", err)
	}

	slog.InfoContext(ctx, "possess granted", "controller", ctrl.Id, "target", target.Id, "owner", sender)
	c.record(ctx, Transition{
		Kind:       TransitionGranted,
		Controller: ctrl.Id,
		Entity:     target.Id,
		Peer:       sender,
	})
	return nil
}

// OnUnpossessCommand releases the entity the controller holds in the claims
// table. A controller that holds nothing is ignored, so repeated commands
// release at most once.
func (c *Coordinator) OnUnpossessCommand(ctx context.Context, sender storage.Identifier, cmd UnpossessCommand) error {
	if !c.authoritative {
		return ErrNotAuthoritative
	}

	ctrl := c.world.Controller(cmd.ControllerId)
	if ctrl == nil {
		slog.DebugContext(ctx, "unpossess for unknown controller", "sender", sender, "controller", cmd.ControllerId)
		return nil
	}
	if ctrl.Peer != sender && sender != c.peer {
		slog.WarnContext(ctx, "unpossess from peer not owning controller", "sender", sender, "controller", ctrl.Id)
		return nil
	}

	return c.release(ctx, ctrl.Id, fromWire(cmd.Impulse))
}

func (c *Coordinator) release(ctx context.Context, controllerId storage.Identifier, impulse mgl64.Vec3) error {
	targetId, ok := c.holds[controllerId]
	if !ok {
		slog.DebugContext(ctx, "unpossess for controller holding nothing", "controller", controllerId)
		return nil
	}

	delete(c.holds, controllerId)
	delete(c.claims, targetId)
	if target := c.world.Entity(targetId); target != nil {
		target.Owner = c.world.Host()
	}

	err := c.transport.Broadcast(HandlerUnpossessReleased, UnpossessReleased{
		ControllerId: controllerId,
		TargetId:     targetId,
		Impulse:      toWire(impulse),
	})
	if err != nil {
		return fmt.Errorf("broadcasting release: %w", err)
	}

	slog.InfoContext(ctx, "possession released", "controller", controllerId, "target", targetId, "impulse", impulse)
	c.record(ctx, Transition{
		Kind:       TransitionReleased,
		Controller: controllerId,
		Entity:     targetId,
		Peer:       c.peer,
		Impulse:    impulse,
	})
	return nil
}

// DisconnectPeer releases everything held by the peer's controllers with no
// impulse. The entities stay in the world.
func (c *Coordinator) DisconnectPeer(ctx context.Context, peer storage.Identifier) error {
	if !c.authoritative {
		return ErrNotAuthoritative
	}

	slog.InfoContext(ctx, "peer left", "peer", peer)
	for _, ctrl := range c.world.ControllersOf(peer) {
		if err := c.release(ctx, ctrl.Id, mgl64.Vec3{}); err != nil {
			return err
		}
	}
	return nil
}
