package possession

import (
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every error returned for a request that was
// refused locally. No network traffic is sent for such requests.
var ErrPrecondition = errors.New("precondition failed")

var (
	ErrUnknownController = fmt.Errorf("%w: unknown controller", ErrPrecondition)
	ErrNotLocalAuthority = fmt.Errorf("%w: controller is not driven from this peer", ErrPrecondition)
	ErrStunned           = fmt.Errorf("%w: controller is stunned", ErrPrecondition)
	ErrRequestPending    = fmt.Errorf("%w: a request is already pending", ErrPrecondition)
	ErrAlreadyPossessing = fmt.Errorf("%w: controller already possesses an entity", ErrPrecondition)
	ErrUnknownTarget     = fmt.Errorf("%w: unknown target", ErrPrecondition)
	ErrTargetUnavailable = fmt.Errorf("%w: target is not free", ErrPrecondition)
	ErrNotPossessing     = fmt.Errorf("%w: controller possesses nothing", ErrPrecondition)
)

var ErrNotAuthoritative = errors.New("peer is not authoritative")

// Reasons carried by possess-rejected.
const (
	reasonUnknown  = "unknown controller or target"
	reasonNotOwner = "controller not owned by sender"
	reasonHolding  = "controller already holds an entity"
	reasonClaimed  = "target already claimed"
)
