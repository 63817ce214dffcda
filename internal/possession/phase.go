package possession

// Phase is where a controller stands in the possession protocol.
type Phase int

const (
	PhaseFree Phase = iota
	PhaseRequestPending
	PhasePossessed
	PhaseUnpossessPending
)

func (p Phase) String() string {
	switch p {
	case PhaseFree:
		return "free"
	case PhaseRequestPending:
		return "request-pending"
	case PhasePossessed:
		return "possessed"
	case PhaseUnpossessPending:
		return "unpossess-pending"
	default:
		return "unknown"
	}
}
