package transition

import (
	"time"

	"github.com/san-kum/clusterflow/internal/dynamo"
)

type State int

const (
	StateIdle State = iota
	StateSettling
	StateRunningPhase
	StateAwaitingRest
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSettling:
		return "settling"
	case StateRunningPhase:
		return "running"
	case StateAwaitingRest:
		return "awaiting-rest"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventSettled EventKind = iota
	EventPhaseStart
	EventRetarget
	EventPhaseRest
	EventComplete
	EventCanceled
)

func (k EventKind) String() string {
	switch k {
	case EventSettled:
		return "settled"
	case EventPhaseStart:
		return "phase-start"
	case EventRetarget:
		return "retarget"
	case EventPhaseRest:
		return "phase-rest"
	case EventComplete:
		return "complete"
	case EventCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Event is emitted to OnEvent hooks. Link and Target are set for retargets.
type Event struct {
	Seq    uint64
	Time   time.Time
	Kind   EventKind
	Phase  string
	Link   dynamo.LinkID
	Target string
}
