// Package phase defines the workflow phase lifecycle and its enforcement rules.
package phase

import "time"

// Phase is one stage of the fixed workflow lifecycle.
type Phase string

const (
	// PhaseIdle is the resting state before a workflow starts.
	PhaseIdle Phase = "idle"

	// PhasePlan is the planning phase (goals, scope, approach).
	PhasePlan Phase = "plan"

	// PhaseResearch is the investigation phase (codebase and domain study).
	PhaseResearch Phase = "research"

	// PhaseSpecify is the specification phase (locking the contract).
	PhaseSpecify Phase = "specify"

	// PhaseExecute is the implementation phase (delegated code changes).
	PhaseExecute Phase = "execute"

	// PhaseAccept is the acceptance phase (verification and remedial fixes).
	PhaseAccept Phase = "accept"
)

// lifecycle is the fixed forward ordering of phases.
var lifecycle = []Phase{
	PhaseIdle,
	PhasePlan,
	PhaseResearch,
	PhaseSpecify,
	PhaseExecute,
	PhaseAccept,
}

// Phases returns the lifecycle in order.
func Phases() []Phase {
	out := make([]Phase, len(lifecycle))
	copy(out, lifecycle)
	return out
}

// Valid reports whether p is a member of the closed phase enum.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Index returns the position of p in the lifecycle, or -1 for unknown phases.
func (p Phase) Index() int {
	for i, candidate := range lifecycle {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Operation is an action a caller may attempt during a phase.
type Operation string

const (
	// OpWriteCode is a direct modification of an implementation file.
	OpWriteCode Operation = "write_code"

	// OpCreateDoc is creation of a documentation artifact.
	OpCreateDoc Operation = "create_doc"

	// OpDelegate hands concrete work to a delegated executor.
	OpDelegate Operation = "delegate"

	// OpTransition moves the workflow to another phase.
	OpTransition Operation = "transition"
)

// StateInfo is a read-only projection of workflow state used for rendering
// enforcement context. It carries no behavior; the state store owns mutation.
type StateInfo struct {
	Phase               Phase
	Mode                string
	SpecLocked          bool
	AcceptanceConfirmed bool
	CurrentWave         int
	TotalWaves          int
	LastActivity        time.Time
}
