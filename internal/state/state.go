// Package state owns the durable workflow state: current phase, lock flags,
// and wave counters. All mutation flows through the Store's transition and
// update operations; callers never assign fields directly.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/phased/internal/phase"
)

// Sentinel errors for state operations.
var (
	// ErrInvalidState indicates a state snapshot failed validation.
	ErrInvalidState = errors.New("invalid workflow state")

	// ErrIllegalTransition indicates a transition outside the lifecycle order.
	ErrIllegalTransition = errors.New("illegal phase transition")

	// ErrSpecLockViolation indicates an attempt to clear the spec lock
	// outside an explicit reset.
	ErrSpecLockViolation = errors.New("spec lock cannot be cleared")
)

// WorkflowState is the full mutable state of one workflow instance.
type WorkflowState struct {
	// Phase is the current lifecycle phase.
	Phase phase.Phase `json:"phase"`

	// Mode is a free-form operating mode label (e.g. "standard", "hotfix").
	Mode string `json:"mode,omitempty"`

	// SpecLocked is monotonic: once true, only an explicit reset clears it.
	SpecLocked bool `json:"spec_locked"`

	// AcceptanceConfirmed records that acceptance criteria were verified.
	AcceptanceConfirmed bool `json:"acceptance_confirmed"`

	// CurrentWave and TotalWaves track execution progress.
	// Invariant: 0 <= CurrentWave <= TotalWaves.
	CurrentWave int `json:"current_wave"`
	TotalWaves  int `json:"total_waves"`

	// LastActivity is the time of the most recent state mutation.
	LastActivity time.Time `json:"last_activity"`
}

// Info returns the read-only projection used by enforcement rendering.
func (s WorkflowState) Info() phase.StateInfo {
	return phase.StateInfo{
		Phase:               s.Phase,
		Mode:                s.Mode,
		SpecLocked:          s.SpecLocked,
		AcceptanceConfirmed: s.AcceptanceConfirmed,
		CurrentWave:         s.CurrentWave,
		TotalWaves:          s.TotalWaves,
		LastActivity:        s.LastActivity,
	}
}

// Validate checks the structural invariants of a state snapshot.
func Validate(s WorkflowState) error {
	if !s.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidState, s.Phase)
	}
	if s.CurrentWave < 0 || s.TotalWaves < 0 {
		return fmt.Errorf("%w: wave counters must be non-negative (current=%d total=%d)",
			ErrInvalidState, s.CurrentWave, s.TotalWaves)
	}
	if s.CurrentWave > s.TotalWaves {
		return fmt.Errorf("%w: current wave %d exceeds total waves %d",
			ErrInvalidState, s.CurrentWave, s.TotalWaves)
	}
	return nil
}

// initialState returns the state a fresh workflow starts in.
func initialState() WorkflowState {
	return WorkflowState{Phase: phase.PhaseIdle}
}
