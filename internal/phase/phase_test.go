package phase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhases_Order(t *testing.T) {
	want := []Phase{PhaseIdle, PhasePlan, PhaseResearch, PhaseSpecify, PhaseExecute, PhaseAccept}
	assert.Equal(t, want, Phases())
}

func TestPhase_Valid(t *testing.T) {
	for _, p := range Phases() {
		assert.True(t, p.Valid(), "phase %s should be valid", p)
	}
	assert.False(t, Phase("deploy").Valid())
	assert.False(t, Phase("").Valid())
}

func TestEnforcement_EveryPhaseHasRules(t *testing.T) {
	for _, p := range Phases() {
		rule, ok := Enforcement(p)
		require.True(t, ok, "phase %s must have a rule", p)
		assert.Equal(t, p, rule.Phase)
		assert.NotEmpty(t, rule.MustDo, "phase %s must have at least one mustDo", p)
		assert.NotEmpty(t, rule.MustNotDo, "phase %s must have at least one mustNotDo", p)
	}
}

func TestEnforcement_UnknownPhase(t *testing.T) {
	rule, ok := Enforcement(Phase("deploy"))
	assert.False(t, ok)
	assert.Empty(t, rule.MustDo)
}

func TestEnforcement_ReturnsCopies(t *testing.T) {
	rule, ok := Enforcement(PhasePlan)
	require.True(t, ok)
	rule.MustDo[0] = "mutated"
	rule.RequiredDocuments = append(rule.RequiredDocuments, "EXTRA.md")

	again, _ := Enforcement(PhasePlan)
	assert.NotEqual(t, "mutated", again.MustDo[0])
	assert.Equal(t, []string{DocSpec}, again.RequiredDocuments)
}

func TestOperationAllowed_WriteCode(t *testing.T) {
	tests := []struct {
		phase   Phase
		allowed bool
		reason  string
	}{
		{PhaseIdle, true, ""},
		{PhasePlan, false, "plan phase"},
		{PhaseResearch, false, "research phase"},
		{PhaseSpecify, false, "specify phase"},
		{PhaseExecute, false, "delegated"},
		{PhaseAccept, true, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			d := OperationAllowed(tt.phase, OpWriteCode)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				require.NotEmpty(t, d.Reason)
				assert.Contains(t, d.Reason, tt.reason)
			}
		})
	}
}

func TestOperationAllowed_CreateDocAlwaysAllowed(t *testing.T) {
	for _, p := range Phases() {
		assert.True(t, OperationAllowed(p, OpCreateDoc).Allowed, "create_doc in %s", p)
	}
}

func TestOperationAllowed_Delegate(t *testing.T) {
	for _, p := range Phases() {
		d := OperationAllowed(p, OpDelegate)
		switch p {
		case PhaseIdle, PhasePlan:
			assert.False(t, d.Allowed, "delegate in %s", p)
			assert.NotEmpty(t, d.Reason)
		default:
			assert.True(t, d.Allowed, "delegate in %s", p)
		}
	}
}

func TestOperationAllowed_TransitionAlwaysAllowed(t *testing.T) {
	for _, p := range Phases() {
		assert.True(t, OperationAllowed(p, OpTransition).Allowed)
	}
}

func TestOperationAllowed_Total(t *testing.T) {
	// Unknown inputs must not panic and must yield a usable decision.
	d := OperationAllowed(Phase("deploy"), Operation("launch_rocket"))
	assert.True(t, d.Allowed)
}

func TestBuildEnforcement(t *testing.T) {
	st := StateInfo{Phase: PhaseExecute}

	out := BuildEnforcement(PhaseExecute, st)
	assert.Contains(t, out, "MUST DO:")
	assert.Contains(t, out, "MUST NOT DO:")
	assert.Contains(t, out, "DELEGATION:")

	out = BuildEnforcement(PhasePlan, StateInfo{Phase: PhasePlan})
	assert.Contains(t, out, "MUST DO:")
	assert.NotContains(t, out, "DELEGATION:")
}

func TestBuildEnforcement_UnknownPhaseEmpty(t *testing.T) {
	assert.Empty(t, BuildEnforcement(Phase("deploy"), StateInfo{}))
}

func TestBuildStateContext(t *testing.T) {
	st := StateInfo{
		Phase:        PhaseExecute,
		SpecLocked:   true,
		CurrentWave:  2,
		TotalWaves:   5,
		LastActivity: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	out := BuildStateContext(st)
	assert.Contains(t, out, "phase: execute")
	assert.Contains(t, out, "spec locked: true")
	assert.Contains(t, out, "wave: 2/5")
}

func TestBuildContext(t *testing.T) {
	st := StateInfo{Phase: PhasePlan}
	out := BuildContext(PhasePlan, st)
	assert.True(t, strings.Contains(out, "MUST DO:"))
	assert.True(t, strings.Contains(out, "STATE:"))

	// Unknown phase still yields the state portion.
	out = BuildContext(Phase("deploy"), st)
	assert.False(t, strings.Contains(out, "MUST DO:"))
	assert.True(t, strings.Contains(out, "STATE:"))
}
