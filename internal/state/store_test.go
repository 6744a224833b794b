package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewStore(path, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewStore_StartsIdle(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, phase.PhaseIdle, s.Current().Phase)
	assert.False(t, s.Current().SpecLocked)
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestNewStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path, zap.NewNop())
	require.Error(t, err)
}

func TestNewStore_RejectsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	bad := WorkflowState{Phase: "deploy"}
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = NewStore(path, zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestTransition_ForwardOnly(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Transition(phase.PhasePlan))
	require.NoError(t, s.Transition(phase.PhaseResearch))
	assert.Equal(t, phase.PhaseResearch, s.Current().Phase)

	err := s.Transition(phase.PhasePlan)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, phase.PhaseResearch, s.Current().Phase)

	err = s.Transition(phase.PhaseResearch)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransition_UnknownPhase(t *testing.T) {
	s := newTestStore(t)
	require.ErrorIs(t, s.Transition(phase.Phase("deploy")), ErrIllegalTransition)
}

func TestTransition_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewStore(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Transition(phase.PhasePlan))

	reopened, err := NewStore(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, phase.PhasePlan, reopened.Current().Phase)
	assert.False(t, reopened.Current().LastActivity.IsZero())
}

func TestUpdate_EnforcesWaveInvariant(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(st *WorkflowState) {
		st.TotalWaves = 3
		st.CurrentWave = 2
	}))

	err := s.Update(func(st *WorkflowState) { st.CurrentWave = 5 })
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 2, s.Current().CurrentWave)
}

func TestUpdate_CannotChangePhase(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(func(st *WorkflowState) { st.Phase = phase.PhaseExecute })
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestSpecLock_Monotonic(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.LockSpec())
	assert.True(t, s.Current().SpecLocked)

	err := s.Update(func(st *WorkflowState) { st.SpecLocked = false })
	require.ErrorIs(t, err, ErrSpecLockViolation)
	assert.True(t, s.Current().SpecLocked)

	// Locking again is a no-op, not an error.
	require.NoError(t, s.LockSpec())
}

func TestReset_ClearsEverything(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Transition(phase.PhasePlan))
	require.NoError(t, s.LockSpec())
	require.NoError(t, s.Update(func(st *WorkflowState) {
		st.TotalWaves = 4
		st.CurrentWave = 1
	}))

	require.NoError(t, s.Reset())
	cur := s.Current()
	assert.Equal(t, phase.PhaseIdle, cur.Phase)
	assert.False(t, cur.SpecLocked)
	assert.Zero(t, cur.CurrentWave)
	assert.Zero(t, cur.TotalWaves)
}

func TestRestore_ValidSnapshot(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Transition(phase.PhasePlan))

	snap := WorkflowState{Phase: phase.PhaseExecute, SpecLocked: true, CurrentWave: 1, TotalWaves: 2}
	require.NoError(t, s.Restore(snap))
	assert.Equal(t, phase.PhaseExecute, s.Current().Phase)
	assert.True(t, s.Current().SpecLocked)
}

func TestRestore_InvalidSnapshotLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Transition(phase.PhasePlan))

	err := s.Restore(WorkflowState{Phase: phase.PhaseExecute, CurrentWave: 9, TotalWaves: 2})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, phase.PhasePlan, s.Current().Phase)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		state WorkflowState
		ok    bool
	}{
		{"idle default", WorkflowState{Phase: phase.PhaseIdle}, true},
		{"waves in range", WorkflowState{Phase: phase.PhaseExecute, CurrentWave: 2, TotalWaves: 2}, true},
		{"unknown phase", WorkflowState{Phase: "deploy"}, false},
		{"negative wave", WorkflowState{Phase: phase.PhaseExecute, CurrentWave: -1}, false},
		{"wave overflow", WorkflowState{Phase: phase.PhaseExecute, CurrentWave: 3, TotalWaves: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.state)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidState)
			}
		})
	}
}
