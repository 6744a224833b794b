package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Store persists WorkflowState with an atomic load-mutate-persist contract.
//
// All writes go through Transition, Update, Reset, or Restore; each validates
// the resulting state before persisting and persists via a temp-file rename so
// a crash can never leave a partially written state file. Reads may proceed
// concurrently with other reads.
type Store struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	cur WorkflowState
}

// NewStore opens (or initializes) the state file at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.cur = initialState()
	case err != nil:
		return nil, fmt.Errorf("reading state file: %w", err)
	default:
		var loaded WorkflowState
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parsing state file %s: %w", path, err)
		}
		if err := Validate(loaded); err != nil {
			return nil, fmt.Errorf("state file %s: %w", path, err)
		}
		s.cur = loaded
	}

	return s, nil
}

// Current returns a copy of the current state.
func (s *Store) Current() WorkflowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Transition moves the workflow forward to the target phase.
//
// Only forward movement along the lifecycle is permitted; going backward
// requires an explicit Reset or a checkpoint Restore.
func (s *Store) Transition(to phase.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !to.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrIllegalTransition, to)
	}
	from := s.cur.Phase
	if to.Index() <= from.Index() {
		return fmt.Errorf("%w: %s -> %s (only forward transitions are allowed; use reset to go back)",
			ErrIllegalTransition, from, to)
	}

	next := s.cur
	next.Phase = to
	next.LastActivity = timeNow()

	if err := s.persist(next); err != nil {
		return err
	}
	s.cur = next

	s.logger.Info("phase transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// Update applies a mutation to a copy of the current state, enforces the
// state invariants, and persists the result. The phase and the spec lock
// cannot be changed through Update: phase changes go through Transition and
// the spec lock only ever moves false -> true.
func (s *Store) Update(fn func(*WorkflowState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	fn(&next)

	if next.Phase != s.cur.Phase {
		return fmt.Errorf("%w: phase changes must go through Transition", ErrIllegalTransition)
	}
	if s.cur.SpecLocked && !next.SpecLocked {
		return ErrSpecLockViolation
	}
	if err := Validate(next); err != nil {
		return err
	}

	next.LastActivity = timeNow()
	if err := s.persist(next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

// LockSpec sets the monotonic spec lock.
func (s *Store) LockSpec() error {
	return s.Update(func(st *WorkflowState) { st.SpecLocked = true })
}

// Touch refreshes the last-activity timestamp.
func (s *Store) Touch() error {
	return s.Update(func(st *WorkflowState) {})
}

// Reset returns the workflow to the idle phase, clearing all flags and
// counters. This is the only path that clears the spec lock.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := initialState()
	next.LastActivity = timeNow()
	if err := s.persist(next); err != nil {
		return err
	}
	prev := s.cur.Phase
	s.cur = next

	s.logger.Info("workflow reset", zap.String("from", string(prev)))
	return nil
}

// Restore replaces the live state with a validated snapshot. Used by the
// checkpoint manager; the snapshot is validated in full before any mutation,
// and a validation failure leaves live state untouched.
func (s *Store) Restore(snapshot WorkflowState) error {
	if err := Validate(snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(snapshot); err != nil {
		return err
	}
	s.cur = snapshot

	s.logger.Info("state restored", zap.String("phase", string(snapshot.Phase)))
	return nil
}

// persist writes the state atomically via temp file + rename.
// Caller holds the write lock.
func (s *Store) persist(st WorkflowState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
