// Package checkpoint snapshots and restores workflow state for pause/resume.
//
// Each checkpoint is one JSON file in the checkpoints directory. Restore is
// transactional: the snapshot is parsed and validated in full before any
// live-state mutation, so a malformed or partially written checkpoint is
// rejected wholesale and never partially applied.
package checkpoint

import (
	"time"

	"github.com/fyrsmithlabs/phased/internal/state"
)

// Latest is the alias accepted by Load for the newest checkpoint.
const Latest = "latest"

// DefaultMaxCheckpoints is the retention count applied when unconfigured.
const DefaultMaxCheckpoints = 10

// Checkpoint is a durable snapshot of workflow state.
type Checkpoint struct {
	// ID is the unique checkpoint identifier.
	ID string `json:"id"`

	// Label is an optional human-readable name.
	Label string `json:"label,omitempty"`

	// State is the full workflow state snapshot.
	State state.WorkflowState `json:"state"`

	// CreatedAt is when this checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`
}
