// Package phasehook bridges phase transitions to the memory store: relevant
// memories are recalled when a phase is entered and a distilled entry is
// saved when a phase is exited.
//
// Both directions are strictly best-effort. Recall failures degrade to an
// empty result and save failures are logged and dropped; a phase transition
// is never blocked by memory being unavailable, and the no-throw guarantee
// is visible in the signatures (no error returns).
package phasehook

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/memory"
	"github.com/fyrsmithlabs/phased/internal/phase"
)

// SearchLimit is the number of memories recalled on phase entry.
const SearchLimit = 5

// Memories is the slice of the memory service the hook depends on.
type Memories interface {
	Save(ctx context.Context, input memory.SaveInput) (memory.Entry, error)
	Search(ctx context.Context, req memory.SearchRequest) ([]memory.SearchResult, error)
}

// Config configures hook behavior.
type Config struct {
	// Enabled gates both entry recall and exit capture. Default true.
	Enabled bool

	// AutoSave gates exit capture independently. Default true.
	AutoSave bool

	// Importance overrides the per-phase baseline importance of captured
	// entries. Phases absent from the map use the defaults.
	Importance map[phase.Phase]float64
}

// DefaultConfig returns the default hook configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, AutoSave: true}
}

// defaultImportance is the baseline importance of entries captured on phase
// exit. Specify ranks highest: a locked contract is the most consequential
// artifact to recall later.
var defaultImportance = map[phase.Phase]float64{
	phase.PhasePlan:     0.6,
	phase.PhaseResearch: 0.7,
	phase.PhaseSpecify:  0.8,
	phase.PhaseExecute:  0.5,
	phase.PhaseAccept:   0.7,
}

// Hook wires phase transitions to the memory store.
type Hook struct {
	config   Config
	memories Memories
	logger   *zap.Logger
}

// New creates a Hook. A nil memories store is tolerated: every recall comes
// back empty and every capture is skipped, so callers without a working
// memory backend still get a usable no-op hook.
func New(cfg Config, memories Memories, logger *zap.Logger) *Hook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hook{config: cfg, memories: memories, logger: logger}
}

// OnPhaseEnter recalls memories relevant to the phase being entered and
// returns their content strings. Never fails: any search error is logged and
// degraded to nil.
func (h *Hook) OnPhaseEnter(ctx context.Context, p phase.Phase, contextStr string) []string {
	if !h.config.Enabled || h.memories == nil {
		return nil
	}

	query, concepts := entryQuery(p, contextStr)
	if query == "" {
		return nil
	}

	results, err := h.memories.Search(ctx, memory.SearchRequest{
		Query:    query,
		Concepts: concepts,
		Limit:    SearchLimit,
	})
	if err != nil {
		h.logger.Warn("memory recall failed, continuing without",
			zap.String("phase", string(p)),
			zap.Error(err),
		)
		return nil
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Memory.Content)
	}

	h.logger.Debug("recalled memories on phase entry",
		zap.String("phase", string(p)),
		zap.Int("count", len(contents)),
	)
	return contents
}

// OnPhaseExit captures a distilled entry for the departing phase. Idle
// produces no entry. Save failures are logged, never propagated.
func (h *Hook) OnPhaseExit(ctx context.Context, from, to phase.Phase, data map[string]string) {
	if !h.config.Enabled || !h.config.AutoSave || h.memories == nil {
		return
	}

	input, ok := exitEntry(from, data)
	if !ok {
		return
	}
	input.Importance = h.importanceFor(from)

	if _, err := h.memories.Save(ctx, input); err != nil {
		h.logger.Warn("memory capture failed, continuing without",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return
	}

	h.logger.Debug("captured memory on phase exit",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("type", string(input.Type)),
	)
}

func (h *Hook) importanceFor(p phase.Phase) float64 {
	if v, ok := h.config.Importance[p]; ok {
		return v
	}
	if v, ok := defaultImportance[p]; ok {
		return v
	}
	return 0.5
}
