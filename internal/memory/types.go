// Package memory provides the durable semantic memory store: typed entries
// with concept tags and importance, ranked retrieval combining embedding
// similarity, concept overlap, and importance.
package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for memory operations.
var (
	// ErrNotFound is returned when no entry exists for an ID.
	ErrNotFound = errors.New("memory entry not found")

	// ErrInvalidEntry indicates entry validation failure.
	ErrInvalidEntry = errors.New("invalid memory entry")

	// ErrEmptyQuery indicates a search with no query text.
	ErrEmptyQuery = errors.New("search query cannot be empty")

	// ErrInvalidConfig indicates invalid service configuration.
	ErrInvalidConfig = errors.New("invalid memory configuration")
)

// Type classifies a memory entry.
type Type string

const (
	// TypeDecision records a decision and its rationale.
	TypeDecision Type = "decision"

	// TypeObservation records something noticed about the codebase or domain.
	TypeObservation Type = "observation"

	// TypeNote is free-form distilled knowledge.
	TypeNote Type = "note"

	// TypeTodo records follow-up work for a later session.
	TypeTodo Type = "todo"

	// TypeSessionSummary condenses a whole working session.
	TypeSessionSummary Type = "session_summary"
)

// Valid reports whether t is a known entry type.
func (t Type) Valid() bool {
	switch t {
	case TypeDecision, TypeObservation, TypeNote, TypeTodo, TypeSessionSummary:
		return true
	}
	return false
}

// Entry is one persisted unit of distilled knowledge.
type Entry struct {
	// ID is assigned on save.
	ID string `json:"id"`

	// Type classifies the entry.
	Type Type `json:"type"`

	// Title is a brief summary, soft-capped for index efficiency.
	Title string `json:"title"`

	// Content is the main entry body.
	Content string `json:"content"`

	// Facts are atomic statements extracted from the content.
	Facts []string `json:"facts,omitempty"`

	// Concepts are lowercase tags enabling filtered retrieval. Never empty.
	Concepts []string `json:"concepts"`

	// Importance weights future retrieval ranking, in [0,1].
	Importance float64 `json:"importance"`

	// CreatedAt is immutable once set.
	CreatedAt time.Time `json:"created_at"`

	// SourceFiles are the files this knowledge was distilled from.
	SourceFiles []string `json:"source_files,omitempty"`
}

// SaveInput is the caller-supplied portion of a new entry.
type SaveInput struct {
	Type        Type
	Title       string
	Content     string
	Facts       []string
	Concepts    []string
	Importance  float64
	SourceFiles []string
}

// UpdateInput describes a partial update. Nil fields are left unchanged.
// CreatedAt can never be changed.
type UpdateInput struct {
	Title       *string
	Content     *string
	Facts       []string
	Concepts    []string
	Importance  *float64
	SourceFiles []string
}

// SearchRequest parameterizes a ranked search.
type SearchRequest struct {
	// Query is the text whose embedding drives similarity ranking.
	Query string

	// Concepts, when set, contribute a tag-overlap term to the score.
	Concepts []string

	// Limit caps the result count. Defaults to DefaultSearchLimit.
	Limit int
}

// SearchResult pairs an entry with its combined score, ordered descending.
type SearchResult struct {
	Memory Entry   `json:"memory"`
	Score  float64 `json:"score"`
}

// normalizeConcepts lowercases and trims tags, dropping empties and
// duplicates while preserving first-seen order.
func normalizeConcepts(concepts []string) []string {
	seen := make(map[string]bool, len(concepts))
	out := make([]string, 0, len(concepts))
	for _, c := range concepts {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// validateInput checks a SaveInput and returns the normalized concepts.
func validateInput(in SaveInput) ([]string, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidEntry)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidEntry)
	}
	if in.Importance < 0 || in.Importance > 1 {
		return nil, fmt.Errorf("%w: importance must be in [0,1], got %v", ErrInvalidEntry, in.Importance)
	}
	concepts := normalizeConcepts(in.Concepts)
	if len(concepts) == 0 {
		return nil, fmt.Errorf("%w: at least one concept is required", ErrInvalidEntry)
	}
	return concepts, nil
}

// truncateTitle applies the soft title cap without splitting a rune.
func truncateTitle(title string, maxLen int) string {
	if maxLen <= 0 || len(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen])
}
