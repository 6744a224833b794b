package phasehook

import (
	"fmt"

	"github.com/fyrsmithlabs/phased/internal/memory"
	"github.com/fyrsmithlabs/phased/internal/phase"
)

// entryQuery builds the recall query and concept filter for a phase being
// entered. Idle passes the caller's context through with no concept filter.
func entryQuery(p phase.Phase, contextStr string) (string, []string) {
	switch p {
	case phase.PhaseIdle:
		return contextStr, nil
	case phase.PhasePlan:
		return "goals, scope decisions, and constraints relevant to: " + contextStr,
			[]string{"planning", "scope", "decision"}
	case phase.PhaseResearch:
		return "prior findings, references, and dead ends relevant to: " + contextStr,
			[]string{"research", "finding", "codebase"}
	case phase.PhaseSpecify:
		return "locked requirements and acceptance criteria relevant to: " + contextStr,
			[]string{"specification", "requirement", "decision"}
	case phase.PhaseExecute:
		return "implementation strategies and pitfalls relevant to: " + contextStr,
			[]string{"execution", "implementation", "pitfall"}
	case phase.PhaseAccept:
		return "acceptance outcomes and remedial fixes relevant to: " + contextStr,
			[]string{"acceptance", "verification", "fix"}
	}
	return "", nil
}

// fallback returns the first non-empty value among the given keys, or an
// explicit marker so a captured entry never has silently empty sections.
// Templates list a generic "summary" key after their primary field so a
// caller that only has a free-form summary still produces a useful entry.
func fallback(data map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != "" {
			return v
		}
	}
	return "Not specified"
}

// exitEntry builds the memory entry captured when a phase is departed.
// The template is keyed by the departing phase; idle produces none. Each
// template fixes the entry type; importance is applied by the caller.
func exitEntry(from phase.Phase, data map[string]string) (memory.SaveInput, bool) {
	project := fallback(data, "project")

	switch from {
	case phase.PhasePlan:
		return memory.SaveInput{
			Type:  memory.TypeDecision,
			Title: fmt.Sprintf("Plan outcomes: %s", project),
			Content: fmt.Sprintf("Goals: %s\nScope: %s\nOpen questions: %s",
				fallback(data, "goals", "summary"),
				fallback(data, "scope"),
				fallback(data, "open_questions")),
			Concepts: []string{"planning", "scope", "decision"},
		}, true
	case phase.PhaseResearch:
		return memory.SaveInput{
			Type:  memory.TypeObservation,
			Title: fmt.Sprintf("Research findings: %s", project),
			Content: fmt.Sprintf("Findings: %s\nReferences: %s\nDead ends: %s",
				fallback(data, "findings", "summary"),
				fallback(data, "references"),
				fallback(data, "dead_ends")),
			Concepts: []string{"research", "finding", "codebase"},
		}, true
	case phase.PhaseSpecify:
		return memory.SaveInput{
			Type:  memory.TypeDecision,
			Title: fmt.Sprintf("Locked specification: %s", project),
			Content: fmt.Sprintf("Must-haves: %s\nOut of scope: %s\nAcceptance criteria: %s",
				fallback(data, "must_haves", "summary"),
				fallback(data, "out_of_scope"),
				fallback(data, "acceptance_criteria")),
			Concepts: []string{"specification", "requirement", "decision"},
		}, true
	case phase.PhaseExecute:
		return memory.SaveInput{
			Type:  memory.TypeSessionSummary,
			Title: fmt.Sprintf("Execution summary: %s", project),
			Content: fmt.Sprintf("Waves completed: %s\nStrategies: %s\nPitfalls: %s",
				fallback(data, "waves_completed"),
				fallback(data, "strategies", "summary"),
				fallback(data, "pitfalls")),
			Concepts: []string{"execution", "implementation", "pitfall"},
		}, true
	case phase.PhaseAccept:
		return memory.SaveInput{
			Type:  memory.TypeNote,
			Title: fmt.Sprintf("Acceptance outcome: %s", project),
			Content: fmt.Sprintf("Outcome: %s\nRemedial fixes: %s\nFollow-ups: %s",
				fallback(data, "outcome", "summary"),
				fallback(data, "fixes"),
				fallback(data, "follow_ups")),
			Concepts: []string{"acceptance", "verification", "fix"},
		}, true
	}
	return memory.SaveInput{}, false
}
