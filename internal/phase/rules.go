package phase

// Rule describes what a phase requires and forbids.
//
// Rules are built once at package init and are read-only to callers;
// Enforcement returns copies so a caller can never mutate the table.
type Rule struct {
	// Phase is the phase this rule applies to.
	Phase Phase

	// MustDo lists required behaviors for the phase. Never empty.
	MustDo []string

	// MustNotDo lists forbidden behaviors for the phase. Never empty.
	MustNotDo []string

	// RequiredDocuments are the artifact file names the phase must produce.
	RequiredDocuments []string

	// DelegationReminder, when set, is appended to rendered enforcement text.
	DelegationReminder string
}

// Phase document artifact names. Templates are resolved by the lowercase
// form of these names (SPEC.md -> spec.md).
const (
	DocSpec     = "SPEC.md"     // requirements contract
	DocPlan     = "PLAN.md"     // execution blueprint
	DocProgress = "PROGRESS.md" // progress chronicle
	DocResearch = "RESEARCH.md" // research log
)

// rules is the static enforcement table, keyed by the closed phase enum.
var rules = map[Phase]Rule{
	PhaseIdle: {
		Phase: PhaseIdle,
		MustDo: []string{
			"Wait for a workflow to be started before doing substantive work",
			"Review any prior session summaries before picking up a task",
		},
		MustNotDo: []string{
			"Start implementation work without an active workflow",
			"Delegate tasks while no workflow is in progress",
		},
	},
	PhasePlan: {
		Phase: PhasePlan,
		MustDo: []string{
			"Capture goals, constraints, and rough scope in the requirements contract",
			"Classify requirements as must-have or out-of-scope",
			"Record open questions that research must answer",
		},
		MustNotDo: []string{
			"Write or modify implementation code",
			"Delegate work before anything concrete exists to delegate",
			"Lock the specification before research is complete",
		},
		RequiredDocuments: []string{DocSpec},
	},
	PhaseResearch: {
		Phase: PhaseResearch,
		MustDo: []string{
			"Investigate the codebase areas the plan identified",
			"Record findings, references, and dead ends in the research log",
			"Answer the open questions carried over from planning",
		},
		MustNotDo: []string{
			"Write or modify implementation code",
			"Expand scope beyond what the plan captured",
		},
		RequiredDocuments: []string{DocResearch},
	},
	PhaseSpecify: {
		Phase: PhaseSpecify,
		MustDo: []string{
			"Finalize the requirements contract and lock it",
			"Break the work into waves in the execution blueprint",
			"State acceptance criteria for every must-have requirement",
		},
		MustNotDo: []string{
			"Write or modify implementation code",
			"Leave must-have requirements without acceptance criteria",
			"Reopen locked decisions without an explicit amendment",
		},
		RequiredDocuments: []string{DocSpec, DocPlan},
	},
	PhaseExecute: {
		Phase: PhaseExecute,
		MustDo: []string{
			"Delegate each wave's tasks to an executor",
			"Update the progress chronicle as waves complete",
			"Verify delegated work against the locked specification",
		},
		MustNotDo: []string{
			"Write implementation code directly instead of delegating",
			"Change the locked specification mid-wave",
			"Skip waves or reorder them without updating the blueprint",
		},
		RequiredDocuments: []string{DocPlan, DocProgress},
		DelegationReminder: "Code changes in the execute phase flow through a delegated executor. " +
			"Describe the task, point at the blueprint wave, and review the result; do not edit implementation files in place.",
	},
	PhaseAccept: {
		Phase: PhaseAccept,
		MustDo: []string{
			"Check every acceptance criterion against the delivered work",
			"Apply remedial fixes for criteria that fail",
			"Record the final outcome in the progress chronicle",
		},
		MustNotDo: []string{
			"Add new features beyond remedial fixes",
			"Confirm acceptance with unverified criteria outstanding",
		},
		RequiredDocuments: []string{DocProgress},
	},
}

// Enforcement returns the rule for a phase. The boolean is false for phases
// outside the closed enum; the rule returned is then the zero value. It never
// fails and has no side effects.
func Enforcement(p Phase) (Rule, bool) {
	r, ok := rules[p]
	if !ok {
		return Rule{}, false
	}
	return copyRule(r), true
}

// RequiredDocuments returns the artifact names a phase must produce.
// Unknown phases have no required documents.
func RequiredDocuments(p Phase) []string {
	r, ok := rules[p]
	if !ok {
		return nil
	}
	out := make([]string, len(r.RequiredDocuments))
	copy(out, r.RequiredDocuments)
	return out
}

func copyRule(r Rule) Rule {
	out := r
	out.MustDo = append([]string(nil), r.MustDo...)
	out.MustNotDo = append([]string(nil), r.MustNotDo...)
	out.RequiredDocuments = append([]string(nil), r.RequiredDocuments...)
	return out
}
