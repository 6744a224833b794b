package phase

import (
	"fmt"
	"strings"
)

// Decision is the outcome of an operation check. When Allowed is false,
// Reason explains why in a form suitable for direct display.
type Decision struct {
	Allowed bool
	Reason  string
}

// OperationAllowed reports whether an operation is permitted in a phase.
//
// It is total over the (phase, operation) domain: unknown phases and
// operations yield an allowed decision, since enforcement text is advisory.
// Transition legality is owned by the validators, which additionally check
// document presence; this function always allows OpTransition.
func OperationAllowed(p Phase, op Operation) Decision {
	switch op {
	case OpWriteCode:
		switch p {
		case PhasePlan, PhaseResearch, PhaseSpecify:
			return Decision{
				Allowed: false,
				Reason: fmt.Sprintf("code changes are not permitted during the %s phase; "+
					"capture the work in phase documents instead", p),
			}
		case PhaseExecute:
			return Decision{
				Allowed: false,
				Reason: "code changes in the execute phase must be delegated to an executor, " +
					"not written directly",
			}
		}
		return Decision{Allowed: true}
	case OpCreateDoc:
		return Decision{Allowed: true}
	case OpDelegate:
		switch p {
		case PhaseIdle, PhasePlan:
			return Decision{
				Allowed: false,
				Reason: fmt.Sprintf("nothing concrete exists to delegate during the %s phase; "+
					"delegation starts once research is underway", p),
			}
		}
		return Decision{Allowed: true}
	case OpTransition:
		return Decision{Allowed: true}
	}
	return Decision{Allowed: true}
}

// BuildEnforcement renders a phase's rule as a human-readable block.
// Unknown phases render as an empty string.
func BuildEnforcement(p Phase, st StateInfo) string {
	rule, ok := rules[p]
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PHASE: %s\n\n", strings.ToUpper(string(p)))

	b.WriteString("MUST DO:\n")
	for _, item := range rule.MustDo {
		fmt.Fprintf(&b, "  - %s\n", item)
	}

	b.WriteString("\nMUST NOT DO:\n")
	for _, item := range rule.MustNotDo {
		fmt.Fprintf(&b, "  - %s\n", item)
	}

	if len(rule.RequiredDocuments) > 0 {
		fmt.Fprintf(&b, "\nREQUIRED DOCUMENTS: %s\n", strings.Join(rule.RequiredDocuments, ", "))
	}

	if p == PhaseExecute && rule.DelegationReminder != "" {
		b.WriteString("\nDELEGATION:\n")
		fmt.Fprintf(&b, "  %s\n", rule.DelegationReminder)
		b.WriteString("  Example: \"Implement wave 2 task 3 from PLAN.md; report back with the diff and test results.\"\n")
	}

	return b.String()
}

// BuildStateContext renders the current counters and lock flags.
func BuildStateContext(st StateInfo) string {
	var b strings.Builder
	b.WriteString("STATE:\n")
	fmt.Fprintf(&b, "  phase: %s\n", st.Phase)
	if st.Mode != "" {
		fmt.Fprintf(&b, "  mode: %s\n", st.Mode)
	}
	fmt.Fprintf(&b, "  spec locked: %t\n", st.SpecLocked)
	fmt.Fprintf(&b, "  acceptance confirmed: %t\n", st.AcceptanceConfirmed)
	if st.TotalWaves > 0 {
		fmt.Fprintf(&b, "  wave: %d/%d\n", st.CurrentWave, st.TotalWaves)
	}
	if !st.LastActivity.IsZero() {
		fmt.Fprintf(&b, "  last activity: %s\n", st.LastActivity.Format("2006-01-02 15:04:05 MST"))
	}
	return b.String()
}

// BuildContext concatenates the enforcement block and the state context.
// Unknown phases yield only the state context portion.
func BuildContext(p Phase, st StateInfo) string {
	enforcement := BuildEnforcement(p, st)
	state := BuildStateContext(st)
	if enforcement == "" {
		return state
	}
	return enforcement + "\n" + state
}
