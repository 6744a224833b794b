package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/validate"
)

var enforcePath string

func init() {
	rootCmd.AddCommand(enforceCmd)
	enforceCmd.AddCommand(enforceCheckCmd)

	enforceCheckCmd.Flags().StringVar(&enforcePath, "path", "", "file path to validate for write operations")
}

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Print the enforcement context for the current phase",
	Long: `Print the full enforcement context for the current phase: the MUST DO
and MUST NOT DO rules plus the workflow state summary. The output is meant
to be injected into an agent prompt or displayed to a developer.

Examples:
  # Print enforcement context
  phased enforce

  # Check whether an operation is allowed right now
  phased enforce check write_code --path src/server.go`,
	RunE: runEnforce,
}

var enforceCheckCmd = &cobra.Command{
	Use:   "check <operation>",
	Short: "Check whether an operation is allowed in the current phase",
	Long: `Check one operation against the current phase's rules.

Operations: write_code, create_doc, delegate, transition.

For write_code with --path, the path is also classified and checked against
the write policy; violations are advisory unless strict mode is configured.

Examples:
  phased enforce check write_code --path src/server.go
  phased enforce check delegate`,
	Args: cobra.ExactArgs(1),
	RunE: runEnforceCheck,
}

func runEnforce(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	st := a.store.Current()
	if outputJSONFmt {
		return outputJSON(map[string]string{
			"phase":   string(st.Phase),
			"context": phase.BuildContext(st.Phase, st.Info()),
		})
	}

	fmt.Print(phase.BuildContext(st.Phase, st.Info()))
	return nil
}

type checkOutput struct {
	Phase     phase.Phase     `json:"phase"`
	Operation phase.Operation `json:"operation"`
	Allowed   bool            `json:"allowed"`
	Reason    string          `json:"reason,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}

func runEnforceCheck(cmd *cobra.Command, args []string) error {
	op := phase.Operation(args[0])
	switch op {
	case phase.OpWriteCode, phase.OpCreateDoc, phase.OpDelegate, phase.OpTransition:
	default:
		return fmt.Errorf("unknown operation %q (want write_code, create_doc, delegate, or transition)", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	st := a.store.Current()
	decision := phase.OperationAllowed(st.Phase, op)

	out := checkOutput{
		Phase:     st.Phase,
		Operation: op,
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
	}

	if op == phase.OpWriteCode && enforcePath != "" {
		v, err := a.validator()
		if err != nil {
			return err
		}
		result := v.ValidateWrite(st.Phase, enforcePath)
		out.Warning = validate.ValidationWarning(result)
		if result.ShouldBlock {
			out.Allowed = false
		}
	}

	if outputJSONFmt {
		return outputJSON(out)
	}

	if out.Allowed {
		fmt.Printf("allowed: %s in %s phase\n", op, st.Phase)
	} else {
		fmt.Printf("denied: %s\n", out.Reason)
	}
	if out.Warning != "" {
		fmt.Println(out.Warning)
	}
	if !out.Allowed {
		return fmt.Errorf("operation %s not allowed in %s phase", op, st.Phase)
	}
	return nil
}
