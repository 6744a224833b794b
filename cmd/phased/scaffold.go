package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/scaffold"
)

var (
	scaffoldPhase string
	scaffoldVars  []string
)

func init() {
	rootCmd.AddCommand(scaffoldCmd)
	scaffoldCmd.AddCommand(scaffoldCheckCmd)

	scaffoldCmd.PersistentFlags().StringVar(&scaffoldPhase, "phase", "", "lifecycle phase the documents belong to (default: current phase)")
	scaffoldCmd.Flags().StringArrayVar(&scaffoldVars, "var", nil, "extra template token as key=value (repeatable)")
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [phase-name]",
	Short: "Create the required documents for a phase",
	Long: `Create the required documents for a phase from templates. The phase
name becomes the directory slug under the workspace phases directory;
existing documents are never overwritten.

The transition gate only inspects the directory named after the phase
itself. A custom phase name creates a separate directory for
supplementary documents; scaffold without a positional name to satisfy
the gate.

Template lookup is ordered: the workspace templates directory first, then
a built-in fallback. Templates may reference {{project_name}},
{{phase_name}}, and any token passed with --var.

Examples:
  # Scaffold the current phase's documents
  phased scaffold

  # Scaffold a named phase directory
  phased scaffold "Plan Phase" --phase plan

  # Add a custom template token
  phased scaffold --var owner=platform-team`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScaffold,
}

var scaffoldCheckCmd = &cobra.Command{
	Use:   "check [phase-name]",
	Short: "Check which required documents exist",
	Long: `Check which of a phase's required documents exist without creating
anything.

Examples:
  phased scaffold check
  phased scaffold check "Plan Phase" --phase plan`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScaffoldCheck,
}

// resolvePhaseArgs determines the target phase and its directory name from
// the optional positional argument and --phase flag.
func resolvePhaseArgs(a *app, args []string) (string, phase.Phase, error) {
	p := a.store.Current().Phase
	if scaffoldPhase != "" {
		p = phase.Phase(scaffoldPhase)
		if !p.Valid() {
			return "", "", fmt.Errorf("unknown phase %q (want one of: %s)", scaffoldPhase, phaseNames())
		}
	}

	phaseName := string(p)
	if len(args) == 1 {
		phaseName = args[0]
	}
	return phaseName, p, nil
}

// customPhaseDirNote warns when documents are being placed in a directory
// the transition gate will not look at. Empty when the name resolves to the
// phase's own directory.
func customPhaseDirNote(phaseName string, p phase.Phase) string {
	if scaffold.Sanitize(phaseName) == string(p) {
		return ""
	}
	return fmt.Sprintf("Note: the %s transition gate checks the %q directory, not %q",
		p, string(p), scaffold.Sanitize(phaseName))
}

func runScaffold(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	phaseName, p, err := resolvePhaseArgs(a, args)
	if err != nil {
		return err
	}

	extra := make(map[string]string, len(scaffoldVars))
	for _, kv := range scaffoldVars {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid --var %q (want key=value)", kv)
		}
		extra[key] = value
	}

	sc, err := a.scaffolder()
	if err != nil {
		return err
	}

	result := sc.Scaffold(context.Background(), phaseName, p, extra)

	if outputJSONFmt {
		if err := outputJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("Phase directory: %s\n", result.PhaseDir)
		if note := customPhaseDirNote(phaseName, p); note != "" {
			fmt.Println(note)
		}
		for _, doc := range result.Created {
			fmt.Printf("Created: %s\n", doc)
		}
		for _, doc := range result.Skipped {
			fmt.Printf("Skipped (exists): %s\n", doc)
		}
		for _, e := range result.Errors {
			fmt.Printf("Error: %s\n", e)
		}
	}

	if !result.Success {
		return fmt.Errorf("scaffolding incomplete: %d error(s)", len(result.Errors))
	}
	return nil
}

func runScaffoldCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	phaseName, p, err := resolvePhaseArgs(a, args)
	if err != nil {
		return err
	}

	sc, err := a.scaffolder()
	if err != nil {
		return err
	}

	result := sc.Check(context.Background(), phaseName, p)

	if outputJSONFmt {
		return outputJSON(result)
	}

	for _, doc := range result.Existing {
		fmt.Printf("Exists: %s\n", doc)
	}
	for _, doc := range result.Missing {
		fmt.Printf("Missing: %s\n", doc)
	}
	if result.Valid {
		fmt.Println("All required documents present")
	}
	return nil
}
