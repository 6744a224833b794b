package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/phased/internal/phase"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current workflow state",
	Long: `Show the current phase, lock flags, wave progress, and which required
documents exist for the current phase.

Examples:
  # Human-readable status
  phased status

  # Machine-readable status
  phased status --json`,
	RunE: runStatus,
}

type statusOutput struct {
	Phase               phase.Phase `json:"phase"`
	Mode                string      `json:"mode,omitempty"`
	SpecLocked          bool        `json:"spec_locked"`
	AcceptanceConfirmed bool        `json:"acceptance_confirmed"`
	CurrentWave         int         `json:"current_wave"`
	TotalWaves          int         `json:"total_waves"`
	LastActivity        string      `json:"last_activity,omitempty"`
	RequiredDocuments   []string    `json:"required_documents"`
	MissingDocuments    []string    `json:"missing_documents"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	st := a.store.Current()
	required := phase.RequiredDocuments(st.Phase)

	sc, err := a.scaffolder()
	if err != nil {
		return err
	}
	check := sc.Check(context.Background(), string(st.Phase), st.Phase)

	out := statusOutput{
		Phase:               st.Phase,
		Mode:                st.Mode,
		SpecLocked:          st.SpecLocked,
		AcceptanceConfirmed: st.AcceptanceConfirmed,
		CurrentWave:         st.CurrentWave,
		TotalWaves:          st.TotalWaves,
		RequiredDocuments:   required,
		MissingDocuments:    check.Missing,
	}
	if !st.LastActivity.IsZero() {
		out.LastActivity = st.LastActivity.Format("2006-01-02 15:04:05")
	}

	if outputJSONFmt {
		return outputJSON(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Phase:\t%s\n", out.Phase)
	if out.Mode != "" {
		fmt.Fprintf(w, "Mode:\t%s\n", out.Mode)
	}
	fmt.Fprintf(w, "Spec locked:\t%s\n", yesNo(out.SpecLocked))
	fmt.Fprintf(w, "Acceptance confirmed:\t%s\n", yesNo(out.AcceptanceConfirmed))
	if out.TotalWaves > 0 {
		fmt.Fprintf(w, "Wave:\t%d/%d\n", out.CurrentWave, out.TotalWaves)
	}
	if out.LastActivity != "" {
		fmt.Fprintf(w, "Last activity:\t%s\n", out.LastActivity)
	}
	if len(required) > 0 {
		fmt.Fprintf(w, "Required documents:\t%s\n", strings.Join(required, ", "))
		if len(check.Missing) > 0 {
			fmt.Fprintf(w, "Missing documents:\t%s\n", strings.Join(check.Missing, ", "))
		} else {
			fmt.Fprintf(w, "Missing documents:\tnone\n")
		}
	}
	return w.Flush()
}
