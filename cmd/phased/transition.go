package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/phasehook"
	"github.com/fyrsmithlabs/phased/internal/state"
)

var (
	transitionForce   bool
	transitionSummary string
	waveCurrent       int
	waveTotal         int
)

func init() {
	rootCmd.AddCommand(transitionCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(waveCmd)

	transitionCmd.Flags().BoolVar(&transitionForce, "force", false, "skip the required-document gate")
	transitionCmd.Flags().StringVar(&transitionSummary, "summary", "", "summary captured into memory on phase exit")

	waveCmd.Flags().IntVar(&waveCurrent, "current", -1, "current wave number")
	waveCmd.Flags().IntVar(&waveTotal, "total", -1, "total wave count")
}

var transitionCmd = &cobra.Command{
	Use:   "transition <phase>",
	Short: "Advance the workflow to the next phase",
	Long: `Advance the workflow to a later phase in the lifecycle:
idle -> plan -> research -> specify -> execute -> accept.

Backward movement is rejected; use phased reset to start over. The
transition is gated on the target phase's required documents unless
--force is given. On success, the memory hook captures a distilled entry
for the departing phase and recalls relevant memories for the new one.

Examples:
  phased transition plan
  phased transition specify --summary "locked API surface"
  phased transition execute --force`,
	Args: cobra.ExactArgs(1),
	RunE: runTransition,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the workflow to idle",
	Long: `Reset the workflow to idle. This is the only backward path: it clears
the spec lock, the acceptance flag, and the wave counters.`,
	RunE: runReset,
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the specification",
	Long: `Mark the specification as locked. The lock is monotonic: once set it
survives every phase transition and only phased reset clears it.`,
	RunE: runLock,
}

var waveCmd = &cobra.Command{
	Use:   "wave",
	Short: "Update execution wave progress",
	Long: `Update the current and total wave counters. The current wave can never
exceed the total.

Examples:
  phased wave --total 4
  phased wave --current 2`,
	RunE: runWave,
}

func runTransition(cmd *cobra.Command, args []string) error {
	to := phase.Phase(args[0])
	if !to.Valid() {
		return fmt.Errorf("unknown phase %q (want one of: %s)", args[0], phaseNames())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	from := a.store.Current().Phase

	if !transitionForce {
		v, err := a.validator()
		if err != nil {
			return err
		}
		result := v.ValidateTransition(ctx, from, to)
		if !result.Allowed {
			return fmt.Errorf("%s", result.Reason)
		}
	}

	if err := a.store.Transition(to); err != nil {
		return err
	}

	// Memory is best-effort: a failed hook never rolls back the transition.
	var hook *phasehook.Hook
	if memories, err := a.memories(); err != nil {
		a.logger.Warn("memory unavailable, skipping phase hooks", zap.Error(err))
		hook = a.hook(nil)
	} else {
		hook = a.hook(memories)
	}

	exitData := map[string]string{"project": a.projectName()}
	if transitionSummary != "" {
		exitData["summary"] = transitionSummary
	}
	hook.OnPhaseExit(ctx, from, to, exitData)
	recalled := hook.OnPhaseEnter(ctx, to, transitionSummary)

	if outputJSONFmt {
		return outputJSON(map[string]interface{}{
			"from":     from,
			"to":       to,
			"recalled": recalled,
		})
	}

	fmt.Printf("Transitioned %s -> %s\n", from, to)
	for _, content := range recalled {
		fmt.Printf("\nRecalled: %s\n", content)
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	from := a.store.Current().Phase
	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Printf("Reset %s -> %s\n", from, phase.PhaseIdle)
	return nil
}

func runLock(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.store.LockSpec(); err != nil {
		return err
	}
	fmt.Println("Specification locked")
	return nil
}

func runWave(cmd *cobra.Command, args []string) error {
	if waveCurrent < 0 && waveTotal < 0 {
		return fmt.Errorf("nothing to update: pass --current and/or --total")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.store.Update(func(st *state.WorkflowState) {
		if waveCurrent >= 0 {
			st.CurrentWave = waveCurrent
		}
		if waveTotal >= 0 {
			st.TotalWaves = waveTotal
		}
	}); err != nil {
		return err
	}

	st := a.store.Current()
	fmt.Printf("Wave %d/%d\n", st.CurrentWave, st.TotalWaves)
	return nil
}

func phaseNames() string {
	names := make([]string, 0, len(phase.Phases()))
	for _, p := range phase.Phases() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
