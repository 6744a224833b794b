package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/phased/internal/workspace"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the workspace metadata directory",
	Long: `Initialize the workspace metadata directory (.phased by default):
the phases, checkpoints, memory, and templates directories, a starter
config file, and the initial idle state.

Running init in an already-initialized workspace is a no-op; nothing is
overwritten.`,
	RunE: runInit,
}

const starterConfig = `# phased configuration. Every field is optional.
#
# workspace:
#   project_name: my-project
# logging:
#   level: info        # debug, info, warn, error
#   format: console    # console or json
# embeddings:
#   base_url: http://localhost:8080
#   model: BAAI/bge-small-en-v1.5
# memory:
#   collection: phased_memories
# hook:
#   enabled: true
#   auto_save: true
# checkpoint:
#   max_checkpoints: 10
# validation:
#   strict_mode: false
`

// starterTemplates seed the workspace templates directory so scaffolded
// documents have a useful shape out of the box. Users edit them freely;
// init never overwrites an existing template.
var starterTemplates = map[string]string{
	"spec.md": `# {{project_name}} Specification

Phase: {{phase_name}}

## Must-haves

## Out of scope

## Acceptance criteria
`,
	"plan.md": `# {{project_name}} Plan

Phase: {{phase_name}}

## Goals

## Approach

## Waves
`,
	"progress.md": `# {{project_name}} Progress

Phase: {{phase_name}}

## Completed

## In flight

## Blocked
`,
	"research.md": `# {{project_name}} Research

Phase: {{phase_name}}

## Findings

## References

## Dead ends
`,
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	for _, dir := range []string{
		a.layout.Root(),
		a.layout.PhasesDir(),
		a.layout.CheckpointsDir(),
		a.layout.MemoryDir(),
		a.layout.TemplatesDir(),
	} {
		if err := workspace.EnsureDir(dir); err != nil {
			return err
		}
	}

	for name, content := range starterTemplates {
		path := filepath.Join(a.layout.TemplatesDir(), name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing template %s: %w", name, err)
		}
	}

	configPath := filepath.Join(a.layout.Root(), "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(starterConfig), 0o600); err != nil {
			return fmt.Errorf("writing starter config: %w", err)
		}
	}

	// Persisting the loaded state seeds state.json for a fresh workspace.
	if err := a.store.Touch(); err != nil {
		return err
	}

	fmt.Printf("Initialized workspace at %s\n", a.layout.Root())
	return nil
}
