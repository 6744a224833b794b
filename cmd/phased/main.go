// Package main implements the phased CLI for phase-gated workflow operations.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/checkpoint"
	"github.com/fyrsmithlabs/phased/internal/config"
	"github.com/fyrsmithlabs/phased/internal/embeddings"
	"github.com/fyrsmithlabs/phased/internal/logging"
	"github.com/fyrsmithlabs/phased/internal/memory"
	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/phasehook"
	"github.com/fyrsmithlabs/phased/internal/scaffold"
	"github.com/fyrsmithlabs/phased/internal/state"
	"github.com/fyrsmithlabs/phased/internal/validate"
	"github.com/fyrsmithlabs/phased/internal/workspace"
)

var (
	// global flags
	flagConfig    string
	flagWorkspace string
	outputJSONFmt bool

	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phased",
	Short: "Phase-gated development workflow coordinator",
	Long: `phased coordinates a phase-gated development workflow:
idle -> plan -> research -> specify -> execute -> accept.

Each phase carries enforcement rules, required documents, and a semantic
memory hook that recalls relevant knowledge on entry and captures a
distilled entry on exit. All workflow metadata lives under the workspace
directory (.phased by default).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default <workspace>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace metadata directory (default .phased)")
	rootCmd.PersistentFlags().BoolVar(&outputJSONFmt, "json", false, "Output results as JSON")
}

// app holds the wired services a command needs. Memory and embeddings are
// built lazily: most commands never touch them and should not pay for a
// vector index open.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	layout *workspace.Layout
	store  *state.Store
}

func newApp() (*app, error) {
	root := flagWorkspace

	configPath := flagConfig
	if configPath == "" {
		dir := root
		if dir == "" {
			dir = workspace.DefaultDirName
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if root != "" {
		cfg.Workspace.Root = root
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	layout, err := workspace.NewLayout(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}

	store, err := state.NewStore(layout.StateFile(), logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, layout: layout, store: store}, nil
}

func (a *app) projectName() string {
	if a.cfg.Workspace.ProjectName != "" {
		return a.cfg.Workspace.ProjectName
	}
	wd, err := os.Getwd()
	if err != nil {
		return "project"
	}
	return filepath.Base(wd)
}

func (a *app) scaffolder() (*scaffold.Scaffolder, error) {
	return scaffold.New(scaffold.Config{
		ProjectName:  a.projectName(),
		TemplateDirs: []string{a.layout.TemplatesDir()},
	}, a.layout, a.logger)
}

func (a *app) validator() (*validate.Validator, error) {
	sc, err := a.scaffolder()
	if err != nil {
		return nil, err
	}
	return validate.New(validate.Config{
		StrictMode: a.cfg.Validation.StrictMode,
	}, sc, a.logger), nil
}

func (a *app) checkpoints() (*checkpoint.Service, error) {
	return checkpoint.NewService(checkpoint.Config{
		MaxCheckpoints: a.cfg.Checkpoint.MaxCheckpoints,
	}, a.layout, a.store, a.logger)
}

func (a *app) memories() (*memory.Service, error) {
	provider, err := embeddings.NewService(embeddings.Config{
		BaseURL:   a.cfg.Embeddings.BaseURL,
		Model:     a.cfg.Embeddings.Model,
		Dimension: a.cfg.Embeddings.Dimension,
		Timeout:   a.cfg.Embeddings.Timeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	return memory.NewService(memory.Config{
		Path:         a.layout.MemoryDir(),
		Collection:   a.cfg.Memory.Collection,
		TitleMaxLen:  a.cfg.Memory.TitleMaxLen,
		EmbedTimeout: a.cfg.Memory.EmbedTimeout,
		Compress:     a.cfg.Memory.Compress,
		Weights: memory.Weights{
			Similarity:     a.cfg.Memory.SimilarityWeight,
			ConceptOverlap: a.cfg.Memory.ConceptOverlapWeight,
			Importance:     a.cfg.Memory.ImportanceWeight,
		},
	}, provider, a.logger)
}

func (a *app) hook(memories phasehook.Memories) *phasehook.Hook {
	importance := make(map[phase.Phase]float64, len(a.cfg.Hook.Importance))
	for name, v := range a.cfg.Hook.Importance {
		importance[phase.Phase(name)] = v
	}
	return phasehook.New(phasehook.Config{
		Enabled:    a.cfg.Hook.Enabled,
		AutoSave:   a.cfg.Hook.AutoSave,
		Importance: importance,
	}, memories, a.logger)
}

// outputJSON prints data as indented JSON to stdout.
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// truncate shortens a string for table display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// yesNo renders a boolean for table display.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
