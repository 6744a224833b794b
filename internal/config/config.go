// Package config provides configuration loading for phased.
//
// Configuration is loaded from an optional YAML file in the workspace
// metadata directory, then overridden by environment variables. Every field
// has a sensible default so a bare repository works with zero configuration.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete phased configuration.
type Config struct {
	Workspace  WorkspaceConfig  `koanf:"workspace"`
	Logging    LoggingConfig    `koanf:"logging"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Memory     MemoryConfig     `koanf:"memory"`
	Hook       HookConfig       `koanf:"hook"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Validation ValidationConfig `koanf:"validation"`
}

// WorkspaceConfig holds workspace layout configuration.
type WorkspaceConfig struct {
	// Root is the metadata directory. Default: .phased in the working
	// directory. A leading ~ expands to the user home directory.
	Root string `koanf:"root"`

	// ProjectName fills the {{project_name}} token in scaffolded documents.
	ProjectName string `koanf:"project_name"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// EmbeddingsConfig holds the embedding server connection settings.
type EmbeddingsConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	Dimension int           `koanf:"dimension"`
	Timeout   time.Duration `koanf:"timeout"`
}

// MemoryConfig holds semantic memory configuration.
type MemoryConfig struct {
	Collection   string        `koanf:"collection"`
	TitleMaxLen  int           `koanf:"title_max_len"`
	EmbedTimeout time.Duration `koanf:"embed_timeout"`
	Compress     bool          `koanf:"compress"`

	// Search ranking weights. Must sum to a positive value.
	SimilarityWeight     float64 `koanf:"similarity_weight"`
	ConceptOverlapWeight float64 `koanf:"concept_overlap_weight"`
	ImportanceWeight     float64 `koanf:"importance_weight"`
}

// HookConfig holds phase-memory hook configuration.
type HookConfig struct {
	Enabled  bool `koanf:"enabled"`
	AutoSave bool `koanf:"auto_save"`

	// Importance overrides the per-phase baseline importance of entries
	// captured on phase exit, keyed by phase name.
	Importance map[string]float64 `koanf:"importance"`
}

// CheckpointConfig holds checkpoint retention configuration.
type CheckpointConfig struct {
	MaxCheckpoints int `koanf:"max_checkpoints"`
}

// ValidationConfig holds write-policy configuration.
type ValidationConfig struct {
	// StrictMode turns write-policy violations into blocking errors.
	// Default false: violations are advisory warnings.
	StrictMode bool `koanf:"strict_mode"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = ".phased"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = 10 * time.Second
	}

	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "phased_memories"
	}
	if cfg.Memory.TitleMaxLen == 0 {
		cfg.Memory.TitleMaxLen = 200
	}
	if cfg.Memory.EmbedTimeout == 0 {
		cfg.Memory.EmbedTimeout = 10 * time.Second
	}
	if cfg.Memory.SimilarityWeight == 0 &&
		cfg.Memory.ConceptOverlapWeight == 0 &&
		cfg.Memory.ImportanceWeight == 0 {
		cfg.Memory.SimilarityWeight = 0.6
		cfg.Memory.ConceptOverlapWeight = 0.25
		cfg.Memory.ImportanceWeight = 0.15
	}

	if cfg.Checkpoint.MaxCheckpoints == 0 {
		cfg.Checkpoint.MaxCheckpoints = 10
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or console)", c.Logging.Format)
	}

	if c.Embeddings.BaseURL == "" {
		return errors.New("embeddings base URL is required")
	}
	if c.Embeddings.Timeout <= 0 {
		return errors.New("embeddings timeout must be positive")
	}
	if c.Embeddings.Dimension < 0 {
		return fmt.Errorf("embeddings dimension cannot be negative: %d", c.Embeddings.Dimension)
	}

	if c.Memory.TitleMaxLen < 1 {
		return fmt.Errorf("memory title max length must be positive: %d", c.Memory.TitleMaxLen)
	}
	if c.Memory.EmbedTimeout <= 0 {
		return errors.New("memory embed timeout must be positive")
	}
	for _, w := range []float64{
		c.Memory.SimilarityWeight,
		c.Memory.ConceptOverlapWeight,
		c.Memory.ImportanceWeight,
	} {
		if w < 0 {
			return errors.New("memory search weights cannot be negative")
		}
	}
	if c.Memory.SimilarityWeight+c.Memory.ConceptOverlapWeight+c.Memory.ImportanceWeight <= 0 {
		return errors.New("memory search weights must sum to a positive value")
	}

	for name, v := range c.Hook.Importance {
		if v < 0 || v > 1 {
			return fmt.Errorf("hook importance for %q must be in [0,1]: %v", name, v)
		}
	}

	if c.Checkpoint.MaxCheckpoints < 1 {
		return fmt.Errorf("checkpoint retention must be positive: %d", c.Checkpoint.MaxCheckpoints)
	}

	return nil
}
