package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".phased", cfg.Workspace.Root)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "http://localhost:8080", cfg.Embeddings.BaseURL)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embeddings.Model)
	assert.Equal(t, 10*time.Second, cfg.Embeddings.Timeout)
	assert.Equal(t, "phased_memories", cfg.Memory.Collection)
	assert.Equal(t, 200, cfg.Memory.TitleMaxLen)
	assert.True(t, cfg.Memory.Compress)
	assert.InDelta(t, 0.6, cfg.Memory.SimilarityWeight, 1e-9)
	assert.InDelta(t, 0.25, cfg.Memory.ConceptOverlapWeight, 1e-9)
	assert.InDelta(t, 0.15, cfg.Memory.ImportanceWeight, 1e-9)
	assert.True(t, cfg.Hook.Enabled)
	assert.True(t, cfg.Hook.AutoSave)
	assert.Equal(t, 10, cfg.Checkpoint.MaxCheckpoints)
	assert.False(t, cfg.Validation.StrictMode)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workspace:
  root: /tmp/proj/.phased
  project_name: demo
logging:
  level: debug
  format: json
embeddings:
  base_url: http://tei:9100
  model: BAAI/bge-base-en-v1.5
  timeout: 30s
memory:
  collection: demo_memories
  compress: false
hook:
  enabled: false
  importance:
    specify: 0.9
checkpoint:
  max_checkpoints: 3
validation:
  strict_mode: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/proj/.phased", cfg.Workspace.Root)
	assert.Equal(t, "demo", cfg.Workspace.ProjectName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "http://tei:9100", cfg.Embeddings.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Embeddings.Timeout)
	assert.Equal(t, "demo_memories", cfg.Memory.Collection)
	assert.False(t, cfg.Memory.Compress, "explicit false must survive defaults")
	assert.False(t, cfg.Hook.Enabled, "explicit false must survive defaults")
	assert.True(t, cfg.Hook.AutoSave, "untouched fields keep their defaults")
	assert.InDelta(t, 0.9, cfg.Hook.Importance["specify"], 1e-9)
	assert.Equal(t, 3, cfg.Checkpoint.MaxCheckpoints)
	assert.True(t, cfg.Validation.StrictMode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
embeddings:
  base_url: http://from-file:8080
`)

	t.Setenv("PHASED_LOGGING_LEVEL", "warn")
	t.Setenv("PHASED_EMBEDDINGS_BASE_URL", "http://from-env:8080")
	t.Setenv("PHASED_MEMORY_TITLE_MAX_LEN", "80")
	t.Setenv("PHASED_HOOK_AUTO_SAVE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "http://from-env:8080", cfg.Embeddings.BaseURL)
	assert.Equal(t, 80, cfg.Memory.TitleMaxLen)
	assert.False(t, cfg.Hook.AutoSave)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "logging: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_OversizedFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	require.NoError(t, os.WriteFile(path, big, 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad log level",
			yaml:    "logging:\n  level: verbose\n",
			wantErr: "invalid log level",
		},
		{
			name:    "bad log format",
			yaml:    "logging:\n  format: xml\n",
			wantErr: "invalid log format",
		},
		{
			name:    "negative dimension",
			yaml:    "embeddings:\n  dimension: -1\n",
			wantErr: "dimension",
		},
		{
			name:    "negative weight",
			yaml:    "memory:\n  similarity_weight: -0.5\n",
			wantErr: "negative",
		},
		{
			name:    "importance out of range",
			yaml:    "hook:\n  importance:\n    plan: 1.5\n",
			wantErr: "importance",
		},
		{
			name:    "negative retention",
			yaml:    "checkpoint:\n  max_checkpoints: -2\n",
			wantErr: "retention",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
