package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout_Paths(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".phased")
	layout, err := NewLayout(root)
	require.NoError(t, err)

	assert.Equal(t, root, layout.Root())
	assert.Equal(t, filepath.Join(root, "phases"), layout.PhasesDir())
	assert.Equal(t, filepath.Join(root, "phases", "plan"), layout.PhaseDir("plan"))
	assert.Equal(t, filepath.Join(root, "checkpoints"), layout.CheckpointsDir())
	assert.Equal(t, filepath.Join(root, "memory"), layout.MemoryDir())
	assert.Equal(t, filepath.Join(root, "templates"), layout.TemplatesDir())
	assert.Equal(t, filepath.Join(root, "state.json"), layout.StateFile())
}

func TestNewLayout_EmptyRootDefaults(t *testing.T) {
	layout, err := NewLayout("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDirName, filepath.Base(layout.Root()))
}

func TestNewLayout_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	layout, err := NewLayout("~/.phased")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".phased"), layout.Root())
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, EnsureDir(dir))
}
