package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/workspace"
)

func newTestScaffolder(t *testing.T, cfg Config) (*Scaffolder, *workspace.Layout) {
	t.Helper()
	layout, err := workspace.NewLayout(filepath.Join(t.TempDir(), ".phased"))
	require.NoError(t, err)
	s, err := New(cfg, layout, zap.NewNop())
	require.NoError(t, err)
	return s, layout
}

func TestNew_RequiresLayout(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plan Phase 1!", "plan-phase-1"},
		{"plan", "plan"},
		{"  Research & Notes  ", "research-notes"},
		{"already-safe_slug", "already-safe_slug"},
		{"UPPER", "upper"},
		{"---", ""},
		{"a//b\\c", "a-b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestScaffold_CreatesFromTemplate(t *testing.T) {
	templates := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(templates, "spec.md"),
		[]byte("# {{project_name}} — {{phase_name}}\n"),
		0o644,
	))

	s, _ := newTestScaffolder(t, Config{
		ProjectName:  "test-project",
		TemplateDirs: []string{templates},
	})

	result := s.Scaffold(context.Background(), "Plan Phase", phase.PhasePlan, nil)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, []string{"SPEC.md"}, result.Created)
	assert.Empty(t, result.Skipped)

	data, err := os.ReadFile(filepath.Join(result.PhaseDir, "SPEC.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test-project")
	assert.Contains(t, string(data), "Plan Phase")
}

func TestScaffold_ProjectLocalOverridesBundled(t *testing.T) {
	local := t.TempDir()
	bundled := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "spec.md"), []byte("local"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bundled, "spec.md"), []byte("bundled"), 0o644))

	s, _ := newTestScaffolder(t, Config{TemplateDirs: []string{local, bundled}})
	result := s.Scaffold(context.Background(), "plan", phase.PhasePlan, nil)
	require.True(t, result.Success)

	data, err := os.ReadFile(filepath.Join(result.PhaseDir, "SPEC.md"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))
}

func TestScaffold_MissingTemplateFallsBack(t *testing.T) {
	s, _ := newTestScaffolder(t, Config{ProjectName: "test-project"})

	result := s.Scaffold(context.Background(), "plan", phase.PhasePlan, nil)
	require.True(t, result.Success)
	require.Equal(t, []string{"SPEC.md"}, result.Created)

	data, err := os.ReadFile(filepath.Join(result.PhaseDir, "SPEC.md"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), "test-project")
}

func TestScaffold_Idempotent(t *testing.T) {
	s, _ := newTestScaffolder(t, Config{ProjectName: "p"})
	ctx := context.Background()

	first := s.Scaffold(ctx, "specify", phase.PhaseSpecify, nil)
	require.True(t, first.Success)
	require.ElementsMatch(t, []string{"SPEC.md", "PLAN.md"}, first.Created)

	path := filepath.Join(first.PhaseDir, "SPEC.md")
	require.NoError(t, os.WriteFile(path, []byte("hand edited"), 0o644))

	second := s.Scaffold(ctx, "specify", phase.PhaseSpecify, nil)
	require.True(t, second.Success)
	assert.Empty(t, second.Created)
	assert.ElementsMatch(t, []string{"SPEC.md", "PLAN.md"}, second.Skipped)

	// Existing content is never overwritten.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hand edited", string(data))
}

func TestScaffold_ExtraTokens(t *testing.T) {
	templates := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(templates, "plan.md"),
		[]byte("waves: {{wave_count}}"),
		0o644,
	))

	s, _ := newTestScaffolder(t, Config{TemplateDirs: []string{templates}})
	result := s.Scaffold(context.Background(), "execute", phase.PhaseExecute, map[string]string{"wave_count": "3"})
	require.True(t, result.Success)

	data, err := os.ReadFile(filepath.Join(result.PhaseDir, "PLAN.md"))
	require.NoError(t, err)
	assert.Equal(t, "waves: 3", string(data))
}

func TestScaffold_PartialFailureContinues(t *testing.T) {
	s, layout := newTestScaffolder(t, Config{})
	ctx := context.Background()

	// Point PLAN.md at a path that cannot be written (dangling symlink into
	// a nonexistent directory) so that one document fails while the other
	// is still attempted.
	dir := layout.PhaseDir("execute")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.Symlink(
		filepath.Join(dir, "no-such-dir", "PLAN.md"),
		filepath.Join(dir, "PLAN.md"),
	))

	result := s.Scaffold(ctx, "execute", phase.PhaseExecute, nil)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "PLAN.md")
	// PROGRESS.md must still have been attempted and created.
	assert.Contains(t, result.Created, "PROGRESS.md")
}

func TestScaffold_DirectoryCreationFailure(t *testing.T) {
	s, layout := newTestScaffolder(t, Config{})

	// A regular file where the phases dir should be makes MkdirAll fail.
	require.NoError(t, os.MkdirAll(layout.Root(), 0o755))
	require.NoError(t, os.WriteFile(layout.PhasesDir(), []byte("blocker"), 0o644))

	result := s.Scaffold(context.Background(), "plan", phase.PhasePlan, nil)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Created)
}

func TestScaffold_NoDocumentsForIdle(t *testing.T) {
	s, _ := newTestScaffolder(t, Config{})
	result := s.Scaffold(context.Background(), "idle", phase.PhaseIdle, nil)
	assert.True(t, result.Success)
	assert.Empty(t, result.Created)
}

func TestCheck(t *testing.T) {
	s, _ := newTestScaffolder(t, Config{})
	ctx := context.Background()

	check := s.Check(ctx, "specify", phase.PhaseSpecify)
	assert.False(t, check.Valid)
	assert.ElementsMatch(t, []string{"SPEC.md", "PLAN.md"}, check.Missing)
	assert.Empty(t, check.Existing)

	result := s.Scaffold(ctx, "specify", phase.PhaseSpecify, nil)
	require.True(t, result.Success)

	check = s.Check(ctx, "specify", phase.PhaseSpecify)
	assert.True(t, check.Valid)
	assert.Empty(t, check.Missing)
	assert.ElementsMatch(t, []string{"SPEC.md", "PLAN.md"}, check.Existing)
}

func TestCheckDocuments_SubsetMissing(t *testing.T) {
	s, layout := newTestScaffolder(t, Config{})
	dir := layout.PhaseDir("plan")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPEC.md"), []byte("x"), 0o644))

	check := s.CheckDocuments(context.Background(), "plan", []string{"SPEC.md", "PLAN.md"})
	assert.False(t, check.Valid)
	assert.Equal(t, []string{"PLAN.md"}, check.Missing)
	assert.Equal(t, []string{"SPEC.md"}, check.Existing)
}
