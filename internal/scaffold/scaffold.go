// Package scaffold materializes phase document artifacts from templates.
//
// Scaffolding is idempotent: existing documents are never overwritten, and a
// missing template falls back to a minimal built-in document so scaffolding
// never blocks a phase. Filesystem failures are collected per document and
// reported, not thrown; remaining documents are still attempted.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/workspace"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/phased/internal/scaffold")

// ErrInvalidConfig indicates invalid scaffolder configuration.
var ErrInvalidConfig = errors.New("invalid scaffolder configuration")

// Config configures the Scaffolder.
type Config struct {
	// ProjectName fills the {{project_name}} template token.
	ProjectName string

	// TemplateDirs is the ordered template search path: project-local
	// overrides first, then bundled templates. First existing file wins.
	TemplateDirs []string
}

// Result reports the outcome of one scaffolding pass.
type Result struct {
	// Success is false when any document failed; created/skipped documents
	// are still reported (partial progress is visible, not hidden).
	Success  bool
	PhaseDir string
	Created  []string
	Skipped  []string
	Errors   []string
}

// CheckResult reports which required documents exist for a phase.
type CheckResult struct {
	Valid    bool
	Missing  []string
	Existing []string
}

// Scaffolder creates and checks phase documents under a workspace layout.
type Scaffolder struct {
	config Config
	layout *workspace.Layout
	logger *zap.Logger
}

// New creates a Scaffolder.
func New(cfg Config, layout *workspace.Layout, logger *zap.Logger) (*Scaffolder, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: workspace layout is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scaffolder{config: cfg, layout: layout, logger: logger}, nil
}

// Sanitize converts a human phase name into a filesystem-safe slug:
// lowercase, any character outside [a-z0-9-_] replaced with "-", repeated
// separators collapsed, leading and trailing separators trimmed.
func Sanitize(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	for strings.Contains(slug, "__") {
		slug = strings.ReplaceAll(slug, "__", "_")
	}
	return strings.Trim(slug, "-_")
}

// Scaffold ensures every document required by the target phase exists in the
// phase's directory, creating missing ones from templates. extra supplies
// additional template tokens beyond project and phase name.
func (s *Scaffolder) Scaffold(ctx context.Context, phaseName string, p phase.Phase, extra map[string]string) Result {
	ctx, span := tracer.Start(ctx, "scaffold.documents")
	defer span.End()

	slug := Sanitize(phaseName)
	result := Result{Success: true, PhaseDir: s.layout.PhaseDir(slug)}

	span.SetAttributes(
		attribute.String("phase", string(p)),
		attribute.String("slug", slug),
	)

	if err := workspace.EnsureDir(result.PhaseDir); err != nil {
		span.RecordError(err)
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, doc := range phase.RequiredDocuments(p) {
		path := filepath.Join(result.PhaseDir, doc)

		if _, err := os.Stat(path); err == nil {
			result.Skipped = append(result.Skipped, doc)
			continue
		}

		content := s.renderDocument(doc, phaseName, extra)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			span.RecordError(err)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("writing %s: %v", doc, err))
			s.logger.Warn("failed to scaffold document",
				zap.String("document", doc),
				zap.String("phase", string(p)),
				zap.Error(err),
			)
			continue
		}
		result.Created = append(result.Created, doc)
	}

	s.logger.Debug("scaffolded phase documents",
		zap.String("phase", string(p)),
		zap.String("dir", result.PhaseDir),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("errors", len(result.Errors)),
	)

	return result
}

// Check is the read-only counterpart of Scaffold: it reports which of the
// target phase's required documents exist in the phase directory. No writes,
// no side effects.
func (s *Scaffolder) Check(ctx context.Context, phaseName string, p phase.Phase) CheckResult {
	return s.CheckDocuments(ctx, phaseName, phase.RequiredDocuments(p))
}

// CheckDocuments reports which of the given documents exist in the directory
// for phaseName. Used by transition validation, which checks the target
// phase's requirements against the current phase's working directory.
func (s *Scaffolder) CheckDocuments(_ context.Context, phaseName string, docs []string) CheckResult {
	dir := s.layout.PhaseDir(Sanitize(phaseName))

	result := CheckResult{Valid: true}
	for _, doc := range docs {
		if _, err := os.Stat(filepath.Join(dir, doc)); err == nil {
			result.Existing = append(result.Existing, doc)
		} else {
			result.Valid = false
			result.Missing = append(result.Missing, doc)
		}
	}
	return result
}
