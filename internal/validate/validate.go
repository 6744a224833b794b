// Package validate gates write operations and phase transitions.
//
// Write-policy checks are advisory: a violation yields a warning with
// ShouldBlock=false unless strict mode is configured, because final blocking
// authority belongs to the integrating caller, not this package.
package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/phase"
	"github.com/fyrsmithlabs/phased/internal/scaffold"
	"github.com/fyrsmithlabs/phased/internal/workspace"
)

// sourceRoots are directory names whose contents count as implementation
// files. Matching is on path segments, both separator styles normalized.
var sourceRoots = map[string]bool{
	"src":      true,
	"lib":      true,
	"app":      true,
	"internal": true,
	"pkg":      true,
	"cmd":      true,
	"server":   true,
	"client":   true,
}

// excludedDirs never contain implementation files of this project: the
// workflow's own metadata directory and dependency directories.
var excludedDirs = map[string]bool{
	workspace.DefaultDirName: true,
	"node_modules":           true,
	"vendor":                 true,
	".git":                   true,
}

// excludedExtensions are documentation and configuration formats that are
// not implementation code even when they live under a source root.
var excludedExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".rst":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".ini":  true,
}

// WriteResult is the outcome of a write-operation check.
type WriteResult struct {
	Valid       bool
	Warning     string
	ShouldBlock bool
}

// TransitionResult is the outcome of a phase-transition check.
type TransitionResult struct {
	Allowed bool
	Reason  string
	Missing []string
}

// DocumentChecker is the read-only scaffolder capability the validator needs.
type DocumentChecker interface {
	CheckDocuments(ctx context.Context, phaseName string, docs []string) scaffold.CheckResult
}

// Config configures validation behavior.
type Config struct {
	// StrictMode turns write-policy violations into blocking results.
	// Default false: violations are advisory warnings.
	StrictMode bool
}

// Validator checks writes and transitions against the enforcement rules.
type Validator struct {
	config  Config
	checker DocumentChecker
	logger  *zap.Logger
}

// New creates a Validator. The checker may be nil when only write validation
// is needed; transition validation then treats every document as present.
func New(cfg Config, checker DocumentChecker, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{config: cfg, checker: checker, logger: logger}
}

// IsImplementationFile classifies a path as implementation code using only
// the path itself; no filesystem access. Both separator styles are handled.
func IsImplementationFile(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	normalized = filepath.ToSlash(filepath.Clean(normalized))

	segments := strings.Split(normalized, "/")

	underSourceRoot := false
	for _, seg := range segments[:max(len(segments)-1, 0)] {
		if excludedDirs[seg] {
			return false
		}
		if sourceRoots[seg] {
			underSourceRoot = true
		}
	}
	if !underSourceRoot {
		return false
	}

	ext := strings.ToLower(filepath.Ext(segments[len(segments)-1]))
	if ext == "" || excludedExtensions[ext] {
		return false
	}
	return true
}

// ValidateWrite checks a write against the phase's write_code policy.
// Non-implementation paths are always valid. Implementation paths denied by
// the enforcement engine yield the engine's reason as a warning; whether the
// result blocks is a configuration decision, not a policy one.
func (v *Validator) ValidateWrite(p phase.Phase, filePath string) WriteResult {
	if !IsImplementationFile(filePath) {
		return WriteResult{Valid: true}
	}

	decision := phase.OperationAllowed(p, phase.OpWriteCode)
	if decision.Allowed {
		return WriteResult{Valid: true}
	}

	v.logger.Debug("write policy violation",
		zap.String("phase", string(p)),
		zap.String("path", filePath),
	)

	return WriteResult{
		Valid:       false,
		Warning:     decision.Reason,
		ShouldBlock: v.config.StrictMode,
	}
}

// ValidateTransition gates a phase transition on the target phase's required
// documents, checked against the current phase's working directory. An empty
// requirement list always allows the transition.
func (v *Validator) ValidateTransition(ctx context.Context, from, to phase.Phase) TransitionResult {
	required := phase.RequiredDocuments(to)
	if len(required) == 0 {
		return TransitionResult{Allowed: true}
	}
	if v.checker == nil {
		return TransitionResult{Allowed: true}
	}

	check := v.checker.CheckDocuments(ctx, string(from), required)
	if check.Valid {
		return TransitionResult{Allowed: true}
	}

	return TransitionResult{
		Allowed: false,
		Reason: fmt.Sprintf("cannot enter %s: missing required documents: %s",
			to, strings.Join(check.Missing, ", ")),
		Missing: check.Missing,
	}
}

// ValidationWarning is the single formatting point for write results:
// "Blocked: …" when the result blocks, "Warning: …" when advisory, empty
// when valid.
func ValidationWarning(result WriteResult) string {
	if result.Valid {
		return ""
	}
	if result.ShouldBlock {
		return "Blocked: " + result.Warning
	}
	return "Warning: " + result.Warning
}
