// Package workspace resolves the on-disk layout of a workflow's metadata
// directory: phase documents, checkpoints, templates, memory, and state.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDirName is the metadata directory created inside a project root.
const DefaultDirName = ".phased"

// Layout resolves paths under a workflow metadata root.
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at the given metadata directory.
// An empty root resolves to DefaultDirName in the working directory.
func NewLayout(root string) (*Layout, error) {
	if root == "" {
		root = DefaultDirName
	}
	expanded, err := expandHome(root)
	if err != nil {
		return nil, fmt.Errorf("expanding root %s: %w", root, err)
	}
	return &Layout{root: expanded}, nil
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Root returns the metadata root directory.
func (l *Layout) Root() string { return l.root }

// PhasesDir returns the directory holding all phase document directories.
func (l *Layout) PhasesDir() string { return filepath.Join(l.root, "phases") }

// PhaseDir returns the document directory for a sanitized phase slug.
func (l *Layout) PhaseDir(slug string) string { return filepath.Join(l.PhasesDir(), slug) }

// CheckpointsDir returns the checkpoint directory.
func (l *Layout) CheckpointsDir() string { return filepath.Join(l.root, "checkpoints") }

// MemoryDir returns the semantic memory storage directory.
func (l *Layout) MemoryDir() string { return filepath.Join(l.root, "memory") }

// TemplatesDir returns the project-local template override directory.
func (l *Layout) TemplatesDir() string { return filepath.Join(l.root, "templates") }

// StateFile returns the workflow state file path.
func (l *Layout) StateFile() string { return filepath.Join(l.root, "state.json") }

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
