// Package file writes generated artifacts to the local filesystem.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Ensure ArtifactSink implements the interface.
var _ driven.ArtifactSink = (*ArtifactSink)(nil)

// ArtifactSink writes each run's artifacts under <root>/<runID>/.
type ArtifactSink struct {
	root string
}

// NewArtifactSink creates a sink rooted at dir.
// If dir is empty, defaults to ~/.deepcode/output.
func NewArtifactSink(dir string) (*ArtifactSink, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".deepcode", "output")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &ArtifactSink{root: abs}, nil
}

// Root returns the output root directory.
func (s *ArtifactSink) Root() string {
	return s.root
}

// Write stores the artifacts and returns the run directory. Every path is
// validated before anything is written.
func (s *ArtifactSink) Write(ctx context.Context, runID string, artifacts []domain.Artifact) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: run id %q", domain.ErrInvalidInput, runID)
	}
	runDir := filepath.Join(s.root, runID)

	targets := make([]string, len(artifacts))
	for i := range artifacts {
		target, err := resolve(runDir, artifacts[i].Path)
		if err != nil {
			return "", err
		}
		targets[i] = target
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	for i := range artifacts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(targets[i]), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(targets[i], []byte(artifacts[i].Content), 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", artifacts[i].Path, err)
		}
	}
	return runDir, nil
}

// resolve joins an artifact path onto dir, rejecting absolute paths and
// paths that escape dir.
func resolve(dir, path string) (string, error) {
	if path == "" || filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: artifact path %q", domain.ErrInvalidInput, path)
	}
	target := filepath.Join(dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: artifact path %q", domain.ErrInvalidInput, path)
	}
	return target, nil
}
