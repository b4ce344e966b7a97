package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// ArtifactWriter stores output files of a pipeline run.
type ArtifactWriter interface {
	// Write stores data under name and returns the location it was written to.
	Write(name string, data []byte) (string, error)
	// Location describes where artifacts go.
	Location() string
}

// FSArtifacts writes artifacts into a directory of an afero filesystem.
type FSArtifacts struct {
	fs  afero.Fs
	dir string
}

// NewFSArtifacts creates dir on fs if needed.
func NewFSArtifacts(fs afero.Fs, dir string) (*FSArtifacts, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &FSArtifacts{fs: fs, dir: dir}, nil
}

// Write stores data as dir/name.
func (a *FSArtifacts) Write(name string, data []byte) (string, error) {
	path := filepath.Join(a.dir, filepath.Base(name))
	if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Location returns the output directory.
func (a *FSArtifacts) Location() string { return a.dir }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fileStem turns a project name into a file name prefix.
func fileStem(project string) string {
	stem := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(project), "_"), "_")
	if stem == "" {
		return "project"
	}
	return stem
}

// DefaultOutputDir is the output directory used for a project when none is
// configured.
func DefaultOutputDir(base, project string) string {
	return filepath.Join(base, fileStem(project)+"_output")
}
