package prepare

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/zerr"
)

// Loader attempts to load a previously persisted asset graph. Ordinary
// absence or corruption is never an error: incremental builds must not
// hard-fail merely because the cache is missing or unreadable.
type Loader struct {
	workDir string
	actions []domain.BuildAction
	log     ports.Logger
}

// NewLoader creates a Loader for one workspace.
func NewLoader(workDir string, actions []domain.BuildAction, log ports.Logger) *Loader {
	return &Loader{workDir: workDir, actions: actions, log: log}
}

// Load returns the persisted graph, or nil if no usable graph exists.
//
// A version-mismatched document discards the entire generated-output area:
// stale formats are never partially migrated. A graph whose recorded
// build-action fingerprint differs from the currently configured actions is
// discarded the same way, since phases may have changed meaning.
func (l *Loader) Load() (*graph.AssetGraph, error) {
	path := filepath.Join(l.workDir, domain.GraphPath())

	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the workspace layout
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		l.log.Warn(fmt.Sprintf("ignoring unreadable asset graph: %v", err))
		return nil, nil
	}

	g, err := graph.Deserialize(data)
	if err != nil {
		if errors.Is(err, domain.ErrGraphVersionMismatch) {
			l.log.Info("asset graph was written by an incompatible version, discarding generated outputs")
			return nil, l.discardGenerated()
		}
		l.log.Warn(fmt.Sprintf("ignoring corrupt asset graph: %v", err))
		return nil, nil
	}

	current := domain.ActionsFingerprint(l.actions)
	if g.Fingerprint() != current {
		l.log.Info("build actions changed since the last build, discarding generated outputs")
		return nil, l.discardGenerated()
	}

	return g, nil
}

func (l *Loader) discardGenerated() error {
	dir := filepath.Join(l.workDir, domain.GeneratedDir())
	if err := os.RemoveAll(dir); err != nil {
		return zerr.Wrap(err, "failed to discard generated-output directory")
	}
	return nil
}
