package prepare

import (
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/graph"
)

// ScriptChangeTracker answers whether the build configuration itself changed,
// given the identifiers touched by a preparation pass. A touched asset under
// the entry-point area or a touched build configuration file means the
// pipeline itself may have changed meaning, so the cached graph can no
// longer be trusted. Options nodes are excluded: a changed options blob is
// an ordinary modification handled by the change detector.
type ScriptChangeTracker struct {
	watched domain.IDSet
}

// NewScriptChangeTracker collects the graph's configuration-bearing
// identifiers for the given root package.
func NewScriptChangeTracker(g *graph.AssetGraph, rootPackage string) *ScriptChangeTracker {
	watched := domain.NewIDSet()
	prefix := domain.ForgeDirName + "/" + domain.EntrypointDirName + "/"

	for node := range g.AllNodes() {
		if _, isOptions := node.(*graph.OptionsNode); isOptions {
			continue
		}
		id := node.ID()
		if strings.HasPrefix(id.Path.String(), prefix) {
			watched.Add(id)
			continue
		}
		if id.Package.String() == rootPackage && id.Path.String() == domain.ConfigFileName {
			watched.Add(id)
		}
	}

	return &ScriptChangeTracker{watched: watched}
}

// HasChanged reports whether any touched identifier implies a configuration
// change.
func (t *ScriptChangeTracker) HasChanged(touched []domain.AssetID) bool {
	for _, id := range touched {
		if t.watched.Has(id) {
			return true
		}
	}
	return false
}
