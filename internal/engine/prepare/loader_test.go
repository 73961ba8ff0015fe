package prepare_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/forge/internal/engine/prepare"
)

func buildGraph(t *testing.T, ws *workspace) *graph.AssetGraph {
	t.Helper()
	sources := enumerate(t, ws)
	g, err := graph.Build(context.Background(), ws.actions, sources.Inputs, sources.Internal, ws.packages, ws.reader)
	require.NoError(t, err)
	return g
}

func persistGraph(t *testing.T, ws *workspace, g *graph.AssetGraph) {
	t.Helper()
	data, err := g.Serialize()
	require.NoError(t, err)
	write(t, ws.dir, domain.GraphPath(), string(data))
}

func TestLoaderAbsentGraph(t *testing.T) {
	ws := newWorkspace(t)

	g, err := prepare.NewLoader(ws.dir, ws.actions, quietLogger(t)).Load()
	require.NoError(t, err)
	require.Nil(t, g)
}

func TestLoaderRoundTrip(t *testing.T) {
	ws := newWorkspace(t)
	persistGraph(t, ws, buildGraph(t, ws))

	g, err := prepare.NewLoader(ws.dir, ws.actions, quietLogger(t)).Load()
	require.NoError(t, err)
	require.NotNil(t, g)
	require.Equal(t, domain.ActionsFingerprint(ws.actions), g.Fingerprint())
}

func TestLoaderCorruptGraph(t *testing.T) {
	ws := newWorkspace(t)
	write(t, ws.dir, domain.GraphPath(), "{not json")
	write(t, ws.dir, ".forge/generated/app/lib/stale.copy.txt", "stale")

	g, err := prepare.NewLoader(ws.dir, ws.actions, quietLogger(t)).Load()
	require.NoError(t, err)
	require.Nil(t, g)

	// Corruption counts as absence; previously materialized outputs stay.
	_, err = os.Stat(filepath.Join(ws.dir, ".forge", "generated", "app", "lib", "stale.copy.txt"))
	require.NoError(t, err)
}

func TestLoaderVersionMismatchDiscardsOutputs(t *testing.T) {
	ws := newWorkspace(t)
	write(t, ws.dir, domain.GraphPath(), `{"version": 99, "fingerprint": "x", "nodes": []}`)
	write(t, ws.dir, ".forge/generated/app/lib/stale.copy.txt", "stale")

	g, err := prepare.NewLoader(ws.dir, ws.actions, quietLogger(t)).Load()
	require.NoError(t, err)
	require.Nil(t, g)

	_, err = os.Stat(filepath.Join(ws.dir, ".forge", "generated"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderFingerprintMismatchDiscardsOutputs(t *testing.T) {
	ws := newWorkspace(t)
	persistGraph(t, ws, buildGraph(t, ws))
	write(t, ws.dir, ".forge/generated/app/lib/stale.copy.txt", "stale")

	changed := []domain.BuildAction{{
		Builder: "minify",
		Package: "app",
		Outputs: map[string][]string{".txt": {".min.txt"}},
	}}

	g, err := prepare.NewLoader(ws.dir, changed, quietLogger(t)).Load()
	require.NoError(t, err)
	require.Nil(t, g)

	_, err = os.Stat(filepath.Join(ws.dir, ".forge", "generated"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderOptionsChangeKeepsGraph(t *testing.T) {
	ws := newWorkspace(t)
	persistGraph(t, ws, buildGraph(t, ws))

	changed := make([]domain.BuildAction, len(ws.actions))
	copy(changed, ws.actions)
	changed[0].Options = map[string]any{"header": "v2"}

	// Options are invalidated per phase; the graph itself stays usable.
	g, err := prepare.NewLoader(ws.dir, changed, quietLogger(t)).Load()
	require.NoError(t, err)
	require.NotNil(t, g)
}
