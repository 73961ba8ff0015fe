package cas

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/graph"
)

func testCache(t *testing.T) (string, *Cache, *graph.AssetGraph) {
	t.Helper()

	workDir := t.TempDir()
	writeFile(t, workDir, "lib/main.txt", "hello")

	packages, err := domain.NewPackageGraph([]*domain.PackageInfo{
		{Name: "app", Dir: ".", Kind: domain.KindRoot},
	})
	require.NoError(t, err)

	actions := []domain.BuildAction{{
		Builder: "copy",
		Package: "app",
		Outputs: map[string][]string{".txt": {".copy.txt"}},
	}}

	reader := fs.NewReader(workDir, packages)
	writer := fs.NewWriter(reader)

	inputs := domain.NewIDSet()
	inputs.Add(domain.NewAssetID("app", "lib/main.txt"))

	g, err := graph.Build(context.Background(), actions, inputs, domain.NewIDSet(), packages, reader)
	require.NoError(t, err)

	return workDir, NewCache(reader, writer, g, workDir), g
}

func writeFile(t *testing.T, workDir, rel, content string) {
	t.Helper()
	path := filepath.Join(workDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func markOutput(t *testing.T, g *graph.AssetGraph, id domain.AssetID) {
	t.Helper()
	node, ok := g.Get(id)
	require.True(t, ok)
	gen, ok := node.(*graph.GeneratedNode)
	require.True(t, ok)
	gen.WasOutput = true
}

func TestCacheReadsSourceThrough(t *testing.T) {
	workDir, cache, _ := testCache(t)

	id := domain.NewAssetID("app", "lib/main.txt")
	data, err := cache.Read(id)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	// Memoized: a disk change is not observed within the same pass.
	writeFile(t, workDir, "lib/main.txt", "changed")
	data, err = cache.Read(id)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestCacheServesMaterializedOutputFromShadow(t *testing.T) {
	workDir, cache, g := testCache(t)

	outID := domain.NewAssetID("app", "lib/main.copy.txt")
	markOutput(t, g, outID)
	writeFile(t, workDir, ".forge/generated/app/lib/main.copy.txt", "generated")

	ok, err := cache.CanRead(outID)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := cache.Read(outID)
	require.NoError(t, err)
	require.Equal(t, "generated", string(data))
}

func TestCacheUnmaterializedOutputNotReadable(t *testing.T) {
	_, cache, _ := testCache(t)

	// Declared but never produced: WasOutput is false and nothing exists
	// on disk.
	outID := domain.NewAssetID("app", "lib/main.copy.txt")
	ok, err := cache.CanRead(outID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = cache.Read(outID)
	require.ErrorIs(t, err, domain.ErrAssetNotFound)
}

func TestCacheDigestPrefersGraph(t *testing.T) {
	workDir, cache, g := testCache(t)

	id := domain.NewAssetID("app", "lib/main.txt")
	node, ok := g.Get(id)
	require.True(t, ok)
	recorded := node.LastDigest()
	require.NotNil(t, recorded)

	// The graph digest wins even after the file changes on disk.
	writeFile(t, workDir, "lib/main.txt", "changed")
	d, err := cache.Digest(id)
	require.NoError(t, err)
	require.Equal(t, *recorded, d)
}

func TestCacheDeleteEvicts(t *testing.T) {
	workDir, cache, g := testCache(t)

	outID := domain.NewAssetID("app", "lib/main.copy.txt")
	markOutput(t, g, outID)
	writeFile(t, workDir, ".forge/generated/app/lib/main.copy.txt", "generated")

	_, err := cache.Read(outID)
	require.NoError(t, err)

	require.NoError(t, cache.Delete(outID))

	ok, err := cache.CanRead(outID)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = os.Stat(filepath.Join(workDir, ".forge", "generated", "app", "lib", "main.copy.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
