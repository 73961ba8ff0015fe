package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return app.New(config.NewLoader(log), log, telemetry.NewNoOpTracer())
}

func testWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write(t, dir, "forge.yaml", `
version: "1"
packages:
  app: {path: ".", kind: root}
actions:
  - builder: copy
    package: app
    generateFor: ["lib/**"]
    outputs:
      ".txt": [".copy.txt"]
`)
	write(t, dir, "lib/main.txt", "main")
	return dir
}

func write(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAppPrepare(t *testing.T) {
	a := testApp(t)
	dir := testWorkspace(t)

	prepared, err := a.Prepare(context.Background(), app.PrepareParams{WorkDir: dir})
	require.NoError(t, err)
	require.Empty(t, prepared.Changes)
	require.NotNil(t, prepared.Graph)

	write(t, dir, "lib/main.txt", "changed")
	prepared, err = a.Prepare(context.Background(), app.PrepareParams{WorkDir: dir})
	require.NoError(t, err)
	require.Equal(t, domain.ChangeSet{
		domain.NewAssetID("app", "lib/main.txt"): domain.ChangeModified,
	}, prepared.Changes)
}

func TestAppPrepareBadConfig(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()

	_, err := a.Prepare(context.Background(), app.PrepareParams{WorkDir: dir})
	require.Error(t, err)
}

func TestAppClean(t *testing.T) {
	a := testApp(t)
	dir := testWorkspace(t)

	_, err := a.Prepare(context.Background(), app.PrepareParams{WorkDir: dir})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".forge"))
	require.NoError(t, err)

	require.NoError(t, a.Clean(context.Background(), dir))
	_, err = os.Stat(filepath.Join(dir, ".forge"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Cleaning an already clean workspace is a no-op.
	require.NoError(t, a.Clean(context.Background(), dir))
}
