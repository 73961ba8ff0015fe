package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/cmd/forge/commands"
	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func testCLI(t *testing.T) (*commands.CLI, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	cli := commands.New(app.New(config.NewLoader(log), log, telemetry.NewNoOpTracer()))
	out := &bytes.Buffer{}
	cli.SetOut(out)
	return cli, out
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

func TestPrepareCommand(t *testing.T) {
	cli, out := testCLI(t)
	dir := testWorkspace(t)

	cli.SetArgs([]string{"prepare", "-C", dir})
	require.NoError(t, cli.Execute(context.Background()))
	require.Contains(t, out.String(), "up to date")

	write(t, dir, "lib/main.txt", "changed")
	cli, out = testCLI(t)
	cli.SetArgs([]string{"prepare", "-C", dir})
	require.NoError(t, cli.Execute(context.Background()))
	require.Contains(t, out.String(), "0 added, 0 removed, 1 modified")
}

func TestPrepareCommandDeleteConflictingOutputs(t *testing.T) {
	cli, _ := testCLI(t)
	dir := testWorkspace(t)
	write(t, dir, "lib/main.copy.txt", "stale")

	cli.SetArgs([]string{"prepare", "-C", dir, "--delete-conflicting-outputs"})
	require.NoError(t, cli.Execute(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "lib", "main.copy.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrepareCommandMissingConfig(t *testing.T) {
	cli, _ := testCLI(t)

	cli.SetArgs([]string{"prepare", "-C", t.TempDir()})
	require.Error(t, cli.Execute(context.Background()))
}

func TestCleanCommand(t *testing.T) {
	cli, _ := testCLI(t)
	dir := testWorkspace(t)

	cli.SetArgs([]string{"prepare", "-C", dir})
	require.NoError(t, cli.Execute(context.Background()))

	cli, _ = testCLI(t)
	cli.SetArgs([]string{"clean", "-C", dir})
	require.NoError(t, cli.Execute(context.Background()))

	_, err := os.Stat(filepath.Join(dir, ".forge"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersionCommand(t *testing.T) {
	cli, out := testCLI(t)

	cli.SetArgs([]string{"version"})
	require.NoError(t, cli.Execute(context.Background()))
	require.Contains(t, out.String(), "forge version")
}
