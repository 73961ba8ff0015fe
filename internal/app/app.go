// Package app implements the application layer for forge.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/adapters/cas"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/forge/internal/engine/prepare"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	log          ports.Logger
	tracer       ports.Tracer
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, log ports.Logger, tracer ports.Tracer) *App {
	return &App{
		configLoader: loader,
		log:          log,
		tracer:       tracer,
	}
}

// PrepareParams carries the per-invocation knobs of a preparation pass.
type PrepareParams struct {
	// WorkDir is the workspace root. Defaults to the current directory.
	WorkDir string

	// DeleteConflictingOutputs deletes pre-existing declared outputs
	// without prompting.
	DeleteConflictingOutputs bool

	// SkipScriptCheck disables the build-configuration change check.
	SkipScriptCheck bool

	// Stdin and Stdout override the conflict prompt's streams. Both
	// default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer

	// OnDelete observes every asset deleted during preparation.
	OnDelete func(domain.AssetID)
}

// Prepare loads the workspace configuration and runs one full build
// preparation pass over it.
func (a *App) Prepare(ctx context.Context, params PrepareParams) (*prepare.PreparedBuild, error) {
	workDir, err := resolveWorkDir(params.WorkDir)
	if err != nil {
		return nil, err
	}

	cfg, err := a.configLoader.Load(workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	reader := fs.NewReader(workDir, cfg.Packages)
	writer := fs.NewWriter(reader)

	resolver := prepare.NewConflictResolver(a.log, nil)
	if params.Stdin != nil {
		resolver.In = params.Stdin
	}
	if params.Stdout != nil {
		resolver.Out = params.Stdout
	}

	wrap := func(g *graph.AssetGraph) (ports.AssetReader, ports.AssetWriter) {
		cache := cas.NewCache(reader, writer, g, workDir)
		return cache, cache
	}

	bootstrapper := prepare.NewBootstrapper(cfg, reader, writer, wrap, a.log, a.tracer, prepare.Options{
		WorkDir:                  workDir,
		DeleteConflictingOutputs: params.DeleteConflictingOutputs,
		SkipScriptCheck:          params.SkipScriptCheck,
		OnDelete:                 params.OnDelete,
		Resolver:                 resolver,
	})

	return bootstrapper.Prepare(ctx)
}

// Clean discards all persisted engine state, forcing the next preparation
// pass to start from scratch.
func (a *App) Clean(ctx context.Context, workDir string) error {
	workDir, err := resolveWorkDir(workDir)
	if err != nil {
		return err
	}

	_, span := a.tracer.Start(ctx, "clean")
	defer span.End()

	dir := filepath.Join(workDir, domain.ForgeDirName)
	if err := os.RemoveAll(dir); err != nil {
		err = zerr.Wrap(err, "failed to remove engine state directory")
		span.RecordError(err)
		return err
	}

	a.log.Info("removed engine state, the next build starts from scratch")
	return nil
}

func resolveWorkDir(workDir string) (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to determine working directory")
	}
	return cwd, nil
}
