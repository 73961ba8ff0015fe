package prepare

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/zerr"
)

// IOWrapper wraps the raw reader/writer pair with the cache layer for a
// finished graph before it is handed to the build phase.
type IOWrapper func(g *graph.AssetGraph) (ports.AssetReader, ports.AssetWriter)

// Options configures one preparation pass.
type Options struct {
	// WorkDir is the workspace root.
	WorkDir string

	// DeleteConflictingOutputs deletes pre-existing declared outputs in
	// the root package without prompting.
	DeleteConflictingOutputs bool

	// SkipScriptCheck disables the post-load build-configuration check.
	SkipScriptCheck bool

	// OnDelete, when set, is invoked once per identifier actually deleted.
	// It must not influence control flow.
	OnDelete func(domain.AssetID)

	// Resolver overrides the default conflict resolver. Used by the CLI to
	// inject its streams and policy flags.
	Resolver *ConflictResolver
}

// PreparedBuild is the result of a successful preparation pass: a
// ready-to-use graph plus reader/writer handles routed through the cache
// layer for the actual build phase.
type PreparedBuild struct {
	Graph   *graph.AssetGraph
	Reader  ports.AssetReader
	Writer  ports.AssetWriter
	Changes domain.ChangeSet
}

// Bootstrapper orchestrates one build-preparation pass.
type Bootstrapper struct {
	actions  []domain.BuildAction
	packages *domain.PackageGraph
	reader   ports.AssetReader
	writer   ports.AssetWriter
	wrap     IOWrapper
	log      ports.Logger
	tracer   ports.Tracer
	opts     Options
}

// NewBootstrapper assembles a Bootstrapper from its collaborators.
func NewBootstrapper(
	config *ports.BuildConfig,
	reader ports.AssetReader,
	writer ports.AssetWriter,
	wrap IOWrapper,
	log ports.Logger,
	tracer ports.Tracer,
	opts Options,
) *Bootstrapper {
	return &Bootstrapper{
		actions:  config.Actions,
		packages: config.Packages,
		reader:   reader,
		writer:   writer,
		wrap:     wrap,
		log:      log,
		tracer:   tracer,
		opts:     opts,
	}
}

// Prepare runs the full pass: validate the action list, enumerate disk
// reality, reuse the cached graph if it can be trusted, otherwise build a
// fresh one and resolve initial-state conflicts.
func (b *Bootstrapper) Prepare(ctx context.Context) (*PreparedBuild, error) {
	ctx, span := b.tracer.Start(ctx, "prepare")
	defer span.End()

	if err := b.validateActions(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	sources, err := NewEnumerator(b.reader, b.packages, b.opts.WorkDir).Enumerate(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("inputs", len(sources.Inputs))

	g, err := NewLoader(b.opts.WorkDir, b.actions, b.log).Load()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if g != nil {
		prepared, err := b.updateCached(ctx, g, sources)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if prepared != nil {
			return prepared, nil
		}
		// The build configuration itself changed; continue as if nothing
		// had been cached.
	}

	prepared, err := b.freshBuild(ctx, sources)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return prepared, nil
}

// validateActions rejects any action whose output is visible downstream but
// does not belong to the root package. This is a configuration error and is
// surfaced before any I/O occurs.
func (b *Bootstrapper) validateActions() error {
	root := b.packages.Root.Name
	for phase, action := range b.actions {
		if !action.HideOutput && action.Package != root {
			err := zerr.With(domain.ErrActionOutsideRoot, "builder", action.Builder)
			err = zerr.With(err, "package", action.Package)
			return zerr.With(err, "phase", phase)
		}
	}
	return nil
}

// updateCached applies the detected changes to a trusted cached graph.
// It returns nil (and no error) when the build configuration changed and
// the graph had to be dropped after all.
func (b *Bootstrapper) updateCached(ctx context.Context, g *graph.AssetGraph, sources *SourceSets) (*PreparedBuild, error) {
	root := b.packages.Root.Name
	tracker := NewScriptChangeTracker(g, root)

	changes, err := NewDetector(g, b.reader, b.actions).Changes(ctx, sources)
	if err != nil {
		return nil, err
	}

	if err := g.UpdateAndInvalidate(b.actions, changes, root, b.delete(ctx), b.reader); err != nil {
		// The graph may have been partially invalidated; there is no
		// partial application, so the whole preparation fails.
		return nil, err
	}

	if !b.opts.SkipScriptCheck && tracker.HasChanged(changes.IDs()) {
		b.log.Info("build configuration changed, discarding cached state")
		dir := filepath.Join(b.opts.WorkDir, domain.GeneratedDir())
		if err := os.RemoveAll(dir); err != nil {
			return nil, zerr.Wrap(err, "failed to discard generated-output directory")
		}
		return nil, nil
	}

	return b.finish(g, changes)
}

// freshBuild constructs a graph from scratch and resolves any declared
// outputs that unexpectedly pre-exist on disk.
func (b *Bootstrapper) freshBuild(ctx context.Context, sources *SourceSets) (*PreparedBuild, error) {
	g, err := graph.Build(ctx, b.actions, sources.Inputs, sources.Internal, b.packages, b.reader)
	if err != nil {
		return nil, err
	}

	root := b.packages.Root.Name
	var rootConflicts, depConflicts []domain.AssetID
	for _, outID := range g.Outputs() {
		if !sources.Inputs.Has(outID) {
			continue
		}
		if outID.Package.String() == root {
			rootConflicts = append(rootConflicts, outID)
		} else {
			depConflicts = append(depConflicts, outID)
		}
	}

	if len(depConflicts) > 0 {
		return nil, zerr.With(domain.ErrDependencyConflict, "assets", joinIDs(depConflicts))
	}

	if len(rootConflicts) > 0 {
		resolver := b.opts.Resolver
		if resolver == nil {
			resolver = NewConflictResolver(b.log, b.delete(ctx))
		} else {
			resolver.log = b.log
			resolver.deleteFn = b.delete(ctx)
		}
		resolver.DeleteByDefault = resolver.DeleteByDefault || b.opts.DeleteConflictingOutputs
		if err := resolver.Resolve(rootConflicts); err != nil {
			return nil, err
		}
	}

	return b.finish(g, domain.ChangeSet{})
}

// delete returns the deletion callback used for both conflict resolution
// and removal-driven invalidation. It routes the optional caller-supplied
// observer and the telemetry side channel.
func (b *Bootstrapper) delete(ctx context.Context) func(domain.AssetID) error {
	return func(id domain.AssetID) error {
		if err := b.writer.Delete(id); err != nil {
			return err
		}
		if b.opts.OnDelete != nil {
			b.opts.OnDelete(id)
		}
		b.tracer.EmitDeleted(ctx, []string{id.String()})
		return nil
	}
}

// finish persists the up-to-date graph and wraps the reader/writer pair for
// the build phase.
func (b *Bootstrapper) finish(g *graph.AssetGraph, changes domain.ChangeSet) (*PreparedBuild, error) {
	if err := b.persist(g); err != nil {
		return nil, err
	}

	reader, writer := b.reader, b.writer
	if b.wrap != nil {
		reader, writer = b.wrap(g)
	}
	return &PreparedBuild{Graph: g, Reader: reader, Writer: writer, Changes: changes}, nil
}

func (b *Bootstrapper) persist(g *graph.AssetGraph) error {
	data, err := g.Serialize()
	if err != nil {
		return err
	}

	path := filepath.Join(b.opts.WorkDir, domain.GraphPath())
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create generated-output directory")
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, "failed to persist asset graph")
	}
	return nil
}
