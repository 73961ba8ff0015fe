// Package prepare implements the incremental build preparation pass: it
// decides whether a previously persisted asset graph can be trusted and, if
// so, computes the minimal set of changes needed to bring it up to date
// before any build work runs.
package prepare

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// SourceSets holds the three populations of relevant assets found on disk.
// They are recomputed from scratch on every preparation pass.
type SourceSets struct {
	// Inputs are files owned by packages, matched via per-package include
	// patterns.
	Inputs domain.IDSet

	// CacheOutputs are previously materialized generated outputs found in
	// the generated-output directory, re-derived into canonical identifiers.
	CacheOutputs domain.IDSet

	// Internal are engine bookkeeping assets under the entry-point area.
	Internal domain.IDSet
}

// All returns the union of the three populations.
func (s *SourceSets) All() domain.IDSet {
	return s.Inputs.Union(s.CacheOutputs, s.Internal)
}

// Enumerator lists current disk reality. It has no side effects beyond
// read-only filesystem queries; any failure is fatal because an incomplete
// source list would corrupt the change diff.
type Enumerator struct {
	reader   ports.AssetReader
	packages *domain.PackageGraph
	workDir  string
}

// NewEnumerator creates an Enumerator for one workspace.
func NewEnumerator(reader ports.AssetReader, packages *domain.PackageGraph, workDir string) *Enumerator {
	return &Enumerator{reader: reader, packages: packages, workDir: workDir}
}

// Enumerate produces the three current source sets.
func (e *Enumerator) Enumerate(ctx context.Context) (*SourceSets, error) {
	inputs, err := e.findInputs(ctx)
	if err != nil {
		return nil, err
	}

	cacheOutputs, err := e.findCacheOutputs()
	if err != nil {
		return nil, err
	}

	internal, err := e.findInternal()
	if err != nil {
		return nil, err
	}

	return &SourceSets{Inputs: inputs, CacheOutputs: cacheOutputs, Internal: internal}, nil
}

// findInputs applies every package's include patterns and unions the
// matches. Packages are independent, so they are scanned concurrently.
func (e *Enumerator) findInputs(ctx context.Context) (domain.IDSet, error) {
	inputs := domain.NewIDSet()
	var mu sync.Mutex

	eg, _ := errgroup.WithContext(ctx)
	for _, pkg := range e.packages.Packages {
		eg.Go(func() error {
			for _, pattern := range pkg.IncludePatterns() {
				ids, err := e.reader.FindAssets(pattern, pkg.Name)
				if err != nil {
					return zerr.With(zerr.Wrap(err, "failed to enumerate package inputs"), "package", pkg.Name)
				}
				mu.Lock()
				for _, id := range ids {
					inputs.Add(id)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// findCacheOutputs scans the generated-output tree. The cache namespace is
// flat <package>/<path>; each hit is split on the owning-package segment and
// reassembled into a canonical identifier.
func (e *Enumerator) findCacheOutputs() (domain.IDSet, error) {
	root := filepath.Join(e.workDir, domain.GeneratedDir())
	out := domain.NewIDSet()

	err := walkTree(root, func(rel string) {
		pkg, rest, ok := strings.Cut(rel, "/")
		if !ok {
			// Top-level bookkeeping files such as the persisted graph
			// are not generated outputs.
			return
		}
		out.Add(domain.NewAssetID(pkg, rest))
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to scan generated-output directory")
	}
	return out, nil
}

// findInternal scans the reserved entry-point tree. Internal assets belong
// to the root package.
func (e *Enumerator) findInternal() (domain.IDSet, error) {
	root := filepath.Join(e.workDir, domain.EntrypointDir())
	rootPkg := e.packages.Root.Name
	out := domain.NewIDSet()

	err := walkTree(root, func(rel string) {
		path := domain.ForgeDirName + "/" + domain.EntrypointDirName + "/" + rel
		out.Add(domain.NewAssetID(rootPkg, path))
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to scan entry-point directory")
	}
	return out, nil
}

// walkTree yields every regular file under root as a slash-separated path
// relative to root. A missing root is not an error.
func walkTree(root string, visit func(rel string)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		visit(filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
