package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.AssetReader = (*Reader)(nil)

// Reader implements ports.AssetReader over the workspace filesystem, using
// the package metadata to resolve asset identifiers to paths.
type Reader struct {
	workDir  string
	packages *domain.PackageGraph
	walker   *Walker
}

// NewReader creates a Reader rooted at the workspace directory.
func NewReader(workDir string, packages *domain.PackageGraph) *Reader {
	return &Reader{workDir: workDir, packages: packages, walker: NewWalker()}
}

// Resolve maps an asset identifier to its absolute filesystem path.
// Engine-internal assets live under the workspace-level engine directory
// regardless of the owning package's location.
func (r *Reader) Resolve(id domain.AssetID) (string, error) {
	pkg, ok := r.packages.Get(id.Package.String())
	if !ok {
		return "", zerr.With(domain.ErrUnknownPackage, "asset", id.String())
	}

	path := id.Path.String()
	if path == domain.ConfigFileName || strings.HasPrefix(path, domain.ForgeDirName+"/") {
		return filepath.Join(r.workDir, filepath.FromSlash(path)), nil
	}
	return filepath.Join(r.workDir, pkg.Dir, filepath.FromSlash(path)), nil
}

// CanRead reports whether the asset exists as a regular file.
func (r *Reader) CanRead(id domain.AssetID) (bool, error) {
	path, err := r.Resolve(id)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to stat asset"), "asset", id.String())
	}
	return !info.IsDir(), nil
}

// Read returns the asset's content.
func (r *Reader) Read(id domain.AssetID) ([]byte, error) {
	path, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // Path is resolved from workspace metadata
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(domain.ErrAssetNotFound, "asset", id.String())
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read asset"), "asset", id.String())
	}
	return data, nil
}

// ReadString returns the asset's content as a string.
func (r *Reader) ReadString(id domain.AssetID) (string, error) {
	data, err := r.Read(id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Digest computes the xxhash content digest of the asset.
func (r *Reader) Digest(id domain.AssetID) (domain.Digest, error) {
	path, err := r.Resolve(id)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path) //nolint:gosec // Path is resolved from workspace metadata
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", zerr.With(domain.ErrAssetNotFound, "asset", id.String())
		}
		return "", zerr.With(zerr.Wrap(err, "failed to open asset"), "asset", id.String())
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash asset content"), "asset", id.String())
	}

	return domain.NewDigest(hasher.Sum64()), nil
}

// FindAssets enumerates assets matching a glob pattern, optionally scoped
// to one package. Results are sorted by identifier.
func (r *Reader) FindAssets(pattern, pkgName string) ([]domain.AssetID, error) {
	var targets []*domain.PackageInfo
	if pkgName != "" {
		pkg, ok := r.packages.Get(pkgName)
		if !ok {
			return nil, zerr.With(domain.ErrUnknownPackage, "package", pkgName)
		}
		targets = append(targets, pkg)
	} else {
		for _, pkg := range r.packages.Packages {
			targets = append(targets, pkg)
		}
	}

	var out []domain.AssetID
	for _, pkg := range targets {
		ids, err := r.findInPackage(pattern, pkg)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *Reader) findInPackage(pattern string, pkg *domain.PackageInfo) ([]domain.AssetID, error) {
	base := filepath.Join(r.workDir, pkg.Dir)
	if _, err := os.Stat(base); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(zerr.New("package directory missing"), "package", pkg.Name)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to stat package directory"), "package", pkg.Name)
	}

	// A literal pattern is a single-file lookup, not a walk.
	if !strings.ContainsAny(pattern, "*?[{") {
		path := filepath.Join(base, filepath.FromSlash(pattern))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return []domain.AssetID{domain.NewAssetID(pkg.Name, pattern)}, nil
		}
		return nil, nil
	}

	var out []domain.AssetID
	for path := range r.walker.WalkFiles(base) {
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to relativize asset path")
		}
		relSlash := filepath.ToSlash(rel)

		ok, err := doublestar.Match(pattern, relSlash)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "bad include pattern"), "pattern", pattern)
		}
		if ok {
			out = append(out, domain.NewAssetID(pkg.Name, relSlash))
		}
	}
	return out, nil
}
