package domain

import "go.trai.ch/zerr"

// PackageKind distinguishes how a package's inputs are enumerated.
type PackageKind int

const (
	// KindRoot is the package the build runs in. Its inputs come from a
	// fixed allow-list of top-level directories.
	KindRoot PackageKind = iota
	// KindDependency is an ordinary library dependency; only its library
	// tree contributes inputs.
	KindDependency
	// KindPlatform is the virtual platform package with a narrow include.
	KindPlatform
)

// PackageInfo describes one package known to the workspace.
type PackageInfo struct {
	// Name is the package name used in asset identifiers.
	Name string

	// Dir is the package root directory relative to the workspace root.
	Dir string

	// Kind selects the include patterns applied during enumeration.
	Kind PackageKind
}

// rootIncludes is the fixed allow-list of top-level file categories the root
// package contributes as inputs.
var rootIncludes = []string{
	"benchmark/**",
	"bin/**",
	"example/**",
	"lib/**",
	"test/**",
	"tool/**",
	"web/**",
	ConfigFileName,
}

// IncludePatterns returns the glob patterns, relative to the package root,
// that select this package's input assets.
func (p *PackageInfo) IncludePatterns() []string {
	switch p.Kind {
	case KindRoot:
		return rootIncludes
	case KindPlatform:
		return []string{"lib/runtime/**"}
	default:
		return []string{"lib/**"}
	}
}

// PackageGraph is the package metadata for one workspace: the root package
// plus every dependency visible to the build.
type PackageGraph struct {
	Root     *PackageInfo
	Packages map[string]*PackageInfo
}

// NewPackageGraph assembles a PackageGraph and verifies exactly one root.
func NewPackageGraph(pkgs []*PackageInfo) (*PackageGraph, error) {
	g := &PackageGraph{Packages: make(map[string]*PackageInfo, len(pkgs))}
	for _, p := range pkgs {
		if _, exists := g.Packages[p.Name]; exists {
			return nil, zerr.With(zerr.New("duplicate package"), "package", p.Name)
		}
		g.Packages[p.Name] = p
		if p.Kind == KindRoot {
			if g.Root != nil {
				return nil, zerr.With(zerr.New("multiple root packages"), "package", p.Name)
			}
			g.Root = p
		}
	}
	if g.Root == nil {
		return nil, zerr.New("no root package configured")
	}
	return g, nil
}

// Get looks up a package by name.
func (g *PackageGraph) Get(name string) (*PackageInfo, bool) {
	p, ok := g.Packages[name]
	return p, ok
}
