// Package config provides the configuration loader for forge.
package config

import (
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const supportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Filename string
	Logger   ports.Logger
}

// NewLoader creates a Loader reading the default configuration file name.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{Filename: domain.ConfigFileName, Logger: log}
}

// Load reads the configuration from the given working directory.
func (l *Loader) Load(cwd string) (*ports.BuildConfig, error) {
	path := filepath.Join(cwd, l.Filename)

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var forgefile Forgefile
	if err := yaml.Unmarshal(data, &forgefile); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	if forgefile.Version != supportedVersion {
		err := zerr.With(zerr.New("unsupported config version"), "found", forgefile.Version)
		return nil, zerr.With(err, "supported", supportedVersion)
	}

	packages, err := buildPackages(forgefile.Packages)
	if err != nil {
		return nil, err
	}

	actions, err := buildActions(forgefile.Actions, packages)
	if err != nil {
		return nil, err
	}

	return &ports.BuildConfig{Actions: actions, Packages: packages}, nil
}

func buildPackages(dtos map[string]PackageDTO) (*domain.PackageGraph, error) {
	if len(dtos) == 0 {
		return nil, zerr.New("config declares no packages")
	}

	infos := make([]*domain.PackageInfo, 0, len(dtos))
	for name, dto := range dtos {
		kind, err := parseKind(dto.Kind)
		if err != nil {
			return nil, zerr.With(err, "package", name)
		}

		// The platform package name is reserved so its assets cannot be
		// confused with workspace packages.
		if (name == domain.PlatformPackageName) != (kind == domain.KindPlatform) {
			return nil, zerr.With(zerr.New("platform package must be named $platform"), "package", name)
		}

		dir := dto.Path
		if dir == "" {
			dir = "."
		}
		infos = append(infos, &domain.PackageInfo{Name: name, Dir: dir, Kind: kind})
	}

	return domain.NewPackageGraph(infos)
}

func parseKind(kind string) (domain.PackageKind, error) {
	switch kind {
	case "root":
		return domain.KindRoot, nil
	case "dependency", "":
		return domain.KindDependency, nil
	case "platform":
		return domain.KindPlatform, nil
	}
	return 0, zerr.With(zerr.New("unknown package kind"), "kind", kind)
}

func buildActions(dtos []ActionDTO, packages *domain.PackageGraph) ([]domain.BuildAction, error) {
	actions := make([]domain.BuildAction, 0, len(dtos))
	for phase, dto := range dtos {
		if dto.Builder == "" {
			return nil, zerr.With(zerr.New("action has no builder"), "phase", phase)
		}
		if _, ok := packages.Get(dto.Package); !ok {
			err := zerr.With(domain.ErrUnknownPackage, "builder", dto.Builder)
			return nil, zerr.With(err, "package", dto.Package)
		}
		if len(dto.Outputs) == 0 {
			return nil, zerr.With(zerr.New("action declares no outputs"), "builder", dto.Builder)
		}

		actions = append(actions, domain.BuildAction{
			Builder:     dto.Builder,
			Package:     dto.Package,
			HideOutput:  dto.HideOutput,
			GenerateFor: canonicalize(dto.GenerateFor),
			Outputs:     dto.Outputs,
			Options:     dto.Options,
		})
	}
	return actions, nil
}

// canonicalize sorts and deduplicates patterns so equivalent configurations
// fingerprint identically.
func canonicalize(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	sorted := make([]string, len(patterns))
	copy(sorted, patterns)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
