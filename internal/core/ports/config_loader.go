package ports

import "go.trai.ch/forge/internal/core/domain"

// BuildConfig is the loaded build configuration: the ordered action list and
// the workspace package metadata.
type BuildConfig struct {
	Actions  []domain.BuildAction
	Packages *domain.PackageGraph
}

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration from the given working directory.
	Load(cwd string) (*BuildConfig, error)
}
