package config

// Forgefile represents the structure of the forge.yaml configuration file.
type Forgefile struct {
	Version  string                `yaml:"version"`
	Packages map[string]PackageDTO `yaml:"packages"`
	Actions  []ActionDTO           `yaml:"actions"`
}

// PackageDTO represents a package entry in the configuration.
type PackageDTO struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind"`
}

// ActionDTO represents one build action. The list order defines the phase
// order.
type ActionDTO struct {
	Builder     string              `yaml:"builder"`
	Package     string              `yaml:"package"`
	HideOutput  bool                `yaml:"hideOutput"`
	GenerateFor []string            `yaml:"generateFor"`
	Outputs     map[string][]string `yaml:"outputs"`
	Options     map[string]any      `yaml:"options"`
}
