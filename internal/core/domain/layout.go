package domain

import "path/filepath"

const (
	// ForgeDirName is the name of the internal workspace directory.
	ForgeDirName = ".forge"

	// GeneratedDirName is the name of the generated-output directory,
	// flat-namespaced by <package>/<path>.
	GeneratedDirName = "generated"

	// EntrypointDirName is the name of the engine bookkeeping directory.
	EntrypointDirName = "entrypoint"

	// GraphFileName is the name of the persisted asset graph document.
	GraphFileName = "graph.json"

	// ConfigFileName is the name of the build configuration file.
	ConfigFileName = "forge.yaml"

	// PlatformPackageName is the reserved name of the virtual platform package.
	PlatformPackageName = "$platform"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// GeneratedDir returns the workspace-relative path of the generated-output area.
func GeneratedDir() string {
	return filepath.Join(ForgeDirName, GeneratedDirName)
}

// EntrypointDir returns the workspace-relative path of the bookkeeping area.
func EntrypointDir() string {
	return filepath.Join(ForgeDirName, EntrypointDirName)
}

// GraphPath returns the workspace-relative path of the persisted asset graph.
func GraphPath() string {
	return filepath.Join(ForgeDirName, GeneratedDirName, GraphFileName)
}
