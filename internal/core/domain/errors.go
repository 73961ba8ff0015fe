package domain

import "go.trai.ch/zerr"

var (
	// ErrActionOutsideRoot is returned when a build action with visible
	// output belongs to a package other than the root package.
	ErrActionOutsideRoot = zerr.New("build action with visible output outside root package")

	// ErrUnexpectedOutputs is returned when declared build outputs already
	// exist on disk and the conflict is not resolved.
	ErrUnexpectedOutputs = zerr.New("unexpected pre-existing build outputs")

	// ErrDependencyConflict is returned when declared outputs collide with
	// existing files in a dependency package. Never auto-resolved.
	ErrDependencyConflict = zerr.New("conflicting outputs in dependency package")

	// ErrMissingOptionsNode is returned when a declared build phase has no
	// configuration node in the graph. This signals a deeper inconsistency.
	ErrMissingOptionsNode = zerr.New("builder options node missing from graph")

	// ErrGraphVersionMismatch is returned when a persisted graph was written
	// by an incompatible serialization version.
	ErrGraphVersionMismatch = zerr.New("asset graph version mismatch")

	// ErrUnknownPackage is returned when an asset identifier names a package
	// the workspace does not know about.
	ErrUnknownPackage = zerr.New("unknown package")

	// ErrAssetNotFound is returned when an asset cannot be read.
	ErrAssetNotFound = zerr.New("asset not found")
)
