// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/forge/internal/core/domain"

// AssetReader is a content-addressable read interface over workspace assets.
//
//go:generate go run go.uber.org/mock/mockgen -source=assets.go -destination=mocks/mock_assets.go -package=mocks
type AssetReader interface {
	// CanRead reports whether the asset exists and is readable.
	CanRead(id domain.AssetID) (bool, error)

	// Read returns the asset's content.
	Read(id domain.AssetID) ([]byte, error)

	// ReadString returns the asset's content as a string.
	ReadString(id domain.AssetID) (string, error)

	// Digest computes the asset's current content digest.
	Digest(id domain.AssetID) (domain.Digest, error)

	// FindAssets enumerates assets matching a glob pattern. A non-empty
	// pkg scopes the search to that package; otherwise all packages are
	// searched.
	FindAssets(pattern, pkg string) ([]domain.AssetID, error)
}

// AssetWriter is the write interface over workspace assets.
type AssetWriter interface {
	// Delete removes the asset. Deleting an absent asset is not an error.
	Delete(id domain.AssetID) error
}
