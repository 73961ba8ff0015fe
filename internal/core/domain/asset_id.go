// Package domain contains the core domain models for the build preparation engine.
package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// assetIDSeparator separates the package name from the in-package path in the
// textual form of an AssetID.
const assetIDSeparator = "|"

// AssetID uniquely names one file-like unit across the whole workspace.
// It pairs the owning package with the path relative to that package's root.
// Two identifiers are equal iff both components match exactly.
type AssetID struct {
	Package InternedString
	Path    InternedString
}

// NewAssetID creates an AssetID from a package name and an in-package path.
// The path is expected to use forward slashes.
func NewAssetID(pkg, path string) AssetID {
	return AssetID{
		Package: NewInternedString(pkg),
		Path:    NewInternedString(path),
	}
}

// ParseAssetID parses the textual "package|path" form produced by String.
func ParseAssetID(s string) (AssetID, error) {
	pkg, path, ok := strings.Cut(s, assetIDSeparator)
	if !ok || pkg == "" || path == "" {
		return AssetID{}, zerr.With(zerr.New("malformed asset identifier"), "value", s)
	}
	return NewAssetID(pkg, path), nil
}

// String returns the canonical "package|path" form.
func (id AssetID) String() string {
	return id.Package.String() + assetIDSeparator + id.Path.String()
}

// IsZero reports whether the identifier is the zero value.
func (id AssetID) IsZero() bool {
	return id == AssetID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AssetID) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
