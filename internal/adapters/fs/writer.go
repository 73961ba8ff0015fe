package fs

import (
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.AssetWriter = (*Writer)(nil)

// Writer implements ports.AssetWriter over the workspace filesystem. An
// asset may exist in the source tree (root package only) or in the
// generated-output directory; Delete clears whichever copies exist.
type Writer struct {
	reader *Reader
}

// NewWriter creates a Writer sharing the Reader's asset resolution.
func NewWriter(reader *Reader) *Writer {
	return &Writer{reader: reader}
}

// Delete removes the asset from disk. A missing file is not an error.
func (w *Writer) Delete(id domain.AssetID) error {
	shadow := filepath.Join(
		w.reader.workDir,
		filepath.FromSlash(domain.GeneratedDir()),
		id.Package.String(),
		filepath.FromSlash(id.Path.String()),
	)
	if err := removeFile(shadow); err != nil {
		return zerr.With(err, "asset", id.String())
	}

	// Source-tree copies only ever exist in the root package; outputs in
	// dependency packages live solely in the generated-output directory.
	if id.Package.String() != w.reader.packages.Root.Name {
		return nil
	}

	path, err := w.reader.Resolve(id)
	if err != nil {
		return err
	}
	if err := removeFile(path); err != nil {
		return zerr.With(err, "asset", id.String())
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return zerr.Wrap(err, "failed to delete asset")
	}
	return nil
}
