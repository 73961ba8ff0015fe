// Package cas implements the content-addressed caching layer handed to the
// build phase: reads are memoized by asset identifier and previously
// materialized generated outputs are served from the generated-output
// directory.
package cas

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/zerr"
)

var (
	_ ports.AssetReader = (*Cache)(nil)
	_ ports.AssetWriter = (*Cache)(nil)
)

// Cache wraps a raw reader/writer pair with knowledge of the asset graph.
// Generated outputs that were produced by an earlier build do not exist in
// their package's source tree; the Cache transparently serves them from the
// generated-output directory instead.
type Cache struct {
	reader  ports.AssetReader
	writer  ports.AssetWriter
	graph   *graph.AssetGraph
	workDir string

	mu      sync.RWMutex
	content map[domain.AssetID][]byte
	digests map[domain.AssetID]domain.Digest
}

// NewCache creates a Cache over the raw filesystem adapters.
func NewCache(reader ports.AssetReader, writer ports.AssetWriter, g *graph.AssetGraph, workDir string) *Cache {
	return &Cache{
		reader:  reader,
		writer:  writer,
		graph:   g,
		workDir: workDir,
		content: make(map[domain.AssetID][]byte),
		digests: make(map[domain.AssetID]domain.Digest),
	}
}

// shadowPath returns the generated-output location for an asset, or "" when
// the asset is not a previously materialized generated output.
func (c *Cache) shadowPath(id domain.AssetID) string {
	node, ok := c.graph.Get(id)
	if !ok {
		return ""
	}
	gen, ok := node.(*graph.GeneratedNode)
	if !ok || !gen.WasOutput {
		return ""
	}
	return filepath.Join(
		c.workDir,
		filepath.FromSlash(domain.GeneratedDir()),
		id.Package.String(),
		filepath.FromSlash(id.Path.String()),
	)
}

// CanRead reports whether the asset is readable, consulting the
// generated-output directory for materialized outputs.
func (c *Cache) CanRead(id domain.AssetID) (bool, error) {
	c.mu.RLock()
	_, cached := c.content[id]
	c.mu.RUnlock()
	if cached {
		return true, nil
	}

	if shadow := c.shadowPath(id); shadow != "" {
		if _, err := os.Stat(shadow); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, "failed to stat cached output"), "asset", id.String())
		}
		return true, nil
	}

	return c.reader.CanRead(id)
}

// Read returns the asset's content, memoizing it for subsequent reads.
func (c *Cache) Read(id domain.AssetID) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.content[id]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := c.readThrough(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.content[id] = data
	c.mu.Unlock()
	return data, nil
}

func (c *Cache) readThrough(id domain.AssetID) ([]byte, error) {
	shadow := c.shadowPath(id)
	if shadow == "" {
		return c.reader.Read(id)
	}

	data, err := os.ReadFile(shadow) //nolint:gosec // Path is derived from graph metadata
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(domain.ErrAssetNotFound, "asset", id.String())
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read cached output"), "asset", id.String())
	}
	return data, nil
}

// ReadString returns the asset's content as a string.
func (c *Cache) ReadString(id domain.AssetID) (string, error) {
	data, err := c.Read(id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Digest returns the asset's content digest, preferring the digest recorded
// in the graph and falling back to hashing the content.
func (c *Cache) Digest(id domain.AssetID) (domain.Digest, error) {
	c.mu.RLock()
	d, ok := c.digests[id]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	if node, ok := c.graph.Get(id); ok {
		if last := node.LastDigest(); last != nil {
			c.mu.Lock()
			c.digests[id] = *last
			c.mu.Unlock()
			return *last, nil
		}
	}

	data, err := c.Read(id)
	if err != nil {
		return "", err
	}
	d = domain.DigestBytes(data)

	c.mu.Lock()
	c.digests[id] = d
	c.mu.Unlock()
	return d, nil
}

// FindAssets delegates to the raw reader; enumeration is never cached.
func (c *Cache) FindAssets(pattern, pkg string) ([]domain.AssetID, error) {
	return c.reader.FindAssets(pattern, pkg)
}

// Delete removes the asset and evicts any memoized state for it.
func (c *Cache) Delete(id domain.AssetID) error {
	c.mu.Lock()
	delete(c.content, id)
	delete(c.digests, id)
	c.mu.Unlock()

	return c.writer.Delete(id)
}
