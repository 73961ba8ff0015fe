// Package graph implements the asset dependency graph: which assets exist,
// what the build is expected to produce from them, and the digests needed to
// detect change between runs.
package graph

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// AssetGraph tracks every asset relevant to the build, keyed by identifier.
// It records the fingerprint of the action list it was built against so a
// persisted graph can be rejected wholesale when the configuration changes.
type AssetGraph struct {
	nodes       map[domain.AssetID]Node
	fingerprint domain.Digest

	// byInput maps a source identifier to the generated outputs declared
	// for it.
	byInput map[domain.AssetID][]domain.AssetID
}

func newAssetGraph(fingerprint domain.Digest) *AssetGraph {
	return &AssetGraph{
		nodes:       make(map[domain.AssetID]Node),
		fingerprint: fingerprint,
		byInput:     make(map[domain.AssetID][]domain.AssetID),
	}
}

// Build constructs a fresh graph from the ordered action list, the current
// input and internal sources, and the workspace package metadata. Source
// digests are computed through the reader so the first incremental run has
// something to diff against.
func Build(
	ctx context.Context,
	actions []domain.BuildAction,
	inputs domain.IDSet,
	internal domain.IDSet,
	packages *domain.PackageGraph,
	reader ports.AssetReader,
) (*AssetGraph, error) {
	g := newAssetGraph(domain.ActionsFingerprint(actions))

	for id := range inputs {
		if _, ok := packages.Get(id.Package.String()); !ok {
			return nil, zerr.With(domain.ErrUnknownPackage, "asset", id.String())
		}
		g.nodes[id] = &SourceNode{AssetID: id}
	}
	for id := range internal {
		g.nodes[id] = &SourceNode{AssetID: id}
	}

	for phase, action := range actions {
		optID := domain.OptionsNodeID(action, phase)
		optDigest := action.OptionsDigest()
		g.nodes[optID] = &OptionsNode{AssetID: optID, Digest: &optDigest}
	}

	for id := range inputs {
		g.declareOutputs(actions, id)
	}

	if err := g.hashSources(ctx, reader); err != nil {
		return nil, err
	}

	return g, nil
}

// declareOutputs adds generated nodes for every output the action list
// declares for the given input. A declared output that collides with an
// existing source is still declared; the bootstrapper resolves the conflict
// before any build runs.
func (g *AssetGraph) declareOutputs(actions []domain.BuildAction, input domain.AssetID) {
	path := input.Path.String()

	for phase, action := range actions {
		if action.Package != input.Package.String() {
			continue
		}
		if !matchesAny(action.GenerateFor, path) {
			continue
		}
		for inExt, outExts := range action.Outputs {
			if !strings.HasSuffix(path, inExt) {
				continue
			}
			stem := strings.TrimSuffix(path, inExt)
			for _, outExt := range outExts {
				outID := domain.NewAssetID(input.Package.String(), stem+outExt)
				g.nodes[outID] = &GeneratedNode{
					AssetID: outID,
					Phase:   phase,
					Hidden:  action.HideOutput,
					Input:   input,
				}
				g.byInput[input] = append(g.byInput[input], outID)
			}
		}
	}
}

// matchesAny reports whether the path matches any of the patterns. An empty
// pattern list matches everything.
func matchesAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// hashSources fills in content digests for every source node. Digest
// computations are independent and run concurrently behind one barrier.
func (g *AssetGraph) hashSources(ctx context.Context, reader ports.AssetReader) error {
	eg, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, node := range g.nodes {
		src, ok := node.(*SourceNode)
		if !ok {
			continue
		}
		eg.Go(func() error {
			digest, err := reader.Digest(src.AssetID)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to hash source"), "asset", src.AssetID.String())
			}
			mu.Lock()
			src.Digest = &digest
			mu.Unlock()
			return nil
		})
	}

	return eg.Wait()
}

// Fingerprint returns the build-action fingerprint recorded at build time.
func (g *AssetGraph) Fingerprint() domain.Digest {
	return g.fingerprint
}

// Get looks up a node by identifier.
func (g *AssetGraph) Get(id domain.AssetID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Contains reports whether the graph tracks the identifier.
func (g *AssetGraph) Contains(id domain.AssetID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of tracked nodes.
func (g *AssetGraph) Len() int {
	return len(g.nodes)
}

// AllNodes returns an iterator over every node, in unspecified order.
func (g *AssetGraph) AllNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range g.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// SourceIDs returns the identifiers of every source node.
func (g *AssetGraph) SourceIDs() domain.IDSet {
	ids := domain.NewIDSet()
	for id, n := range g.nodes {
		if _, ok := n.(*SourceNode); ok {
			ids.Add(id)
		}
	}
	return ids
}

// Outputs returns the identifiers of every declared generated output,
// sorted for stable reporting.
func (g *AssetGraph) Outputs() []domain.AssetID {
	var out []domain.AssetID
	for id, n := range g.nodes {
		if _, ok := n.(*GeneratedNode); ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// UpdateAndInvalidate applies a merged change map to the graph. Additions
// create source nodes and declare their outputs; modifications refresh the
// stored source digest and invalidate derived outputs; removals drop nodes
// and delete previously emitted outputs through the callback. The callback
// is invoked once per identifier actually deleted.
func (g *AssetGraph) UpdateAndInvalidate(
	actions []domain.BuildAction,
	changes domain.ChangeSet,
	rootPackage string,
	deleteFn func(domain.AssetID) error,
	reader ports.AssetReader,
) error {
	for id, ct := range changes {
		switch ct {
		case domain.ChangeAdded:
			digest, err := reader.Digest(id)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to hash added source"), "asset", id.String())
			}
			g.nodes[id] = &SourceNode{AssetID: id, Digest: &digest}
			g.declareOutputs(actions, id)

		case domain.ChangeModified:
			node, ok := g.nodes[id]
			if !ok {
				continue
			}
			if src, isSource := node.(*SourceNode); isSource {
				digest, err := reader.Digest(id)
				if err != nil {
					return zerr.With(zerr.Wrap(err, "failed to re-hash source"), "asset", id.String())
				}
				src.Digest = &digest
			}
			// Outputs derived from a modified input lose their digest
			// until the next build re-emits them.
			for _, outID := range g.byInput[id] {
				if gen, isGen := g.nodes[outID].(*GeneratedNode); isGen {
					gen.Digest = nil
				}
			}
		}
	}

	for id, ct := range changes {
		if ct != domain.ChangeRemoved {
			continue
		}
		if err := g.remove(id, rootPackage, deleteFn); err != nil {
			return err
		}
	}

	return nil
}

// remove drops the node for id. Removing a source also deletes every output
// that was actually emitted for it.
func (g *AssetGraph) remove(id domain.AssetID, rootPackage string, deleteFn func(domain.AssetID) error) error {
	switch g.nodes[id].(type) {
	case *SourceNode:
		for _, outID := range g.byInput[id] {
			gen, ok := g.nodes[outID].(*GeneratedNode)
			if !ok {
				continue
			}
			if !gen.Hidden && outID.Package.String() != rootPackage {
				return zerr.With(domain.ErrActionOutsideRoot, "asset", outID.String())
			}
			if gen.WasOutput {
				if err := deleteFn(outID); err != nil {
					return zerr.With(zerr.Wrap(err, "failed to delete stale output"), "asset", outID.String())
				}
			}
			delete(g.nodes, outID)
		}
		delete(g.byInput, id)
		delete(g.nodes, id)

	case *GeneratedNode:
		// The materialized output disappeared from the cache directory;
		// drop the node so the next build re-emits it.
		delete(g.nodes, id)
	}
	return nil
}
