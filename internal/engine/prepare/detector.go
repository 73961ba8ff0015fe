package prepare

import (
	"context"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/graph"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Detector diffs enumerated sources against a loaded graph to produce the
// change map for one preparation pass.
type Detector struct {
	graph   *graph.AssetGraph
	reader  ports.AssetReader
	actions []domain.BuildAction
}

// NewDetector creates a Detector over a loaded graph.
func NewDetector(g *graph.AssetGraph, reader ports.AssetReader, actions []domain.BuildAction) *Detector {
	return &Detector{graph: g, reader: reader, actions: actions}
}

// Changes runs both detection passes and merges the results. The builder
// options pass runs second and overrides the source pass on key collision.
func (d *Detector) Changes(ctx context.Context, sources *SourceSets) (domain.ChangeSet, error) {
	changes, err := d.sourceDiff(ctx, sources)
	if err != nil {
		return nil, err
	}

	optionChanges, err := d.optionsDiff()
	if err != nil {
		return nil, err
	}
	changes.Merge(optionChanges)

	return changes, nil
}

// sourceDiff classifies every identifier whose disk status differs from the
// graph's last known state.
func (d *Detector) sourceDiff(ctx context.Context, sources *SourceSets) (domain.ChangeSet, error) {
	changes := domain.ChangeSet{}

	// Added: current inputs with no valid input node in the graph.
	for id := range sources.Inputs {
		if node, ok := d.graph.Get(id); !ok || !isValidInput(node) {
			changes[id] = domain.ChangeAdded
		}
	}

	// Removed: readable nodes absent from all three current populations.
	// A generated node only counts if it was actually emitted; a declared
	// but never emitted output disappearing is not a removal.
	all := sources.All()
	for node := range d.graph.AllNodes() {
		if graph.Readable(node) && !all.Has(node.ID()) {
			changes[node.ID()] = domain.ChangeRemoved
		}
	}

	// Modified: previously known sources still present as inputs, plus any
	// internal asset the graph already tracks.
	candidates := make([]graph.Node, 0)
	for id := range d.graph.SourceIDs() {
		if sources.Inputs.Has(id) {
			node, _ := d.graph.Get(id)
			candidates = append(candidates, node)
		}
	}
	for id := range sources.Internal {
		if node, ok := d.graph.Get(id); ok && !sources.Inputs.Has(id) {
			candidates = append(candidates, node)
		}
	}

	if err := d.diffDigests(ctx, candidates, changes); err != nil {
		return nil, err
	}

	return changes, nil
}

// diffDigests compares the current content digest of each candidate against
// the graph's last known digest. Computations are independent and fan out
// concurrently; the pass completes only when every comparison has finished.
func (d *Detector) diffDigests(ctx context.Context, candidates []graph.Node, changes domain.ChangeSet) error {
	eg, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, node := range candidates {
		last := node.LastDigest()
		if last == nil {
			// Never hashed: nothing to compare against.
			continue
		}
		id := node.ID()
		eg.Go(func() error {
			current, err := d.reader.Digest(id)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to compute content digest"), "asset", id.String())
			}
			if current != *last {
				mu.Lock()
				changes[id] = domain.ChangeModified
				mu.Unlock()
			}
			return nil
		})
	}

	return eg.Wait()
}

// optionsDiff compares every build phase's current options digest to the
// digest stored on its configuration node, refreshing the stored digest in
// place on mismatch. This is the only place options digests are updated.
func (d *Detector) optionsDiff() (domain.ChangeSet, error) {
	changes := domain.ChangeSet{}

	for phase, action := range d.actions {
		id := domain.OptionsNodeID(action, phase)

		node, ok := d.graph.Get(id)
		if !ok {
			err := zerr.With(domain.ErrMissingOptionsNode, "phase", phase)
			return nil, zerr.With(err, "builder", action.Builder)
		}
		opt, ok := node.(*graph.OptionsNode)
		if !ok {
			err := zerr.With(domain.ErrMissingOptionsNode, "phase", phase)
			return nil, zerr.With(err, "asset", id.String())
		}

		current := action.OptionsDigest()
		if opt.Digest == nil || *opt.Digest != current {
			changes[id] = domain.ChangeModified
			opt.Digest = &current
		}
	}

	return changes, nil
}

// isValidInput reports whether the node can satisfy an input source with the
// same identifier.
func isValidInput(n graph.Node) bool {
	_, ok := n.(*graph.SourceNode)
	return ok
}
