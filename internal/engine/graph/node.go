package graph

import "go.trai.ch/forge/internal/core/domain"

// Node is one tracked asset in the graph. The concrete type tags the node
// kind; each kind carries only the fields meaningful for it.
type Node interface {
	// ID returns the asset identifier of the node.
	ID() domain.AssetID
	// LastDigest returns the last known content digest, or nil if the
	// asset was never hashed.
	LastDigest() *domain.Digest
}

// SourceNode tracks a user-supplied file.
type SourceNode struct {
	AssetID domain.AssetID
	Digest  *domain.Digest
}

// ID returns the asset identifier of the node.
func (n *SourceNode) ID() domain.AssetID { return n.AssetID }

// LastDigest returns the last known content digest.
func (n *SourceNode) LastDigest() *domain.Digest { return n.Digest }

// GeneratedNode tracks a file the pipeline is expected to produce.
type GeneratedNode struct {
	AssetID domain.AssetID
	Digest  *domain.Digest

	// Phase is the index of the build action declaring this output.
	Phase int

	// WasOutput reports whether the output was actually emitted by a
	// previous build, as opposed to merely declared.
	WasOutput bool

	// Hidden hides the output from downstream visibility.
	Hidden bool

	// Input is the primary input the output derives from.
	Input domain.AssetID
}

// ID returns the asset identifier of the node.
func (n *GeneratedNode) ID() domain.AssetID { return n.AssetID }

// LastDigest returns the last known content digest.
func (n *GeneratedNode) LastDigest() *domain.Digest { return n.Digest }

// OptionsNode tracks the serialized builder configuration of one build phase.
type OptionsNode struct {
	AssetID domain.AssetID
	Digest  *domain.Digest
}

// ID returns the asset identifier of the node.
func (n *OptionsNode) ID() domain.AssetID { return n.AssetID }

// LastDigest returns the last known digest of the serialized options.
func (n *OptionsNode) LastDigest() *domain.Digest { return n.Digest }

// Readable reports whether the node represents something expected to exist
// on disk: an ordinary source, or a generated output that was actually
// emitted. Options nodes are pure bookkeeping and never readable.
func Readable(n Node) bool {
	switch node := n.(type) {
	case *SourceNode:
		return true
	case *GeneratedNode:
		return node.WasOutput
	default:
		return false
	}
}
