package graph

import (
	"encoding/json"
	"sort"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// serialVersion is the on-disk format version. Bumping it invalidates every
// persisted graph; stale formats are discarded, never migrated.
const serialVersion = 1

const (
	kindSource    = "source"
	kindGenerated = "generated"
	kindOptions   = "options"
)

type graphDoc struct {
	Version     int           `json:"version"`
	Fingerprint domain.Digest `json:"fingerprint"`
	Nodes       []nodeRecord  `json:"nodes"`
}

type nodeRecord struct {
	Kind      string         `json:"kind"`
	ID        domain.AssetID `json:"id"`
	Digest    *domain.Digest `json:"digest,omitempty"`
	Phase     int            `json:"phase,omitempty"`
	WasOutput bool           `json:"was_output,omitempty"`
	Hidden    bool           `json:"hidden,omitempty"`
	Input     domain.AssetID `json:"input,omitzero"`
}

// Serialize encodes the graph as a JSON document. Nodes are sorted by
// identifier so repeated serialization of the same graph is byte-identical.
func (g *AssetGraph) Serialize() ([]byte, error) {
	doc := graphDoc{
		Version:     serialVersion,
		Fingerprint: g.fingerprint,
		Nodes:       make([]nodeRecord, 0, len(g.nodes)),
	}

	for _, n := range g.nodes {
		rec := nodeRecord{ID: n.ID(), Digest: n.LastDigest()}
		switch node := n.(type) {
		case *SourceNode:
			rec.Kind = kindSource
		case *GeneratedNode:
			rec.Kind = kindGenerated
			rec.Phase = node.Phase
			rec.WasOutput = node.WasOutput
			rec.Hidden = node.Hidden
			rec.Input = node.Input
		case *OptionsNode:
			rec.Kind = kindOptions
		}
		doc.Nodes = append(doc.Nodes, rec)
	}

	sort.Slice(doc.Nodes, func(i, j int) bool {
		return doc.Nodes[i].ID.String() < doc.Nodes[j].ID.String()
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal asset graph")
	}
	return data, nil
}

// Deserialize decodes a persisted graph document. A document written by a
// different serialization version fails with domain.ErrGraphVersionMismatch,
// distinct from generic parse failures.
func Deserialize(data []byte) (*AssetGraph, error) {
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal asset graph")
	}

	if doc.Version != serialVersion {
		err := zerr.With(domain.ErrGraphVersionMismatch, "found", doc.Version)
		return nil, zerr.With(err, "supported", serialVersion)
	}

	g := newAssetGraph(doc.Fingerprint)
	for _, rec := range doc.Nodes {
		switch rec.Kind {
		case kindSource:
			g.nodes[rec.ID] = &SourceNode{AssetID: rec.ID, Digest: rec.Digest}
		case kindGenerated:
			g.nodes[rec.ID] = &GeneratedNode{
				AssetID:   rec.ID,
				Digest:    rec.Digest,
				Phase:     rec.Phase,
				WasOutput: rec.WasOutput,
				Hidden:    rec.Hidden,
				Input:     rec.Input,
			}
			if !rec.Input.IsZero() {
				g.byInput[rec.Input] = append(g.byInput[rec.Input], rec.ID)
			}
		case kindOptions:
			g.nodes[rec.ID] = &OptionsNode{AssetID: rec.ID, Digest: rec.Digest}
		default:
			return nil, zerr.With(zerr.New("unknown node kind"), "kind", rec.Kind)
		}
	}

	return g, nil
}
