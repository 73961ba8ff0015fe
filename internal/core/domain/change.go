package domain

// ChangeType classifies how an asset's status differs from the graph's last
// known state. Exactly one classification applies per identifier per
// detection pass.
type ChangeType int

const (
	// ChangeAdded marks an asset that is now on disk but unknown to the graph.
	ChangeAdded ChangeType = iota
	// ChangeRemoved marks an asset the graph considered readable that is gone.
	ChangeRemoved
	// ChangeModified marks an asset whose content digest no longer matches.
	ChangeModified
)

// String returns the human-readable name of the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	default:
		return "unknown"
	}
}

// ChangeSet maps asset identifiers to their detected change classification.
// Iteration order is not meaningful.
type ChangeSet map[AssetID]ChangeType

// Merge writes every entry of other into the set. Entries of other win on
// key collision.
func (cs ChangeSet) Merge(other ChangeSet) {
	for id, ct := range other {
		cs[id] = ct
	}
}

// IDs returns the identifiers covered by the set.
func (cs ChangeSet) IDs() []AssetID {
	ids := make([]AssetID, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	return ids
}

// Count returns how many entries carry the given classification.
func (cs ChangeSet) Count(ct ChangeType) int {
	n := 0
	for _, c := range cs {
		if c == ct {
			n++
		}
	}
	return n
}

// IDSet is a set of asset identifiers.
type IDSet map[AssetID]struct{}

// NewIDSet creates a set containing the given identifiers.
func NewIDSet(ids ...AssetID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier into the set.
func (s IDSet) Add(id AssetID) {
	s[id] = struct{}{}
}

// Has reports whether the identifier is in the set.
func (s IDSet) Has(id AssetID) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing the members of both sets.
func (s IDSet) Union(others ...IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out.Add(id)
	}
	for _, other := range others {
		for id := range other {
			out.Add(id)
		}
	}
	return out
}

// IDs returns the members of the set in unspecified order.
func (s IDSet) IDs() []AssetID {
	ids := make([]AssetID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
