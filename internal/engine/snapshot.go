// Package engine implements the relationship inference engine: given a
// snapshot of one family tree (members, parent-child edges, marriages) it
// derives semantic kinship labels between any two members without those
// labels ever being stored.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// ErrMemberNotFound is returned when a classification or traversal is
// invoked with a member ID that is not present in the snapshot. This is a
// caller bug, distinct from a pair simply having no relationship.
var ErrMemberNotFound = errors.New("member not found in snapshot")

// DefaultMaxGenerations bounds ancestor/descendant traversal. It is the sole
// guard against unbounded work on malformed (cyclic) parent data.
const DefaultMaxGenerations = 4

// Snapshot is an immutable, fully-indexed read of one tree. All adjacency
// is resolved at construction so traversal never goes back to storage.
// Adjacency slices are kept sorted so every derivation is deterministic.
type Snapshot struct {
	treeID  string
	members map[string]types.Member

	// parents maps child ID -> parent IDs; children is the mirror.
	parents  map[string][]string
	children map[string][]string

	// edgeKinds maps child ID -> parent ID -> edge kind.
	edgeKinds map[string]map[string]types.ParentChildKind

	// spouses maps member ID -> spouse IDs, indexed in both directions.
	spouses map[string][]string
}

// NewSnapshot builds a snapshot from the flat data the storage layer loads.
// Edges or marriages referencing unknown members are skipped rather than
// rejected; the store validates on write, and a tolerant read keeps a
// partially-inconsistent tree usable.
func NewSnapshot(data *storage.SnapshotData) *Snapshot {
	s := &Snapshot{
		treeID:    data.Tree.ID,
		members:   make(map[string]types.Member, len(data.Members)),
		parents:   make(map[string][]string),
		children:  make(map[string][]string),
		edgeKinds: make(map[string]map[string]types.ParentChildKind),
		spouses:   make(map[string][]string),
	}

	for _, m := range data.Members {
		s.members[m.ID] = m
	}

	for _, e := range data.Edges {
		if !s.HasMember(e.ParentID) || !s.HasMember(e.ChildID) {
			continue
		}
		s.parents[e.ChildID] = appendUnique(s.parents[e.ChildID], e.ParentID)
		s.children[e.ParentID] = appendUnique(s.children[e.ParentID], e.ChildID)

		kinds := s.edgeKinds[e.ChildID]
		if kinds == nil {
			kinds = make(map[string]types.ParentChildKind)
			s.edgeKinds[e.ChildID] = kinds
		}
		kinds[e.ParentID] = e.Kind
	}

	for _, m := range data.Marriages {
		if !s.HasMember(m.Spouse1ID) || !s.HasMember(m.Spouse2ID) || m.Spouse1ID == m.Spouse2ID {
			continue
		}
		s.spouses[m.Spouse1ID] = appendUnique(s.spouses[m.Spouse1ID], m.Spouse2ID)
		s.spouses[m.Spouse2ID] = appendUnique(s.spouses[m.Spouse2ID], m.Spouse1ID)
	}

	for _, adj := range []map[string][]string{s.parents, s.children, s.spouses} {
		for id := range adj {
			sort.Strings(adj[id])
		}
	}

	return s
}

// TreeID returns the ID of the tree this snapshot was loaded from.
func (s *Snapshot) TreeID() string {
	return s.treeID
}

// HasMember reports whether the member exists in the snapshot.
func (s *Snapshot) HasMember(id string) bool {
	_, ok := s.members[id]
	return ok
}

// Member returns the member record for id.
// Returns ErrMemberNotFound if the member is not in the snapshot.
func (s *Snapshot) Member(id string) (types.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return types.Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return m, nil
}

// MemberIDs returns all member IDs sorted ascending.
func (s *Snapshot) MemberIDs() []string {
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemberCount returns the number of members in the snapshot.
func (s *Snapshot) MemberCount() int {
	return len(s.members)
}

// DirectParents returns the parent IDs of a member, sorted ascending.
// The returned slice must not be mutated.
func (s *Snapshot) DirectParents(id string) []string {
	return s.parents[id]
}

// DirectChildren returns the child IDs of a member, sorted ascending.
// The returned slice must not be mutated.
func (s *Snapshot) DirectChildren(id string) []string {
	return s.children[id]
}

// Spouses returns the spouse IDs of a member across all of its marriages,
// sorted ascending. The returned slice must not be mutated.
func (s *Snapshot) Spouses(id string) []string {
	return s.spouses[id]
}

// ParentEdgeKind returns the kind of the parent-child edge from parentID to
// childID, and whether such an edge exists.
func (s *Snapshot) ParentEdgeKind(childID, parentID string) (types.ParentChildKind, bool) {
	kinds, ok := s.edgeKinds[childID]
	if !ok {
		return "", false
	}
	kind, ok := kinds[parentID]
	return kind, ok
}

// IsSpouse reports whether a and b are linked by a marriage.
func (s *Snapshot) IsSpouse(a, b string) bool {
	for _, sp := range s.spouses[a] {
		if sp == b {
			return true
		}
	}
	return false
}

// IsDirectParent reports whether parentID is a direct parent of childID.
func (s *Snapshot) IsDirectParent(childID, parentID string) bool {
	_, ok := s.ParentEdgeKind(childID, parentID)
	return ok
}

// appendUnique appends v to ids only if it is not already present.
// Adjacency lists are small, so the linear scan is fine.
func appendUnique(ids []string, v string) []string {
	for _, id := range ids {
		if id == v {
			return ids
		}
	}
	return append(ids, v)
}
