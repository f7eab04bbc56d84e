package engine

import (
	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// edge is a compact test representation of a parent-child edge.
type edge struct {
	parent, child string
	kind          types.ParentChildKind
}

// testSnapshot builds a snapshot from compact member/edge/marriage lists.
// Edges default to biological when kind is left empty.
func testSnapshot(members []string, edges []edge, marriages [][2]string) *Snapshot {
	data := &storage.SnapshotData{
		Tree: types.Tree{ID: "tree:test", Name: "test"},
	}

	for _, id := range members {
		data.Members = append(data.Members, types.Member{ID: id, TreeID: "tree:test", Name: id})
	}

	for _, e := range edges {
		kind := e.kind
		if kind == "" {
			kind = types.ParentChildBiological
		}
		data.Edges = append(data.Edges, types.ParentChildEdge{
			TreeID:   "tree:test",
			ParentID: e.parent,
			ChildID:  e.child,
			Kind:     kind,
		})
	}

	for _, m := range marriages {
		data.Marriages = append(data.Marriages, types.Marriage{
			TreeID:    "tree:test",
			Spouse1ID: m[0],
			Spouse2ID: m[1],
			Status:    types.MarriageMarried,
		})
	}

	return NewSnapshot(data)
}

// threeGenerations builds the canonical test tree:
//
//	p1 === p2          (married)
//	 |      |
//	c1     c2          (both children of p1 and p2)
//	 |      |
//	g1     g2          (children of c1 and c2 respectively)
func threeGenerations() *Snapshot {
	return testSnapshot(
		[]string{"p1", "p2", "c1", "c2", "g1", "g2"},
		[]edge{
			{parent: "p1", child: "c1"},
			{parent: "p2", child: "c1"},
			{parent: "p1", child: "c2"},
			{parent: "p2", child: "c2"},
			{parent: "c1", child: "g1"},
			{parent: "c2", child: "g2"},
		},
		[][2]string{{"p1", "p2"}},
	)
}
