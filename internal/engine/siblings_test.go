package engine

import (
	"errors"
	"testing"

	"github.com/lineagekit/lineage/pkg/types"
)

// TestSiblingsOf_Full tests that two shared parents classify as full.
func TestSiblingsOf_Full(t *testing.T) {
	eng := New(threeGenerations())

	siblings, err := eng.SiblingsOf("c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(siblings) != 1 {
		t.Fatalf("expected 1 sibling, got %d", len(siblings))
	}
	if siblings[0].SiblingID != "c2" || siblings[0].Kind != types.SiblingFull {
		t.Errorf("expected full sibling c2, got %+v", siblings[0])
	}
	if len(siblings[0].SharedParentIDs) != 2 {
		t.Errorf("expected 2 shared parents, got %v", siblings[0].SharedParentIDs)
	}
}

// TestSiblingsOf_Half tests the exactly-one-shared-parent boundary.
func TestSiblingsOf_Half(t *testing.T) {
	snap := testSnapshot(
		[]string{"p1", "p2", "p3", "a", "b"},
		[]edge{
			{parent: "p1", child: "a"},
			{parent: "p2", child: "a"},
			{parent: "p1", child: "b"},
			{parent: "p3", child: "b"},
		},
		nil,
	)
	eng := New(snap)

	siblings, err := eng.SiblingsOf("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(siblings) != 1 {
		t.Fatalf("expected 1 sibling, got %d", len(siblings))
	}
	if siblings[0].Kind != types.SiblingHalf {
		t.Errorf("expected half sibling, got %s", siblings[0].Kind)
	}
	if len(siblings[0].SharedParentIDs) != 1 || siblings[0].SharedParentIDs[0] != "p1" {
		t.Errorf("expected shared parent p1, got %v", siblings[0].SharedParentIDs)
	}
}

// TestSiblingsOf_Step tests zero shared parents linked via a remarriage.
func TestSiblingsOf_Step(t *testing.T) {
	// a is a child of p1, b is a child of p2; p1 and p2 are married.
	snap := testSnapshot(
		[]string{"p1", "p2", "a", "b"},
		[]edge{
			{parent: "p1", child: "a"},
			{parent: "p2", child: "b"},
		},
		[][2]string{{"p1", "p2"}},
	)
	eng := New(snap)

	siblings, err := eng.SiblingsOf("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(siblings) != 1 {
		t.Fatalf("expected 1 sibling, got %d", len(siblings))
	}
	if siblings[0].SiblingID != "b" || siblings[0].Kind != types.SiblingStep {
		t.Errorf("expected step sibling b, got %+v", siblings[0])
	}
	if len(siblings[0].SharedParentIDs) != 0 {
		t.Errorf("step siblings share no parents, got %v", siblings[0].SharedParentIDs)
	}
}

// TestSiblingsOf_UnrelatedNotIncluded tests that members without a parent
// link or household link are not siblings.
func TestSiblingsOf_UnrelatedNotIncluded(t *testing.T) {
	snap := testSnapshot(
		[]string{"p1", "p2", "a", "b"},
		[]edge{
			{parent: "p1", child: "a"},
			{parent: "p2", child: "b"},
		},
		nil, // no marriage between p1 and p2
	)
	eng := New(snap)

	siblings, err := eng.SiblingsOf("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(siblings) != 0 {
		t.Errorf("expected no siblings, got %+v", siblings)
	}
}

// TestSiblingsOf_UnknownMember tests the fail-fast on caller misuse.
func TestSiblingsOf_UnknownMember(t *testing.T) {
	eng := New(threeGenerations())

	_, err := eng.SiblingsOf("nobody")
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

// TestSiblingsOf_Deterministic tests sorted output across repeated calls.
func TestSiblingsOf_Deterministic(t *testing.T) {
	snap := testSnapshot(
		[]string{"p1", "p2", "a", "b", "c", "d"},
		[]edge{
			{parent: "p1", child: "a"},
			{parent: "p2", child: "a"},
			{parent: "p1", child: "b"},
			{parent: "p2", child: "b"},
			{parent: "p1", child: "c"},
			{parent: "p2", child: "c"},
			{parent: "p1", child: "d"},
			{parent: "p2", child: "d"},
		},
		nil,
	)
	eng := New(snap)

	first, err := eng.SiblingsOf("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := eng.SiblingsOf("a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("non-deterministic sibling count")
		}
		for j := range again {
			if again[j].SiblingID != first[j].SiblingID {
				t.Fatalf("non-deterministic sibling order: %v vs %v", again, first)
			}
		}
	}
}
