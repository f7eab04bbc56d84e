package engine

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/lineagekit/lineage/pkg/types"
)

// TestRelationshipsFor_SortedByCloseness tests the (degree, label) ordering.
func TestRelationshipsFor_SortedByCloseness(t *testing.T) {
	ctx := context.Background()
	eng := New(threeGenerations())

	rels, err := eng.RelationshipsFor(ctx, "g1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rels) == 0 {
		t.Fatal("expected relationships for g1")
	}
	if !sort.SliceIsSorted(rels, func(i, j int) bool {
		if rels[i].DegreeOfSeparation != rels[j].DegreeOfSeparation {
			return rels[i].DegreeOfSeparation < rels[j].DegreeOfSeparation
		}
		return rels[i].Label < rels[j].Label
	}) {
		t.Errorf("relationships not sorted by (degree, label): %+v", rels)
	}

	// g1 relates to everyone else in the canonical tree.
	if len(rels) != 5 {
		t.Errorf("expected 5 relationships, got %d", len(rels))
	}
}

// TestRelationshipsFor_UnknownMember tests the fail-fast on caller misuse.
func TestRelationshipsFor_UnknownMember(t *testing.T) {
	eng := New(threeGenerations())

	_, err := eng.RelationshipsFor(context.Background(), "nobody", 4)
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

// TestFindAllCousins_ExcludesSiblings tests that a full sibling pair never
// shows up in the cousin scan.
func TestFindAllCousins_ExcludesSiblings(t *testing.T) {
	ctx := context.Background()
	eng := New(threeGenerations())

	pairs, err := eng.FindAllCousins(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pairs) != 1 {
		t.Fatalf("expected exactly 1 cousin pair, got %d: %+v", len(pairs), pairs)
	}
	got := pairs[0]
	if got.MemberAID != "g1" || got.MemberBID != "g2" {
		t.Errorf("expected cousin pair (g1, g2), got (%s, %s)", got.MemberAID, got.MemberBID)
	}
	if got.Label != "First Cousin" || got.CombinedGeneration != 4 {
		t.Errorf("cousin pair fields wrong: %+v", got)
	}

	for _, p := range pairs {
		if (p.MemberAID == "c1" && p.MemberBID == "c2") || (p.MemberAID == "c2" && p.MemberBID == "c1") {
			t.Errorf("sibling pair (c1, c2) must never be classified as cousins")
		}
	}
}

// TestFindAllInLaws tests the tree-wide in-law scan.
func TestFindAllInLaws(t *testing.T) {
	ctx := context.Background()
	eng := New(inLawTestSnapshot())

	rels, err := eng.FindAllInLaws(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rels) == 0 {
		t.Fatal("expected in-law relationships")
	}
	for _, rel := range rels {
		if !rel.Type.IsInLawType() {
			t.Errorf("non-in-law type in in-law scan: %+v", rel)
		}
		if !rel.IsInLaw {
			t.Errorf("in-law result missing the in-law flag: %+v", rel)
		}
		if rel.IsBloodRelative {
			t.Errorf("in-law flagged as blood relative: %+v", rel)
		}
	}
}

// TestRelationshipSummary tests the tree-wide tally.
func TestRelationshipSummary(t *testing.T) {
	ctx := context.Background()
	eng := New(threeGenerations())

	summary, err := eng.RelationshipSummary(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalMembers != 6 {
		t.Errorf("expected 6 members, got %d", summary.TotalMembers)
	}
	if summary.CountsByType[types.RelationSpouse] != 1 {
		t.Errorf("expected 1 spouse pair, got %d", summary.CountsByType[types.RelationSpouse])
	}
	if summary.CountsByType[types.RelationSibling] != 1 {
		t.Errorf("expected 1 sibling pair, got %d", summary.CountsByType[types.RelationSibling])
	}
	if summary.CountsByType[types.RelationCousin] != 1 {
		t.Errorf("expected 1 cousin pair, got %d", summary.CountsByType[types.RelationCousin])
	}
	// Ordered pairs run lexicographically (from < to), so c1->p1 counts as
	// parent while c1->g1 counts as child.
	if summary.CountsByType[types.RelationParent] != 4 {
		t.Errorf("expected 4 parent pairs, got %d", summary.CountsByType[types.RelationParent])
	}
	if summary.CountsByType[types.RelationGrandparent] != 4 {
		t.Errorf("expected 4 grandparent pairs, got %d", summary.CountsByType[types.RelationGrandparent])
	}
	if summary.InLawCount != 0 {
		t.Errorf("expected no in-laws in the canonical tree, got %d", summary.InLawCount)
	}
}

// TestRelationshipSummary_Deterministic tests that the parallel pair scan
// produces identical results across runs.
func TestRelationshipSummary_Deterministic(t *testing.T) {
	ctx := context.Background()
	eng := New(inLawTestSnapshot())

	first, err := eng.RelationshipSummary(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := eng.RelationshipSummary(ctx, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic summary: %+v vs %+v", first, again)
		}
	}
}

// TestFindAllCousins_DeterministicOrder tests stable output ordering from
// the parallel scan.
func TestFindAllCousins_DeterministicOrder(t *testing.T) {
	ctx := context.Background()
	snap := testSnapshot(
		[]string{"p1", "p2", "c1", "c2", "c3", "g1", "g2", "g3"},
		[]edge{
			{parent: "p1", child: "c1"},
			{parent: "p2", child: "c1"},
			{parent: "p1", child: "c2"},
			{parent: "p2", child: "c2"},
			{parent: "p1", child: "c3"},
			{parent: "p2", child: "c3"},
			{parent: "c1", child: "g1"},
			{parent: "c2", child: "g2"},
			{parent: "c3", child: "g3"},
		},
		nil,
	)
	eng := New(snap)

	first, err := eng.FindAllCousins(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 cousin pairs, got %d", len(first))
	}
	for i := 0; i < 5; i++ {
		again, err := eng.FindAllCousins(ctx, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic cousin scan: %+v vs %+v", first, again)
		}
	}
}

// TestSuggestRelationships tests filtering of known connections and the
// descending-confidence sort.
func TestSuggestRelationships(t *testing.T) {
	ctx := context.Background()
	eng := New(threeGenerations())

	// g1 was just added and linked to its parent c1; everything else is a
	// suggestion candidate.
	suggestions, err := eng.SuggestRelationships(ctx, "g1", []string{"c1"}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range suggestions {
		if s.ToID == "c1" {
			t.Errorf("known connection c1 must not be suggested")
		}
		if s.ToID == "g1" {
			t.Errorf("member must not be suggested to itself")
		}
		if s.Confidence < suggestionMinConfidence {
			t.Errorf("suggestion below confidence floor: %+v", s)
		}
	}

	// p1, p2 (grandparents), c2 (uncle/aunt), g2 (cousin).
	if len(suggestions) != 4 {
		t.Fatalf("expected 4 suggestions, got %d: %+v", len(suggestions), suggestions)
	}

	if !sort.SliceIsSorted(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	}) {
		t.Errorf("suggestions not sorted by descending confidence: %+v", suggestions)
	}
	// The cousin (0.95) must sort after the direct classifications (1.0).
	if suggestions[len(suggestions)-1].Type != types.RelationCousin {
		t.Errorf("expected cousin last, got %+v", suggestions[len(suggestions)-1])
	}
}

// TestScanPairs_ContextCancellation tests that a cancelled context stops a
// batch scan.
func TestScanPairs_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(threeGenerations())
	if _, err := eng.FindAllCousins(ctx, 4); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
