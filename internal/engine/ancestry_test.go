package engine

import (
	"errors"
	"testing"
)

// TestAncestorsOf_Chain tests generation tagging along a straight line.
func TestAncestorsOf_Chain(t *testing.T) {
	snap := testSnapshot(
		[]string{"a", "b", "c", "d"},
		[]edge{
			{parent: "b", child: "a"},
			{parent: "c", child: "b"},
			{parent: "d", child: "c"},
		},
		nil,
	)
	eng := New(snap)

	ancestors, err := eng.AncestorsOf("a", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"b": 1, "c": 2, "d": 3}
	if len(ancestors) != len(want) {
		t.Fatalf("expected %d ancestors, got %d", len(want), len(ancestors))
	}
	for id, gen := range want {
		if ancestors[id] != gen {
			t.Errorf("ancestor %s: expected generation %d, got %d", id, gen, ancestors[id])
		}
	}
}

// TestAncestorsOf_MaxGenBound tests that traversal halts at the bound.
func TestAncestorsOf_MaxGenBound(t *testing.T) {
	snap := testSnapshot(
		[]string{"a", "b", "c", "d"},
		[]edge{
			{parent: "b", child: "a"},
			{parent: "c", child: "b"},
			{parent: "d", child: "c"},
		},
		nil,
	)
	eng := New(snap)

	ancestors, err := eng.AncestorsOf("a", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ancestors) != 2 {
		t.Errorf("expected 2 ancestors within bound, got %d", len(ancestors))
	}
	if _, ok := ancestors["d"]; ok {
		t.Errorf("ancestor d at generation 3 should be outside maxGen=2")
	}
}

// TestAncestorsOf_ClosestGenerationWins tests that a member reachable at two
// depths keeps the smaller generation.
func TestAncestorsOf_ClosestGenerationWins(t *testing.T) {
	// x is both a parent and (via y) a grandparent of a.
	snap := testSnapshot(
		[]string{"a", "x", "y"},
		[]edge{
			{parent: "x", child: "a"},
			{parent: "y", child: "a"},
			{parent: "x", child: "y"},
		},
		nil,
	)
	eng := New(snap)

	ancestors, err := eng.AncestorsOf("a", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ancestors["x"] != 1 {
		t.Errorf("expected x at generation 1 (closest path), got %d", ancestors["x"])
	}
}

// TestAncestorsOf_CycleBounded tests that cyclic parent data terminates.
func TestAncestorsOf_CycleBounded(t *testing.T) {
	snap := testSnapshot(
		[]string{"a", "b"},
		[]edge{
			{parent: "b", child: "a"},
			{parent: "a", child: "b"}, // malformed: a is its own grandparent
		},
		nil,
	)
	eng := New(snap)

	ancestors, err := eng.AncestorsOf("a", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// b at generation 1; the cycle back to a is never recorded.
	if len(ancestors) != 1 || ancestors["b"] != 1 {
		t.Errorf("expected only b at generation 1, got %v", ancestors)
	}
}

// TestAncestorsOf_UnknownMember tests the fail-fast on caller misuse.
func TestAncestorsOf_UnknownMember(t *testing.T) {
	eng := New(threeGenerations())

	_, err := eng.AncestorsOf("nobody", 4)
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

// TestDescendantsOf_Mirror tests the downward walk.
func TestDescendantsOf_Mirror(t *testing.T) {
	eng := New(threeGenerations())

	descendants, err := eng.DescendantsOf("p1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"c1": 1, "c2": 1, "g1": 2, "g2": 2}
	for id, gen := range want {
		if descendants[id] != gen {
			t.Errorf("descendant %s: expected generation %d, got %d", id, gen, descendants[id])
		}
	}
	if len(descendants) != len(want) {
		t.Errorf("expected %d descendants, got %d", len(want), len(descendants))
	}
}

// TestAncestorsOf_DefaultBound tests that a non-positive maxGen falls back
// to the default.
func TestAncestorsOf_DefaultBound(t *testing.T) {
	snap := testSnapshot(
		[]string{"a", "b", "c", "d", "e", "f"},
		[]edge{
			{parent: "b", child: "a"},
			{parent: "c", child: "b"},
			{parent: "d", child: "c"},
			{parent: "e", child: "d"},
			{parent: "f", child: "e"},
		},
		nil,
	)
	eng := New(snap)

	ancestors, err := eng.AncestorsOf("a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ancestors) != DefaultMaxGenerations {
		t.Errorf("expected %d ancestors with default bound, got %d", DefaultMaxGenerations, len(ancestors))
	}
}
