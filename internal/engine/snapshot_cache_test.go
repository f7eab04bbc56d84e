package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// fakeLoader counts snapshot loads per tree.
type fakeLoader struct {
	data  map[string]*storage.SnapshotData
	loads map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		data:  make(map[string]*storage.SnapshotData),
		loads: make(map[string]int),
	}
}

func (f *fakeLoader) LoadSnapshot(_ context.Context, treeID string) (*storage.SnapshotData, error) {
	f.loads[treeID]++
	data, ok := f.data[treeID]
	if !ok {
		return nil, fmt.Errorf("tree %s: %w", treeID, storage.ErrNotFound)
	}
	return data, nil
}

func (f *fakeLoader) addTree(treeID string, memberIDs ...string) {
	data := &storage.SnapshotData{Tree: types.Tree{ID: treeID}}
	for _, id := range memberIDs {
		data.Members = append(data.Members, types.Member{ID: id, TreeID: treeID})
	}
	f.data[treeID] = data
}

// TestSnapshotCache_HitAvoidsReload tests that a second Get is served from
// cache.
func TestSnapshotCache_HitAvoidsReload(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	loader.addTree("tree:a", "m1", "m2")

	cache, err := NewSnapshotCache(loader, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := cache.Get(ctx, "tree:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Get(ctx, "tree:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("expected cached snapshot to be reused")
	}
	if loader.loads["tree:a"] != 1 {
		t.Errorf("expected 1 load, got %d", loader.loads["tree:a"])
	}
}

// TestSnapshotCache_InvalidateForcesReload tests mutation invalidation.
func TestSnapshotCache_InvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	loader.addTree("tree:a", "m1")

	cache, err := NewSnapshotCache(loader, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := cache.Get(ctx, "tree:a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Invalidate("tree:a")
	if _, err := cache.Get(ctx, "tree:a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loader.loads["tree:a"] != 2 {
		t.Errorf("expected reload after invalidation, got %d loads", loader.loads["tree:a"])
	}
}

// TestSnapshotCache_UnknownTree tests error propagation from the loader.
func TestSnapshotCache_UnknownTree(t *testing.T) {
	cache, err := NewSnapshotCache(newFakeLoader(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := cache.Get(context.Background(), "tree:missing"); err == nil {
		t.Fatal("expected error for unknown tree")
	}
}

// TestSnapshotCache_Eviction tests the LRU bound.
func TestSnapshotCache_Eviction(t *testing.T) {
	ctx := context.Background()
	loader := newFakeLoader()
	loader.addTree("tree:a", "m1")
	loader.addTree("tree:b", "m2")
	loader.addTree("tree:c", "m3")

	cache, err := NewSnapshotCache(loader, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"tree:a", "tree:b", "tree:c"} {
		if _, err := cache.Get(ctx, id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if cache.Len() != 2 {
		t.Errorf("expected 2 cached snapshots after eviction, got %d", cache.Len())
	}

	// tree:a was evicted; getting it again reloads.
	if _, err := cache.Get(ctx, "tree:a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loader.loads["tree:a"] != 2 {
		t.Errorf("expected evicted tree to reload, got %d loads", loader.loads["tree:a"])
	}
}
