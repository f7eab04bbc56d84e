package engine

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lineagekit/lineage/internal/storage"
)

// SnapshotLoader is the slice of the storage layer the cache needs.
// storage.TreeStore satisfies it.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, treeID string) (*storage.SnapshotData, error)
}

// SnapshotCache keeps recently-loaded tree snapshots so that repeated
// classification requests against the same tree do not reload it from
// storage. Entries are evicted LRU; any mutation of a tree must call
// Invalidate so the next read rebuilds the snapshot.
type SnapshotCache struct {
	store SnapshotLoader
	cache *lru.Cache[string, *Snapshot]
}

// NewSnapshotCache creates a cache holding up to size snapshots.
func NewSnapshotCache(store SnapshotLoader, size int) (*SnapshotCache, error) {
	if size < 1 {
		size = 16
	}
	cache, err := lru.New[string, *Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	return &SnapshotCache{store: store, cache: cache}, nil
}

// Get returns the snapshot for treeID, loading it from storage on a miss.
func (c *SnapshotCache) Get(ctx context.Context, treeID string) (*Snapshot, error) {
	if snap, ok := c.cache.Get(treeID); ok {
		return snap, nil
	}

	data, err := c.store.LoadSnapshot(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for tree %s: %w", treeID, err)
	}

	snap := NewSnapshot(data)
	c.cache.Add(treeID, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot for treeID, if any.
func (c *SnapshotCache) Invalidate(treeID string) {
	c.cache.Remove(treeID)
}

// Len returns the number of cached snapshots.
func (c *SnapshotCache) Len() int {
	return c.cache.Len()
}
