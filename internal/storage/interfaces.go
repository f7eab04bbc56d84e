// Package storage provides composable storage interfaces for the Lineage
// system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently. Backends exist for SQLite (embedded, default)
// and PostgreSQL (hosted deployments). The inference engine never touches
// storage directly; it consumes the flat Snapshot produced by LoadSnapshot.
package storage

import (
	"context"

	"github.com/lineagekit/lineage/pkg/types"
)

// TreeStore provides CRUD operations for trees, members, parent-child edges
// and marriages, plus snapshot loading for the inference engine.
type TreeStore interface {
	// CreateTree creates a new family tree.
	CreateTree(ctx context.Context, tree *types.Tree) error

	// GetTree retrieves a tree by ID.
	// Returns ErrNotFound if the tree doesn't exist.
	GetTree(ctx context.Context, id string) (*types.Tree, error)

	// ListTrees retrieves all trees, sorted by creation time ascending.
	ListTrees(ctx context.Context) ([]types.Tree, error)

	// DeleteTree removes a tree and all of its members, edges and marriages.
	// Returns ErrNotFound if the tree doesn't exist.
	DeleteTree(ctx context.Context, id string) error

	// AddMember adds a member to a tree.
	// Returns ErrNotFound if the tree doesn't exist.
	AddMember(ctx context.Context, member *types.Member) error

	// GetMember retrieves a member by ID.
	// Returns ErrNotFound if the member doesn't exist.
	GetMember(ctx context.Context, id string) (*types.Member, error)

	// ListMembers retrieves all members of a tree, sorted by ID so that
	// callers observe a deterministic order.
	ListMembers(ctx context.Context, treeID string) ([]types.Member, error)

	// DeleteMember removes a member and any edges or marriages that
	// reference it. Returns ErrNotFound if the member doesn't exist.
	DeleteMember(ctx context.Context, id string) error

	// AddParentChildEdge records a parent-child link.
	// Returns ErrInvalidInput if the edge kind is unrecognized or either
	// member is missing.
	AddParentChildEdge(ctx context.Context, edge *types.ParentChildEdge) error

	// ListParentChildEdges retrieves all parent-child edges of a tree.
	ListParentChildEdges(ctx context.Context, treeID string) ([]types.ParentChildEdge, error)

	// AddMarriage records a marriage between two members.
	// Returns ErrInvalidInput if the status is unrecognized or either
	// member is missing.
	AddMarriage(ctx context.Context, marriage *types.Marriage) error

	// ListMarriages retrieves all marriages of a tree.
	ListMarriages(ctx context.Context, treeID string) ([]types.Marriage, error)

	// LoadSnapshot reads the full tree in one pass: members, parent-child
	// edges and marriages. This is the engine's sole view of the data;
	// traversal never issues per-hop queries.
	// Returns ErrNotFound if the tree doesn't exist.
	LoadSnapshot(ctx context.Context, treeID string) (*SnapshotData, error)

	SettingsStore

	// Close releases any resources held by the store.
	Close() error
}

// SettingsStore persists small key-value settings (e.g. owner_name) that
// survive restarts. Each backend issues these queries in its own placeholder
// dialect, so callers never hand raw SQL to a connection they did not open.
type SettingsStore interface {
	// GetSetting retrieves a setting value by key.
	// Returns ErrNotFound if the key has never been stored.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting writes a key-value pair with upsert semantics.
	SetSetting(ctx context.Context, key, value string) error
}

// SnapshotData is the flat, read-only view of one tree handed to the
// inference engine.
type SnapshotData struct {
	Tree      types.Tree
	Members   []types.Member
	Edges     []types.ParentChildEdge
	Marriages []types.Marriage
}
