// Package sqlite implements storage.TreeStore on an embedded SQLite
// database. It is the default backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// TreeStore implements storage.TreeStore using SQLite.
type TreeStore struct {
	db *sql.DB
}

// NewTreeStore opens a SQLite database at dsn, configures WAL mode and
// creates the schema.
func NewTreeStore(dsn string) (*TreeStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent
	// load; WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &TreeStore{db: db}, nil
}

// GetSetting retrieves a persisted setting value by key.
func (s *TreeStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting writes a key-value pair to the settings table, updating the
// value if the key is already stored.
func (s *TreeStore) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key is required", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *TreeStore) Close() error {
	return s.db.Close()
}

// CreateTree creates a new family tree.
func (s *TreeStore) CreateTree(ctx context.Context, tree *types.Tree) error {
	if tree.ID == "" || tree.Name == "" {
		return fmt.Errorf("%w: tree id and name are required", storage.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if tree.CreatedAt.IsZero() {
		tree.CreatedAt = now
	}
	tree.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trees (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		tree.ID, tree.Name, tree.CreatedAt, tree.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tree: %w", err)
	}
	return nil
}

// GetTree retrieves a tree by ID.
func (s *TreeStore) GetTree(ctx context.Context, id string) (*types.Tree, error) {
	var tree types.Tree
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM trees WHERE id = ?`, id).
		Scan(&tree.ID, &tree.Name, &tree.CreatedAt, &tree.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tree %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return &tree, nil
}

// ListTrees retrieves all trees, oldest first.
func (s *TreeStore) ListTrees(ctx context.Context) ([]types.Tree, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM trees ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	trees := make([]types.Tree, 0)
	for rows.Next() {
		var tree types.Tree
		if err := rows.Scan(&tree.ID, &tree.Name, &tree.CreatedAt, &tree.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		trees = append(trees, tree)
	}
	return trees, rows.Err()
}

// DeleteTree removes a tree; members, edges and marriages cascade.
func (s *TreeStore) DeleteTree(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	return requireAffected(res, "tree", id)
}

// AddMember adds a member to a tree.
func (s *TreeStore) AddMember(ctx context.Context, member *types.Member) error {
	if member.ID == "" || member.TreeID == "" {
		return fmt.Errorf("%w: member id and tree id are required", storage.ErrInvalidInput)
	}
	if _, err := s.GetTree(ctx, member.TreeID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, tree_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		member.ID, member.TreeID, member.Name, member.CreatedAt, member.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by ID.
func (s *TreeStore) GetMember(ctx context.Context, id string) (*types.Member, error) {
	var m types.Member
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tree_id, name, created_at, updated_at FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.TreeID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// ListMembers retrieves all members of a tree sorted by ID.
func (s *TreeStore) ListMembers(ctx context.Context, treeID string) ([]types.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tree_id, name, created_at, updated_at FROM members WHERE tree_id = ? ORDER BY id`,
		treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]types.Member, 0)
	for rows.Next() {
		var m types.Member
		if err := rows.Scan(&m.ID, &m.TreeID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DeleteMember removes a member; edges and marriages cascade.
func (s *TreeStore) DeleteMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return requireAffected(res, "member", id)
}

// AddParentChildEdge records a parent-child link after validating the kind
// and both endpoints.
func (s *TreeStore) AddParentChildEdge(ctx context.Context, edge *types.ParentChildEdge) error {
	if edge.ID == "" || edge.TreeID == "" {
		return fmt.Errorf("%w: edge id and tree id are required", storage.ErrInvalidInput)
	}
	if !edge.Kind.Valid() {
		return fmt.Errorf("%w: unrecognized edge kind %q", storage.ErrInvalidInput, edge.Kind)
	}
	if edge.ParentID == edge.ChildID {
		return fmt.Errorf("%w: member cannot be its own parent", storage.ErrInvalidInput)
	}
	for _, id := range []string{edge.ParentID, edge.ChildID} {
		if _, err := s.GetMember(ctx, id); err != nil {
			return fmt.Errorf("%w: edge references missing member %s", storage.ErrInvalidInput, id)
		}
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parent_child_edges (id, tree_id, parent_id, child_id, kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		edge.ID, edge.TreeID, edge.ParentID, edge.ChildID, string(edge.Kind), edge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add parent-child edge: %w", err)
	}
	return nil
}

// ListParentChildEdges retrieves all parent-child edges of a tree.
func (s *TreeStore) ListParentChildEdges(ctx context.Context, treeID string) ([]types.ParentChildEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tree_id, parent_id, child_id, kind, created_at
		 FROM parent_child_edges WHERE tree_id = ? ORDER BY id`, treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	edges := make([]types.ParentChildEdge, 0)
	for rows.Next() {
		var e types.ParentChildEdge
		var kind string
		if err := rows.Scan(&e.ID, &e.TreeID, &e.ParentID, &e.ChildID, &kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Kind = types.ParentChildKind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AddMarriage records a marriage after validating the status and both
// endpoints.
func (s *TreeStore) AddMarriage(ctx context.Context, marriage *types.Marriage) error {
	if marriage.ID == "" || marriage.TreeID == "" {
		return fmt.Errorf("%w: marriage id and tree id are required", storage.ErrInvalidInput)
	}
	if !marriage.Status.Valid() {
		return fmt.Errorf("%w: unrecognized marriage status %q", storage.ErrInvalidInput, marriage.Status)
	}
	if marriage.Spouse1ID == marriage.Spouse2ID {
		return fmt.Errorf("%w: member cannot marry itself", storage.ErrInvalidInput)
	}
	for _, id := range []string{marriage.Spouse1ID, marriage.Spouse2ID} {
		if _, err := s.GetMember(ctx, id); err != nil {
			return fmt.Errorf("%w: marriage references missing member %s", storage.ErrInvalidInput, id)
		}
	}
	if marriage.CreatedAt.IsZero() {
		marriage.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO marriages (id, tree_id, spouse1_id, spouse2_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		marriage.ID, marriage.TreeID, marriage.Spouse1ID, marriage.Spouse2ID,
		string(marriage.Status), marriage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add marriage: %w", err)
	}
	return nil
}

// ListMarriages retrieves all marriages of a tree.
func (s *TreeStore) ListMarriages(ctx context.Context, treeID string) ([]types.Marriage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tree_id, spouse1_id, spouse2_id, status, created_at
		 FROM marriages WHERE tree_id = ? ORDER BY id`, treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list marriages: %w", err)
	}
	defer rows.Close()

	marriages := make([]types.Marriage, 0)
	for rows.Next() {
		var m types.Marriage
		var status string
		if err := rows.Scan(&m.ID, &m.TreeID, &m.Spouse1ID, &m.Spouse2ID, &status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan marriage: %w", err)
		}
		m.Status = types.MarriageStatus(status)
		marriages = append(marriages, m)
	}
	return marriages, rows.Err()
}

// LoadSnapshot reads the full tree in three queries. The engine traverses
// entirely in memory afterwards; nothing here is fetched per hop.
func (s *TreeStore) LoadSnapshot(ctx context.Context, treeID string) (*storage.SnapshotData, error) {
	tree, err := s.GetTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	members, err := s.ListMembers(ctx, treeID)
	if err != nil {
		return nil, err
	}
	edges, err := s.ListParentChildEdges(ctx, treeID)
	if err != nil {
		return nil, err
	}
	marriages, err := s.ListMarriages(ctx, treeID)
	if err != nil {
		return nil, err
	}

	return &storage.SnapshotData{
		Tree:      *tree,
		Members:   members,
		Edges:     edges,
		Marriages: marriages,
	}, nil
}

// requireAffected converts a zero-row mutation into ErrNotFound.
func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
