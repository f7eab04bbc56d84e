// Package postgres implements storage.TreeStore on PostgreSQL for shared
// deployments. All database calls go through a circuit breaker so a degraded
// server fails fast instead of queueing up slow queries.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// TreeStore implements storage.TreeStore using PostgreSQL.
type TreeStore struct {
	db      *sql.DB
	breaker *breaker
}

// NewTreeStore connects to PostgreSQL at dsn, verifies the connection and
// creates the schema.
func NewTreeStore(dsn string, breakerCfg BreakerConfig) (*TreeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return newTreeStoreWithDB(db, breakerCfg), nil
}

// newTreeStoreWithDB wraps an already-open connection. Tests use it to run
// the store against a stub driver without a live server.
func newTreeStoreWithDB(db *sql.DB, breakerCfg BreakerConfig) *TreeStore {
	return &TreeStore{db: db, breaker: newBreaker(breakerCfg)}
}

// Close releases the database connections.
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

	return s.breaker.run(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO trees (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			tree.ID, tree.Name, tree.CreatedAt, tree.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create tree: %w", err)
		}
		return nil
	})
}

// GetTree retrieves a tree by ID.
func (s *TreeStore) GetTree(ctx context.Context, id string) (*types.Tree, error) {
	var tree types.Tree
	err := s.breaker.run(ctx, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, name, created_at, updated_at FROM trees WHERE id = $1`, id).
			Scan(&tree.ID, &tree.Name, &tree.CreatedAt, &tree.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tree %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get tree: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tree, nil
}

// ListTrees retrieves all trees, oldest first.
func (s *TreeStore) ListTrees(ctx context.Context) ([]types.Tree, error) {
	var trees []types.Tree
	err := s.breaker.run(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, name, created_at, updated_at FROM trees ORDER BY created_at, id`)
		if err != nil {
			return fmt.Errorf("failed to list trees: %w", err)
		}
		defer rows.Close()

		trees = make([]types.Tree, 0)
		for rows.Next() {
			var tree types.Tree
			if err := rows.Scan(&tree.ID, &tree.Name, &tree.CreatedAt, &tree.UpdatedAt); err != nil {
				return fmt.Errorf("failed to scan tree: %w", err)
			}
			trees = append(trees, tree)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return trees, nil
}

// DeleteTree removes a tree; members, edges and marriages cascade.
func (s *TreeStore) DeleteTree(ctx context.Context, id string) error {
	return s.breaker.run(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM trees WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tree: %w", err)
		}
		return requireAffected(res, "tree", id)
	})
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

	return s.breaker.run(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO members (id, tree_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			member.ID, member.TreeID, member.Name, member.CreatedAt, member.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
}

// GetMember retrieves a member by ID.
func (s *TreeStore) GetMember(ctx context.Context, id string) (*types.Member, error) {
	var m types.Member
	err := s.breaker.run(ctx, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, tree_id, name, created_at, updated_at FROM members WHERE id = $1`, id).
			Scan(&m.ID, &m.TreeID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("member %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers retrieves all members of a tree sorted by ID.
func (s *TreeStore) ListMembers(ctx context.Context, treeID string) ([]types.Member, error) {
	var members []types.Member
	err := s.breaker.run(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, tree_id, name, created_at, updated_at FROM members WHERE tree_id = $1 ORDER BY id`,
			treeID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		defer rows.Close()

		members = make([]types.Member, 0)
		for rows.Next() {
			var m types.Member
			if err := rows.Scan(&m.ID, &m.TreeID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
				return fmt.Errorf("failed to scan member: %w", err)
			}
			members = append(members, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteMember removes a member; edges and marriages cascade.
func (s *TreeStore) DeleteMember(ctx context.Context, id string) error {
	return s.breaker.run(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return requireAffected(res, "member", id)
	})
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

	return s.breaker.run(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO parent_child_edges (id, tree_id, parent_id, child_id, kind, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			edge.ID, edge.TreeID, edge.ParentID, edge.ChildID, string(edge.Kind), edge.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to add parent-child edge: %w", err)
		}
		return nil
	})
}

// ListParentChildEdges retrieves all parent-child edges of a tree.
func (s *TreeStore) ListParentChildEdges(ctx context.Context, treeID string) ([]types.ParentChildEdge, error) {
	var edges []types.ParentChildEdge
	err := s.breaker.run(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, tree_id, parent_id, child_id, kind, created_at
			 FROM parent_child_edges WHERE tree_id = $1 ORDER BY id`, treeID)
		if err != nil {
			return fmt.Errorf("failed to list edges: %w", err)
		}
		defer rows.Close()

		edges = make([]types.ParentChildEdge, 0)
		for rows.Next() {
			var e types.ParentChildEdge
			var kind string
			if err := rows.Scan(&e.ID, &e.TreeID, &e.ParentID, &e.ChildID, &kind, &e.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan edge: %w", err)
			}
			e.Kind = types.ParentChildKind(kind)
			edges = append(edges, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
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

	return s.breaker.run(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO marriages (id, tree_id, spouse1_id, spouse2_id, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			marriage.ID, marriage.TreeID, marriage.Spouse1ID, marriage.Spouse2ID,
			string(marriage.Status), marriage.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to add marriage: %w", err)
		}
		return nil
	})
}

// ListMarriages retrieves all marriages of a tree.
func (s *TreeStore) ListMarriages(ctx context.Context, treeID string) ([]types.Marriage, error) {
	var marriages []types.Marriage
	err := s.breaker.run(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, tree_id, spouse1_id, spouse2_id, status, created_at
			 FROM marriages WHERE tree_id = $1 ORDER BY id`, treeID)
		if err != nil {
			return fmt.Errorf("failed to list marriages: %w", err)
		}
		defer rows.Close()

		marriages = make([]types.Marriage, 0)
		for rows.Next() {
			var m types.Marriage
			var status string
			if err := rows.Scan(&m.ID, &m.TreeID, &m.Spouse1ID, &m.Spouse2ID, &status, &m.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan marriage: %w", err)
			}
			m.Status = types.MarriageStatus(status)
			marriages = append(marriages, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return marriages, nil
}

// LoadSnapshot reads the full tree in three queries plus the tree row. The
// engine traverses entirely in memory afterwards; nothing here is fetched
// per hop.
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

// GetSetting retrieves a persisted setting value by key.
func (s *TreeStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.breaker.run(ctx, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("setting %s: %w", key, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get setting: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting writes a key-value pair to the settings table, updating the
// value if the key is already stored.
func (s *TreeStore) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key is required", storage.ErrInvalidInput)
	}
	return s.breaker.run(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()`,
			key, value)
		if err != nil {
			return fmt.Errorf("failed to set setting: %w", err)
		}
		return nil
	})
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
