package postgres

// Schema defines the PostgreSQL schema for the Lineage tree store.
// All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS trees (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
    id         TEXT PRIMARY KEY,
    tree_id    TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_members_tree ON members(tree_id);

CREATE TABLE IF NOT EXISTS parent_child_edges (
    id         TEXT PRIMARY KEY,
    tree_id    TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
    parent_id  TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    child_id   TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    kind       TEXT NOT NULL CHECK (kind IN ('biological', 'adopted', 'step', 'foster')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (parent_id, child_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_tree ON parent_child_edges(tree_id);
CREATE INDEX IF NOT EXISTS idx_edges_child ON parent_child_edges(child_id);

CREATE TABLE IF NOT EXISTS marriages (
    id         TEXT PRIMARY KEY,
    tree_id    TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
    spouse1_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    spouse2_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    status     TEXT NOT NULL CHECK (status IN ('married', 'divorced', 'widowed', 'separated')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_marriages_tree ON marriages(tree_id);

CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
