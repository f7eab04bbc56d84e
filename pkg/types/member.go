package types

import "time"

// ParentChildKind describes how a parent-child edge was formed.
// The ancestry traversal treats all kinds identically; only relationship
// classification downstream distinguishes blood from non-blood links.
type ParentChildKind string

const (
	ParentChildBiological ParentChildKind = "biological"
	ParentChildAdopted    ParentChildKind = "adopted"
	ParentChildStep       ParentChildKind = "step"
	ParentChildFoster     ParentChildKind = "foster"
)

// Valid reports whether the kind is one of the recognized values.
func (k ParentChildKind) Valid() bool {
	switch k {
	case ParentChildBiological, ParentChildAdopted, ParentChildStep, ParentChildFoster:
		return true
	}
	return false
}

// MarriageStatus describes the current state of a marriage edge.
// A member may carry multiple marriages over time; the engine does not
// deduplicate or sequence them.
type MarriageStatus string

const (
	MarriageMarried   MarriageStatus = "married"
	MarriageDivorced  MarriageStatus = "divorced"
	MarriageWidowed   MarriageStatus = "widowed"
	MarriageSeparated MarriageStatus = "separated"
)

// Valid reports whether the status is one of the recognized values.
func (s MarriageStatus) Valid() bool {
	switch s {
	case MarriageMarried, MarriageDivorced, MarriageWidowed, MarriageSeparated:
		return true
	}
	return false
}

// Tree represents a single family tree. All members, parent-child edges and
// marriages belong to exactly one tree.
type Tree struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member represents a person in a family tree. The inference engine inspects
// nothing beyond identity; the display fields exist for the API surface.
type Member struct {
	ID        string    `json:"id"`
	TreeID    string    `json:"tree_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParentChildEdge links a parent member to a child member within one tree.
// Multiple parents per child are allowed; the store does not enforce a cap.
type ParentChildEdge struct {
	ID        string          `json:"id"`
	TreeID    string          `json:"tree_id"`
	ParentID  string          `json:"parent_id"`
	ChildID   string          `json:"child_id"`
	Kind      ParentChildKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// Marriage links two members within one tree. Spouse ordering carries no
// meaning; the snapshot indexes both directions.
type Marriage struct {
	ID        string         `json:"id"`
	TreeID    string         `json:"tree_id"`
	Spouse1ID string         `json:"spouse1_id"`
	Spouse2ID string         `json:"spouse2_id"`
	Status    MarriageStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
