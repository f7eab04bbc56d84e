package handlers

import (
	"github.com/lineagekit/lineage/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RelationshipResponse is the response format for the pairwise relationship
// endpoint. Related is false when the classifier finds no relationship within
// the generation bound; Relationship is null in that case.
type RelationshipResponse struct {
	Related      bool                        `json:"related"`
	Relationship *types.InferredRelationship `json:"relationship"`
}

// GenerationEntry is one member of an ancestor or descendant listing.
type GenerationEntry struct {
	MemberID   string `json:"member_id"`
	Generation int    `json:"generation"`
}

// GenerationsResponse is the response format for the ancestors and
// descendants endpoints. Entries are sorted by generation, then member ID.
type GenerationsResponse struct {
	MemberID string            `json:"member_id"`
	Entries  []GenerationEntry `json:"entries"`
}

// SiblingsResponse is the response format for the siblings endpoint.
type SiblingsResponse struct {
	MemberID string                       `json:"member_id"`
	Siblings []types.SiblingRelationship `json:"siblings"`
}

// RelationshipsResponse is the response format for the per-member
// relationship listing and the suggestions endpoint.
type RelationshipsResponse struct {
	MemberID      string                       `json:"member_id"`
	Relationships []types.InferredRelationship `json:"relationships"`
}

// ImportStartRequest is the request format for POST /api/import.
type ImportStartRequest struct {
	Path string `json:"path"`
}

// ImportStartResponse is the response format for POST /api/import.
type ImportStartResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ChangeEvent is broadcast to websocket clients when tree data changes.
// Consumers invalidate or refresh their local views based on TreeID.
type ChangeEvent struct {
	Type   string `json:"type"` // e.g. "member.created", "tree.deleted"
	TreeID string `json:"tree_id"`
	ID     string `json:"id,omitempty"`
}
