package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/lineagekit/lineage/internal/config"
	"github.com/lineagekit/lineage/internal/engine"
	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	store  storage.TreeStore
	config *config.Config
	cache  *engine.SnapshotCache
	hub    *WebSocketHub // Optional hub for change notifications
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(store storage.TreeStore, cfg *config.Config, cache *engine.SnapshotCache) *APIHandlers {
	return &APIHandlers{
		store:  store,
		config: cfg,
		cache:  cache,
	}
}

// SetHub attaches a websocket hub that receives change events.
func (h *APIHandlers) SetHub(hub *WebSocketHub) {
	h.hub = hub
}

// notify broadcasts a change event and drops the cached snapshot for the
// tree so the next inference request sees the mutation.
func (h *APIHandlers) notify(eventType, treeID, id string) {
	h.cache.Invalidate(treeID)
	if h.hub != nil {
		h.hub.Broadcast(ChangeEvent{Type: eventType, TreeID: treeID, ID: id})
	}
}

// CreateTreeRequest represents the request body for creating a tree.
type CreateTreeRequest struct {
	Name string `json:"name"`
}

// ListTrees handles GET /api/trees.
func (h *APIHandlers) ListTrees(w http.ResponseWriter, r *http.Request) {
	trees, err := h.store.ListTrees(r.Context())
	if err != nil {
		respondStoreError(w, "failed to list trees", err)
		return
	}
	respondJSON(w, http.StatusOK, trees)
}

// CreateTree handles POST /api/trees.
func (h *APIHandlers) CreateTree(w http.ResponseWriter, r *http.Request) {
	var req CreateTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	tree := &types.Tree{
		ID:   generateID("tree"),
		Name: req.Name,
	}
	if err := h.store.CreateTree(r.Context(), tree); err != nil {
		respondStoreError(w, "failed to create tree", err)
		return
	}

	h.notify("tree.created", tree.ID, tree.ID)
	respondJSON(w, http.StatusCreated, tree)
}

// GetTree handles GET /api/trees/{id}.
func (h *APIHandlers) GetTree(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	tree, err := h.store.GetTree(r.Context(), id)
	if err != nil {
		respondStoreError(w, "failed to get tree", err)
		return
	}
	respondJSON(w, http.StatusOK, tree)
}

// DeleteTree handles DELETE /api/trees/{id}.
func (h *APIHandlers) DeleteTree(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	if err := h.store.DeleteTree(r.Context(), id); err != nil {
		respondStoreError(w, "failed to delete tree", err)
		return
	}

	h.notify("tree.deleted", id, id)
	w.WriteHeader(http.StatusNoContent)
}

// CreateMemberRequest represents the request body for creating a member.
type CreateMemberRequest struct {
	Name string `json:"name"`
}

// ListMembers handles GET /api/trees/{id}/members.
func (h *APIHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	// Verify the tree exists so an unknown tree is a 404, not an empty list.
	if _, err := h.store.GetTree(r.Context(), treeID); err != nil {
		respondStoreError(w, "failed to get tree", err)
		return
	}

	members, err := h.store.ListMembers(r.Context(), treeID)
	if err != nil {
		respondStoreError(w, "failed to list members", err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// CreateMember handles POST /api/trees/{id}/members.
func (h *APIHandlers) CreateMember(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	member := &types.Member{
		ID:     generateID("mem"),
		TreeID: treeID,
		Name:   req.Name,
	}
	if err := h.store.AddMember(r.Context(), member); err != nil {
		respondStoreError(w, "failed to create member", err)
		return
	}

	h.notify("member.created", treeID, member.ID)
	respondJSON(w, http.StatusCreated, member)
}

// GetMember handles GET /api/members/{id}.
func (h *APIHandlers) GetMember(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	member, err := h.store.GetMember(r.Context(), id)
	if err != nil {
		respondStoreError(w, "failed to get member", err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// DeleteMember handles DELETE /api/members/{id}.
func (h *APIHandlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	// The tree ID is needed for cache invalidation after the row is gone.
	member, err := h.store.GetMember(r.Context(), id)
	if err != nil {
		respondStoreError(w, "failed to get member", err)
		return
	}

	if err := h.store.DeleteMember(r.Context(), id); err != nil {
		respondStoreError(w, "failed to delete member", err)
		return
	}

	h.notify("member.deleted", member.TreeID, id)
	w.WriteHeader(http.StatusNoContent)
}

// CreateEdgeRequest represents the request body for creating a parent-child edge.
type CreateEdgeRequest struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Kind     string `json:"kind"`
}

// ListEdges handles GET /api/trees/{id}/edges.
func (h *APIHandlers) ListEdges(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	if _, err := h.store.GetTree(r.Context(), treeID); err != nil {
		respondStoreError(w, "failed to get tree", err)
		return
	}

	edges, err := h.store.ListParentChildEdges(r.Context(), treeID)
	if err != nil {
		respondStoreError(w, "failed to list edges", err)
		return
	}
	respondJSON(w, http.StatusOK, edges)
}

// CreateEdge handles POST /api/trees/{id}/edges.
func (h *APIHandlers) CreateEdge(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Kind == "" {
		req.Kind = string(types.ParentChildBiological)
	}

	edge := &types.ParentChildEdge{
		ID:       generateID("edge"),
		TreeID:   treeID,
		ParentID: req.ParentID,
		ChildID:  req.ChildID,
		Kind:     types.ParentChildKind(req.Kind),
	}
	if err := h.store.AddParentChildEdge(r.Context(), edge); err != nil {
		respondStoreError(w, "failed to create edge", err)
		return
	}

	h.notify("edge.created", treeID, edge.ID)
	respondJSON(w, http.StatusCreated, edge)
}

// CreateMarriageRequest represents the request body for creating a marriage.
type CreateMarriageRequest struct {
	Spouse1ID string `json:"spouse1_id"`
	Spouse2ID string `json:"spouse2_id"`
	Status    string `json:"status"`
}

// ListMarriages handles GET /api/trees/{id}/marriages.
func (h *APIHandlers) ListMarriages(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	if _, err := h.store.GetTree(r.Context(), treeID); err != nil {
		respondStoreError(w, "failed to get tree", err)
		return
	}

	marriages, err := h.store.ListMarriages(r.Context(), treeID)
	if err != nil {
		respondStoreError(w, "failed to list marriages", err)
		return
	}
	respondJSON(w, http.StatusOK, marriages)
}

// CreateMarriage handles POST /api/trees/{id}/marriages.
func (h *APIHandlers) CreateMarriage(w http.ResponseWriter, r *http.Request) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return
	}

	var req CreateMarriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Status == "" {
		req.Status = string(types.MarriageMarried)
	}

	marriage := &types.Marriage{
		ID:        generateID("mar"),
		TreeID:    treeID,
		Spouse1ID: req.Spouse1ID,
		Spouse2ID: req.Spouse2ID,
		Status:    types.MarriageStatus(req.Status),
	}
	if err := h.store.AddMarriage(r.Context(), marriage); err != nil {
		respondStoreError(w, "failed to create marriage", err)
		return
	}

	h.notify("marriage.created", treeID, marriage.ID)
	respondJSON(w, http.StatusCreated, marriage)
}

// OwnerConfigRequest represents the request body for owner config updates.
type OwnerConfigRequest struct {
	OwnerName string `json:"owner_name"`
}

// OwnerConfigResponse represents the response format for GET /api/config/owner.
type OwnerConfigResponse struct {
	OwnerName string `json:"owner_name"`
}

// GetOwnerConfig handles GET /api/config/owner - retrieve owner configuration.
func (h *APIHandlers) GetOwnerConfig(w http.ResponseWriter, r *http.Request) {
	// Load fresh from the settings store so concurrent updates are visible;
	// fall back to the configured value when nothing has been persisted.
	ownerName, err := h.store.GetSetting(r.Context(), "owner_name")
	if errors.Is(err, storage.ErrNotFound) {
		ownerName = h.config.Owner.OwnerName
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load owner config", err)
		return
	}

	respondJSON(w, http.StatusOK, OwnerConfigResponse{OwnerName: ownerName})
}

// PostOwnerConfig handles POST /api/config/owner - update owner configuration.
func (h *APIHandlers) PostOwnerConfig(w http.ResponseWriter, r *http.Request) {
	var req OwnerConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	h.config.Owner.OwnerName = req.OwnerName

	if err := h.config.SaveConfig(r.Context(), h.store); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save config", err)
		return
	}

	respondJSON(w, http.StatusOK, OwnerConfigResponse{OwnerName: h.config.Owner.OwnerName})
}

// Helper functions

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

// respondStoreError maps storage and engine sentinel errors onto HTTP status
// codes, defaulting to 500.
func respondStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, engine.ErrMemberNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

// generateID generates a unique ID in the format prefix:uuid8.
func generateID(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, uuid.New().String()[:8])
}
