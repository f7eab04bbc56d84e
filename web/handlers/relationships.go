package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/lineagekit/lineage/internal/engine"
)

// maxGenFor resolves the generation bound for a request, falling back to the
// configured default.
func (h *APIHandlers) maxGenFor(r *http.Request) int {
	return parseInt(r.URL.Query().Get("max_generations"), h.config.Engine.MaxGenerations)
}

// treeEngine resolves the {id} path parameter into an Engine, writing the
// error response itself when the tree cannot be loaded.
func (h *APIHandlers) treeEngine(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	treeID := extractID(r, "id")
	if treeID == "" {
		respondError(w, http.StatusBadRequest, "tree ID is required", nil)
		return nil, false
	}
	snap, err := h.cache.Get(r.Context(), treeID)
	if err != nil {
		respondStoreError(w, "failed to load tree", err)
		return nil, false
	}
	return engine.New(snap), true
}

// GetRelationship handles GET /api/trees/{id}/relationship?from=X&to=Y.
// It classifies the relationship between two members of the tree.
func (h *APIHandlers) GetRelationship(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respondError(w, http.StatusBadRequest, "from and to query parameters are required", nil)
		return
	}

	rel, err := eng.Classify(from, to, h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to classify relationship", err)
		return
	}

	respondJSON(w, http.StatusOK, RelationshipResponse{
		Related:      rel != nil,
		Relationship: rel,
	})
}

// GetAncestors handles GET /api/trees/{id}/members/{memberID}/ancestors.
func (h *APIHandlers) GetAncestors(w http.ResponseWriter, r *http.Request) {
	h.respondGenerations(w, r, func(eng *engine.Engine, memberID string, maxGen int) (engine.GenerationMap, error) {
		return eng.AncestorsOf(memberID, maxGen)
	})
}

// GetDescendants handles GET /api/trees/{id}/members/{memberID}/descendants.
func (h *APIHandlers) GetDescendants(w http.ResponseWriter, r *http.Request) {
	h.respondGenerations(w, r, func(eng *engine.Engine, memberID string, maxGen int) (engine.GenerationMap, error) {
		return eng.DescendantsOf(memberID, maxGen)
	})
}

func (h *APIHandlers) respondGenerations(w http.ResponseWriter, r *http.Request,
	walk func(*engine.Engine, string, int) (engine.GenerationMap, error)) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}
	memberID := extractID(r, "memberID")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	gens, err := walk(eng, memberID, h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to walk generations", err)
		return
	}

	entries := make([]GenerationEntry, 0, len(gens))
	for id, gen := range gens {
		entries = append(entries, GenerationEntry{MemberID: id, Generation: gen})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Generation != entries[j].Generation {
			return entries[i].Generation < entries[j].Generation
		}
		return entries[i].MemberID < entries[j].MemberID
	})

	respondJSON(w, http.StatusOK, GenerationsResponse{MemberID: memberID, Entries: entries})
}

// GetSiblings handles GET /api/trees/{id}/members/{memberID}/siblings.
func (h *APIHandlers) GetSiblings(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}
	memberID := extractID(r, "memberID")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	siblings, err := eng.SiblingsOf(memberID)
	if err != nil {
		respondStoreError(w, "failed to find siblings", err)
		return
	}

	respondJSON(w, http.StatusOK, SiblingsResponse{MemberID: memberID, Siblings: siblings})
}

// GetMemberRelationships handles GET /api/trees/{id}/members/{memberID}/relationships.
// It classifies the member against every other member of the tree.
func (h *APIHandlers) GetMemberRelationships(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}
	memberID := extractID(r, "memberID")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	rels, err := eng.RelationshipsFor(r.Context(), memberID, h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to list relationships", err)
		return
	}

	respondJSON(w, http.StatusOK, RelationshipsResponse{MemberID: memberID, Relationships: rels})
}

// GetCousins handles GET /api/trees/{id}/cousins. It scans every pair in the
// tree and returns the cousin pairs found.
func (h *APIHandlers) GetCousins(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}

	pairs, err := eng.FindAllCousins(r.Context(), h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to scan for cousins", err)
		return
	}
	respondJSON(w, http.StatusOK, pairs)
}

// GetInLaws handles GET /api/trees/{id}/inlaws.
func (h *APIHandlers) GetInLaws(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}

	rels, err := eng.FindAllInLaws(r.Context(), h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to scan for in-laws", err)
		return
	}
	respondJSON(w, http.StatusOK, rels)
}

// GetSummary handles GET /api/trees/{id}/summary. It aggregates relationship
// counts across every pair in the tree.
func (h *APIHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}

	summary, err := eng.RelationshipSummary(r.Context(), h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to build summary", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetSuggestions handles GET /api/trees/{id}/members/{memberID}/suggestions.
// The optional "known" query parameter is a comma-separated list of member
// IDs whose relationships are already recorded and should be excluded.
func (h *APIHandlers) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	eng, ok := h.treeEngine(w, r)
	if !ok {
		return
	}
	memberID := extractID(r, "memberID")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member ID is required", nil)
		return
	}

	var known []string
	if raw := r.URL.Query().Get("known"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				known = append(known, id)
			}
		}
	}

	suggestions, err := eng.SuggestRelationships(r.Context(), memberID, known, h.maxGenFor(r))
	if err != nil {
		respondStoreError(w, "failed to suggest relationships", err)
		return
	}

	respondJSON(w, http.StatusOK, RelationshipsResponse{MemberID: memberID, Relationships: suggestions})
}
