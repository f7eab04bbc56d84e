package engine

import (
	"fmt"
	"sort"

	"github.com/lineagekit/lineage/pkg/types"
)

// SiblingsOf computes the siblings of memberID and classifies each pair by
// exact shared-parent count: two or more shared parents is a full sibling,
// exactly one is a half sibling, and zero shared parents with the two
// parent sets linked by a marriage is a step sibling.
//
// The intersection size is the sole determinant of full vs half; no
// heuristics are applied. Results are sorted by sibling ID.
func (e *Engine) SiblingsOf(memberID string) ([]types.SiblingRelationship, error) {
	if !e.snap.HasMember(memberID) {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	parents := e.snap.DirectParents(memberID)
	parentSet := make(map[string]bool, len(parents))
	for _, p := range parents {
		parentSet[p] = true
	}

	// Candidates: children of my parents (full/half) plus children of my
	// parents' spouses (step). Scanning candidates instead of every member
	// keeps this linear in family size, not tree size.
	candidates := make(map[string]bool)
	for _, p := range parents {
		for _, c := range e.snap.DirectChildren(p) {
			if c != memberID {
				candidates[c] = true
			}
		}
		for _, sp := range e.snap.Spouses(p) {
			for _, c := range e.snap.DirectChildren(sp) {
				if c != memberID {
					candidates[c] = true
				}
			}
		}
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var siblings []types.SiblingRelationship
	for _, id := range ids {
		var shared []string
		for _, p := range e.snap.DirectParents(id) {
			if parentSet[p] {
				shared = append(shared, p)
			}
		}
		sort.Strings(shared)

		switch {
		case len(shared) >= 2:
			siblings = append(siblings, types.SiblingRelationship{
				SiblingID:       id,
				Kind:            types.SiblingFull,
				SharedParentIDs: shared,
			})
		case len(shared) == 1:
			siblings = append(siblings, types.SiblingRelationship{
				SiblingID:       id,
				Kind:            types.SiblingHalf,
				SharedParentIDs: shared,
			})
		case e.parentsLinkedByMarriage(memberID, id):
			siblings = append(siblings, types.SiblingRelationship{
				SiblingID: id,
				Kind:      types.SiblingStep,
			})
		}
	}

	return siblings, nil
}

// parentsLinkedByMarriage reports whether some parent of a is married to
// some parent of b, i.e. the two were raised in a shared household without
// consanguinity.
func (e *Engine) parentsLinkedByMarriage(a, b string) bool {
	for _, pa := range e.snap.DirectParents(a) {
		for _, pb := range e.snap.DirectParents(b) {
			if e.snap.IsSpouse(pa, pb) {
				return true
			}
		}
	}
	return false
}
