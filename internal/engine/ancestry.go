package engine

import "fmt"

// GenerationMap maps a member ID to its generation distance from the member
// the traversal started at (1 = parent/child, 2 = grandparent/grandchild, ...).
type GenerationMap map[string]int

// AncestorsOf computes all ancestors of memberID reachable within maxGen
// generations, each tagged with the generation at which it was first reached.
//
// The walk is a generation-bounded BFS over parent edges. A member reachable
// at multiple depths keeps the smallest generation (the closest relationship
// wins). Edge kinds are not filtered here; adopted, step and foster edges
// are traversed identically, and blood-vs-not is decided by the classifier.
//
// A parent-child cycle does not loop: already-seen members are never
// re-expanded, and the generation bound stops the frontier regardless.
func (e *Engine) AncestorsOf(memberID string, maxGen int) (GenerationMap, error) {
	return e.walkGenerations(memberID, maxGen, e.snap.DirectParents)
}

// DescendantsOf is the mirror of AncestorsOf, following child edges downward.
func (e *Engine) DescendantsOf(memberID string, maxGen int) (GenerationMap, error) {
	return e.walkGenerations(memberID, maxGen, e.snap.DirectChildren)
}

// walkGenerations performs the bounded BFS shared by ancestor and descendant
// indexing. next yields the frontier expansion for one member (its parents
// or its children).
func (e *Engine) walkGenerations(memberID string, maxGen int, next func(string) []string) (GenerationMap, error) {
	if !e.snap.HasMember(memberID) {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	if maxGen <= 0 {
		maxGen = DefaultMaxGenerations
	}

	result := make(GenerationMap)
	frontier := []string{memberID}

	for gen := 1; gen <= maxGen && len(frontier) > 0; gen++ {
		var nextFrontier []string
		for _, id := range frontier {
			for _, reached := range next(id) {
				if reached == memberID {
					// Cycle back to the start; never record self.
					continue
				}
				if _, seen := result[reached]; seen {
					// First reach is the smallest generation; do not
					// overwrite with a farther path.
					continue
				}
				result[reached] = gen
				nextFrontier = append(nextFrontier, reached)
			}
		}
		frontier = nextFrontier
	}

	return result, nil
}
