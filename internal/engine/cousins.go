package engine

import (
	"fmt"

	"github.com/lineagekit/lineage/pkg/types"
)

// cousinConfidence reflects that "closest common ancestor" is a heuristic
// over a possibly-incomplete tree; every other classification is direct.
const cousinConfidence = 0.95

// cousinFromGenerations builds the cousin classification for a pair whose
// closest common ancestor sits gen1 generations above the first member and
// gen2 above the second.
//
// Equidistant ancestors give a plain degree (gen-1); unequal distances give
// min(gen)-1 with a "removed" offset of the difference. A degree of 0 can
// arise (e.g. a great-uncle pair falling through to this rule) and labels
// as "Zeroth Cousin" with the removed offset.
func cousinFromGenerations(fromID, toID, ancestorID string, gen1, gen2 int) types.InferredRelationship {
	degree := min(gen1, gen2) - 1
	removed := gen1 - gen2
	if removed < 0 {
		removed = -removed
	}

	label := fmt.Sprintf("%s Cousin", ordinal(degree))
	if removed > 0 {
		label = fmt.Sprintf("%s %s Removed", label, removedWord(removed))
	}

	return types.InferredRelationship{
		FromID:               fromID,
		ToID:                 toID,
		Type:                 types.RelationCousin,
		Label:                label,
		IsBloodRelative:      true,
		GenerationalDistance: gen2 - gen1,
		DegreeOfSeparation:   gen1 + gen2,
		Confidence:           cousinConfidence,
		PathDescription: fmt.Sprintf("common ancestor %s (%d and %d generations up)",
			ancestorID, gen1, gen2),
		Cousin: &types.CousinDetail{
			Degree:           degree,
			Removed:          removed,
			CommonAncestorID: ancestorID,
		},
	}
}

// ordinal renders a cousin degree as its conventional English form.
func ordinal(n int) string {
	switch n {
	case 0:
		return "Zeroth"
	case 1:
		return "First"
	case 2:
		return "Second"
	case 3:
		return "Third"
	default:
		return fmt.Sprintf("%dth", n)
	}
}

// removedWord renders the "removed" offset: Once, Twice, then "N Times".
func removedWord(n int) string {
	switch n {
	case 1:
		return "Once"
	case 2:
		return "Twice"
	default:
		return fmt.Sprintf("%d Times", n)
	}
}
