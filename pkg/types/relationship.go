package types

// RelationType is the closed set of kinship classifications the inference
// engine can produce. It is a tagged type rather than free-form strings so
// callers can switch exhaustively; variant-specific payloads live on
// InferredRelationship (Cousin, InLaw).
type RelationType string

const (
	RelationSpouse           RelationType = "spouse"
	RelationParent           RelationType = "parent"
	RelationChild            RelationType = "child"
	RelationSibling          RelationType = "sibling"
	RelationHalfSibling      RelationType = "half_sibling"
	RelationStepSibling      RelationType = "step_sibling"
	RelationGrandparent      RelationType = "grandparent"
	RelationGreatGrandparent RelationType = "great_grandparent"
	RelationGrandchild       RelationType = "grandchild"
	RelationGreatGrandchild  RelationType = "great_grandchild"
	RelationUncleAunt        RelationType = "uncle_aunt"
	RelationNephewNiece      RelationType = "nephew_niece"
	RelationCousin           RelationType = "cousin"
	RelationParentInLaw      RelationType = "parent_in_law"
	RelationChildInLaw       RelationType = "child_in_law"
	RelationSiblingInLaw     RelationType = "sibling_in_law"
	RelationGrandparentInLaw RelationType = "grandparent_in_law"
)

// IsCousin reports whether the type is the cousin classification.
func (t RelationType) IsCousin() bool { return t == RelationCousin }

// IsInLawType reports whether the type is one of the in-law classifications.
func (t RelationType) IsInLawType() bool {
	switch t {
	case RelationParentInLaw, RelationChildInLaw, RelationSiblingInLaw, RelationGrandparentInLaw:
		return true
	}
	return false
}

// SiblingKind classifies a sibling pair by shared parentage.
type SiblingKind string

const (
	// SiblingFull means the pair shares two or more parents.
	SiblingFull SiblingKind = "full"

	// SiblingHalf means the pair shares exactly one parent.
	SiblingHalf SiblingKind = "half"

	// SiblingStep means the pair shares no parent but is linked through a
	// marriage between their parents.
	SiblingStep SiblingKind = "step"
)

// SiblingRelationship describes one sibling of a member.
type SiblingRelationship struct {
	SiblingID string `json:"sibling_id"`

	Kind SiblingKind `json:"kind"`

	// SharedParentIDs lists the parents the pair has in common, sorted.
	// Empty for step-siblings.
	SharedParentIDs []string `json:"shared_parent_ids,omitempty"`
}

// CousinDetail carries the cousin-specific payload of an inferred
// relationship: degree arithmetic and the ancestor that established it.
type CousinDetail struct {
	// Degree is the cousin degree (1 = first cousin). A degree of 0 arises
	// when the closest common ancestor is a direct parent of one side, e.g.
	// a great-uncle pair that fell through to the cousin rule.
	Degree int `json:"degree"`

	// Removed is the generational offset between the two sides.
	Removed int `json:"removed"`

	// CommonAncestorID is the shared ancestor minimizing combined
	// generation distance.
	CommonAncestorID string `json:"common_ancestor_id"`
}

// InLawDetail carries the in-law-specific payload: the member whose marriage
// created the affinal link.
type InLawDetail struct {
	ViaMemberID string `json:"via_member_id"`
}

// InferredRelationship is the classification of an ordered member pair.
// Exactly one is produced per pair, or none; the engine never stores these.
type InferredRelationship struct {
	FromID string       `json:"from_id"`
	ToID   string       `json:"to_id"`
	Type   RelationType `json:"type"`

	// Label is the human-readable form, e.g. "First Cousin Once Removed".
	Label string `json:"label"`

	IsBloodRelative bool `json:"is_blood_relative"`
	IsInLaw         bool `json:"is_in_law"`

	// GenerationalDistance is signed: positive means To sits in an older
	// generation than From, negative means younger, zero means the same.
	GenerationalDistance int `json:"generational_distance"`

	// DegreeOfSeparation counts the edge-hops establishing the
	// relationship; always >= 1.
	DegreeOfSeparation int `json:"degree_of_separation"`

	// Confidence is 1.0 for directly-computed types and 0.95 for cousins,
	// where "closest common ancestor" is a heuristic over a possibly
	// incomplete tree.
	Confidence float64 `json:"confidence"`

	// PathDescription summarizes how the relationship was established.
	PathDescription string `json:"path_description"`

	// Cousin is set only when Type is RelationCousin.
	Cousin *CousinDetail `json:"cousin,omitempty"`

	// InLaw is set only for the in-law types.
	InLaw *InLawDetail `json:"in_law,omitempty"`
}

// RelationshipSummary is the tree-wide tally produced by the aggregator.
type RelationshipSummary struct {
	TreeID             string               `json:"tree_id"`
	TotalMembers       int                  `json:"total_members"`
	CountsByType       map[RelationType]int `json:"counts_by_type"`
	BloodRelativeCount int                  `json:"blood_relative_count"`
	InLawCount         int                  `json:"in_law_count"`
}
