package engine

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lineagekit/lineage/pkg/types"
)

// suggestionMinConfidence is the floor applied to relationship suggestions
// for a newly-added member.
const suggestionMinConfidence = 0.8

// batchContext carries request-scoped state for tree-wide operations:
// per-member memoization of ancestor/descendant/sibling derivations and the
// explicit processed-pairs set used to deduplicate the pair scan.
//
// The memo maps are filled by precompute before any parallel phase begins
// and are read-only afterward; only the processed set is guarded by a lock.
type batchContext struct {
	maxGen int

	ancestors   map[string]GenerationMap
	descendants map[string]GenerationMap
	siblings    map[string][]types.SiblingRelationship

	mu        sync.Mutex
	processed map[[2]string]bool
}

func newBatchContext(maxGen int) *batchContext {
	if maxGen <= 0 {
		maxGen = DefaultMaxGenerations
	}
	return &batchContext{
		maxGen:      maxGen,
		ancestors:   make(map[string]GenerationMap),
		descendants: make(map[string]GenerationMap),
		siblings:    make(map[string][]types.SiblingRelationship),
		processed:   make(map[[2]string]bool),
	}
}

// markProcessed records the unordered pair and reports whether it had
// already been processed.
func (bc *batchContext) markProcessed(a, b string) bool {
	if b < a {
		a, b = b, a
	}
	key := [2]string{a, b}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.processed[key] {
		return true
	}
	bc.processed[key] = true
	return false
}

// ancestorsMemo returns the ancestor map for id, consulting the batch memo
// when one is in play. Outside a batch it recomputes directly.
func (e *Engine) ancestorsMemo(bc *batchContext, id string, maxGen int) (GenerationMap, error) {
	if bc == nil {
		return e.AncestorsOf(id, maxGen)
	}
	if m, ok := bc.ancestors[id]; ok {
		return m, nil
	}
	m, err := e.AncestorsOf(id, maxGen)
	if err != nil {
		return nil, err
	}
	bc.ancestors[id] = m
	return m, nil
}

func (e *Engine) descendantsMemo(bc *batchContext, id string, maxGen int) (GenerationMap, error) {
	if bc == nil {
		return e.DescendantsOf(id, maxGen)
	}
	if m, ok := bc.descendants[id]; ok {
		return m, nil
	}
	m, err := e.DescendantsOf(id, maxGen)
	if err != nil {
		return nil, err
	}
	bc.descendants[id] = m
	return m, nil
}

func (e *Engine) siblingsMemo(bc *batchContext, id string) ([]types.SiblingRelationship, error) {
	if bc == nil {
		return e.SiblingsOf(id)
	}
	if s, ok := bc.siblings[id]; ok {
		return s, nil
	}
	s, err := e.SiblingsOf(id)
	if err != nil {
		return nil, err
	}
	bc.siblings[id] = s
	return s, nil
}

// precompute fills the batch memo for every member so the parallel pair
// scan only ever reads it. Each traversal runs once per member here instead
// of once per pair.
func (e *Engine) precompute(ctx context.Context, bc *batchContext) error {
	for _, id := range e.snap.MemberIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.ancestorsMemo(bc, id, bc.maxGen); err != nil {
			return err
		}
		if _, err := e.descendantsMemo(bc, id, bc.maxGen); err != nil {
			return err
		}
		if _, err := e.siblingsMemo(bc, id); err != nil {
			return err
		}
	}
	return nil
}

// scanPairs classifies every unordered member pair (a, b) with a < b and
// hands non-nil results to collect, in deterministic pair order.
//
// The pair space is partitioned by first member across a bounded worker
// group; results are gathered per-partition and merged in order so the
// output is independent of scheduling.
func (e *Engine) scanPairs(ctx context.Context, maxGen int, collect func(types.InferredRelationship)) error {
	bc := newBatchContext(maxGen)
	if err := e.precompute(ctx, bc); err != nil {
		return err
	}

	ids := e.snap.MemberIDs()
	results := make([][]types.InferredRelationship, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < len(ids); j++ {
				if bc.markProcessed(ids[i], ids[j]) {
					continue
				}
				rel, err := e.classify(bc, ids[i], ids[j], bc.maxGen)
				if err != nil {
					return err
				}
				if rel != nil {
					results[i] = append(results[i], *rel)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range results {
		for _, rel := range results[i] {
			collect(rel)
		}
	}
	return nil
}

// RelationshipsFor classifies memberID against every other member of the
// tree and returns all matches sorted ascending by degree of separation,
// then label.
func (e *Engine) RelationshipsFor(ctx context.Context, memberID string, maxGen int) ([]types.InferredRelationship, error) {
	if _, err := e.snap.Member(memberID); err != nil {
		return nil, err
	}
	bc := newBatchContext(maxGen)

	rels := make([]types.InferredRelationship, 0)
	for _, id := range e.snap.MemberIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id == memberID {
			continue
		}
		rel, err := e.classify(bc, memberID, id, bc.maxGen)
		if err != nil {
			return nil, err
		}
		if rel != nil {
			rels = append(rels, *rel)
		}
	}

	sort.Slice(rels, func(i, j int) bool {
		if rels[i].DegreeOfSeparation != rels[j].DegreeOfSeparation {
			return rels[i].DegreeOfSeparation < rels[j].DegreeOfSeparation
		}
		if rels[i].Label != rels[j].Label {
			return rels[i].Label < rels[j].Label
		}
		return rels[i].ToID < rels[j].ToID
	})

	return rels, nil
}

// CousinPair is one entry in the tree-wide cousin scan.
type CousinPair struct {
	MemberAID string `json:"member_a_id"`
	MemberBID string `json:"member_b_id"`
	Label     string `json:"label"`

	// CombinedGeneration is the summed generation distance to the common
	// ancestor (the pair's degree of separation).
	CombinedGeneration int `json:"combined_generation"`
}

// FindAllCousins scans every unordered member pair and returns those
// classified as cousins. Pairs already claimed by an earlier cascade rule
// (siblings in particular) never appear here.
func (e *Engine) FindAllCousins(ctx context.Context, maxGen int) ([]CousinPair, error) {
	pairs := make([]CousinPair, 0)
	err := e.scanPairs(ctx, maxGen, func(rel types.InferredRelationship) {
		if rel.Type != types.RelationCousin {
			return
		}
		pairs = append(pairs, CousinPair{
			MemberAID:          rel.FromID,
			MemberBID:          rel.ToID,
			Label:              rel.Label,
			CombinedGeneration: rel.DegreeOfSeparation,
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// FindAllInLaws scans every unordered member pair and returns all in-law
// classifications.
func (e *Engine) FindAllInLaws(ctx context.Context, maxGen int) ([]types.InferredRelationship, error) {
	rels := make([]types.InferredRelationship, 0)
	err := e.scanPairs(ctx, maxGen, func(rel types.InferredRelationship) {
		if rel.Type.IsInLawType() {
			rels = append(rels, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// RelationshipSummary tallies every classified pair in the tree by type,
// counting each unordered pair once.
func (e *Engine) RelationshipSummary(ctx context.Context, maxGen int) (*types.RelationshipSummary, error) {
	summary := &types.RelationshipSummary{
		TreeID:       e.snap.TreeID(),
		TotalMembers: e.snap.MemberCount(),
		CountsByType: make(map[types.RelationType]int),
	}

	err := e.scanPairs(ctx, maxGen, func(rel types.InferredRelationship) {
		summary.CountsByType[rel.Type]++
		if rel.IsBloodRelative {
			summary.BloodRelativeCount++
		}
		if rel.IsInLaw {
			summary.InLawCount++
		}
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SuggestRelationships classifies a newly-added member against every
// existing member the caller has not already linked (knownConnections: the
// declared parents, children and spouses). Matches below the confidence
// floor are dropped; results sort descending by confidence, then by
// closeness.
func (e *Engine) SuggestRelationships(ctx context.Context, newMemberID string, knownConnections []string, maxGen int) ([]types.InferredRelationship, error) {
	if _, err := e.snap.Member(newMemberID); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(knownConnections))
	for _, id := range knownConnections {
		known[id] = true
	}

	bc := newBatchContext(maxGen)

	suggestions := make([]types.InferredRelationship, 0)
	for _, id := range e.snap.MemberIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id == newMemberID || known[id] {
			continue
		}
		rel, err := e.classify(bc, newMemberID, id, bc.maxGen)
		if err != nil {
			return nil, err
		}
		if rel != nil && rel.Confidence >= suggestionMinConfidence {
			suggestions = append(suggestions, *rel)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		if suggestions[i].DegreeOfSeparation != suggestions[j].DegreeOfSeparation {
			return suggestions[i].DegreeOfSeparation < suggestions[j].DegreeOfSeparation
		}
		return suggestions[i].ToID < suggestions[j].ToID
	})

	return suggestions, nil
}
