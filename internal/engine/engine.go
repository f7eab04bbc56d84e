package engine

// Engine classifies kinship over a single tree snapshot. It holds no mutable
// state: every derivation is recomputed from the snapshot per call, so an
// Engine is safe for concurrent use. Batch operations carry their own
// request-scoped memoization (see batchContext).
type Engine struct {
	snap *Snapshot
}

// New creates an inference engine over the given snapshot.
func New(snap *Snapshot) *Engine {
	return &Engine{snap: snap}
}
