// Package trace provides an append-only event log for clone hierarchy and
// per-tick divergence analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// DistanceMatrixRecord captures the pairwise gate-schedule distance between
// every pair of clones, indexed by clone id.
type DistanceMatrixRecord struct {
	Distances [][]int
}

// HierarchyEdgeRecord captures one parent/child row of the clone hierarchy.
type HierarchyEdgeRecord struct {
	Parent int
	Child  int
	Weight int // schedule distance between parent and child
}

// CloneTickRecord captures one clone's divergence bookkeeping for one tick.
type CloneTickRecord struct {
	Tick          int
	Clone         int
	Parent        int // -1 for the root
	GatesOpened   int
	CopiedActive  int
	CopiedPassive int
	Pruned        int
	Owned         int // private copies held after prune
}
