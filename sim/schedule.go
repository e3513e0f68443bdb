package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidScheduleOrder is returned when a processing schedule is not a
// topological order over the parent/child relation.
var ErrInvalidScheduleOrder = errors.New("invalid clone processing schedule")

// Schedule kinds.
const (
	ScheduleMST      = "mst"      // hierarchy parents in Prim order
	ScheduleStar     = "star"     // every clone branches from the root
	ScheduleChain    = "chain"    // each clone branches from the previous one
	ScheduleExplicit = "explicit" // hand-authored edge list
)

// ValidScheduleKinds is the set of recognized schedule kinds.
var ValidScheduleKinds = map[string]bool{
	ScheduleMST: true, ScheduleStar: true, ScheduleChain: true, ScheduleExplicit: true,
}

// Edge says Child is copied in against, stepped after, and pruned against Parent.
type Edge struct {
	Parent CloneID
	Child  CloneID
}

// Schedule is the per-tick processing order of non-root clones.
type Schedule struct {
	Kind  string
	Edges []Edge
}

// StarSchedule branches every clone directly from root, in id order.
func StarSchedule(numClones int, root CloneID) Schedule {
	s := Schedule{Kind: ScheduleStar}
	for i := 0; i < numClones; i++ {
		if CloneID(i) != root {
			s.Edges = append(s.Edges, Edge{Parent: root, Child: CloneID(i)})
		}
	}
	return s
}

// ChainSchedule branches each clone from the one before it in id order; the
// first non-root clone branches from root.
func ChainSchedule(numClones int, root CloneID) Schedule {
	s := Schedule{Kind: ScheduleChain}
	prev := root
	for i := 0; i < numClones; i++ {
		if CloneID(i) == root {
			continue
		}
		s.Edges = append(s.Edges, Edge{Parent: prev, Child: CloneID(i)})
		prev = CloneID(i)
	}
	return s
}

// MSTSchedule processes clones in the order the hierarchy reached them, each
// against its tree parent.
func MSTSchedule(h *Hierarchy) Schedule {
	s := Schedule{Kind: ScheduleMST}
	for _, c := range h.Order() {
		s.Edges = append(s.Edges, Edge{Parent: h.Parent[c], Child: c})
	}
	return s
}

// ExplicitSchedule wraps a hand-authored edge list. Call Validate before use.
func ExplicitSchedule(edges []Edge) Schedule {
	return Schedule{Kind: ScheduleExplicit, Edges: append([]Edge(nil), edges...)}
}

// Validate checks that every non-root clone appears exactly once as a child
// and that each parent is the root or was processed earlier in the list.
func (s Schedule) Validate(numClones int, root CloneID) error {
	if root < 0 || int(root) >= numClones {
		return fmt.Errorf("%w: root %d outside [0, %d)", ErrInvalidScheduleOrder, root, numClones)
	}
	if len(s.Edges) != numClones-1 {
		return fmt.Errorf("%w: %d edges for %d non-root clones", ErrInvalidScheduleOrder, len(s.Edges), numClones-1)
	}
	done := make([]bool, numClones)
	done[root] = true
	for i, e := range s.Edges {
		if e.Child < 0 || int(e.Child) >= numClones || e.Parent < 0 || int(e.Parent) >= numClones {
			return fmt.Errorf("%w: edge %d (%d -> %d) names an unknown clone", ErrInvalidScheduleOrder, i, e.Parent, e.Child)
		}
		if done[e.Child] {
			return fmt.Errorf("%w: clone %d processed twice or is the root", ErrInvalidScheduleOrder, e.Child)
		}
		if !done[e.Parent] {
			return fmt.Errorf("%w: clone %d processed before its parent %d", ErrInvalidScheduleOrder, e.Child, e.Parent)
		}
		done[e.Child] = true
	}
	return nil
}
