package sim

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gsim-cloning/evacsim/sim/trace"
)

// DistanceMatrix holds, for every pair of clones, the number of gates whose
// scheduled ticks differ. It is symmetric with a zero diagonal.
type DistanceMatrix struct {
	m *mat.SymDense
}

// NewDistanceMatrix computes pairwise schedule distances.
// Panics if schedules is empty.
func NewDistanceMatrix(schedules []GateSchedule) *DistanceMatrix {
	n := len(schedules)
	if n == 0 {
		panic("NewDistanceMatrix: no schedules")
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, float64(schedules[i].Diff(schedules[j])))
		}
	}
	return &DistanceMatrix{m: m}
}

// Len returns the number of clones.
func (d *DistanceMatrix) Len() int { return d.m.SymmetricDim() }

// At returns the distance between clones i and j.
func (d *DistanceMatrix) At(i, j CloneID) int {
	return int(d.m.At(int(i), int(j)))
}

// Rows returns the matrix as nested int slices, the form recorded in traces.
func (d *DistanceMatrix) Rows() [][]int {
	n := d.Len()
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		for j := range rows[i] {
			rows[i][j] = int(d.m.At(i, j))
		}
	}
	return rows
}

// Hierarchy is a minimum spanning tree over clones weighted by schedule
// distance. Each non-root clone's parent is the clone whose schedule is
// closest among those already in the tree when it was reached.
type Hierarchy struct {
	Root   CloneID
	Parent []CloneID // NoParent for the root
	Weight []int     // distance to Parent

	order []CloneID
}

// BuildHierarchy runs Prim's algorithm from root over the dense matrix.
// Zero-distance edges are valid; ties go to the lowest clone id. The matrix
// and the resulting parent table are recorded into rec.
func BuildHierarchy(dm *DistanceMatrix, root CloneID, rec trace.Recorder) *Hierarchy {
	n := dm.Len()
	if root < 0 || int(root) >= n {
		panic(fmt.Sprintf("BuildHierarchy: root %d outside [0, %d)", root, n))
	}
	if rec == nil {
		rec = trace.Nop{}
	}
	h := &Hierarchy{
		Root:   root,
		Parent: make([]CloneID, n),
		Weight: make([]int, n),
		order:  make([]CloneID, 0, n),
	}
	key := make([]int, n)
	inTree := make([]bool, n)
	for i := range key {
		key[i] = math.MaxInt
		h.Parent[i] = NoParent
	}
	key[root] = 0

	for count := 0; count < n; count++ {
		u := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && (u == -1 || key[j] < key[u]) {
				u = j
			}
		}
		inTree[u] = true
		h.Weight[u] = key[u]
		h.order = append(h.order, CloneID(u))

		for j := 0; j < n; j++ {
			if w := dm.At(CloneID(u), CloneID(j)); !inTree[j] && w < key[j] {
				key[j] = w
				h.Parent[j] = CloneID(u)
			}
		}
	}

	rec.RecordDistanceMatrix(trace.DistanceMatrixRecord{Distances: dm.Rows()})
	edges := h.Edges()
	records := make([]trace.HierarchyEdgeRecord, len(edges))
	for i, e := range edges {
		records[i] = trace.HierarchyEdgeRecord{Parent: int(e.Parent), Child: int(e.Child), Weight: e.Weight}
	}
	rec.RecordHierarchy(records)
	return h
}

// WeightedEdge is one parent/child row of the hierarchy.
type WeightedEdge struct {
	Parent CloneID
	Child  CloneID
	Weight int
}

// Edges returns the parent table for every non-root clone, sorted by child id.
func (h *Hierarchy) Edges() []WeightedEdge {
	edges := make([]WeightedEdge, 0, len(h.order))
	for _, c := range h.order {
		if c == h.Root {
			continue
		}
		edges = append(edges, WeightedEdge{Parent: h.Parent[c], Child: c, Weight: h.Weight[c]})
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Child < edges[j].Child })
	return edges
}

// Order returns the non-root clones in the order Prim's algorithm reached
// them. Every clone appears after its parent.
func (h *Hierarchy) Order() []CloneID {
	out := make([]CloneID, 0, len(h.order))
	for _, c := range h.order {
		if c != h.Root {
			out = append(out, c)
		}
	}
	return out
}

// TotalWeight is the sum of all tree edge weights.
func (h *Hierarchy) TotalWeight() int {
	total := 0
	for i, w := range h.Weight {
		if CloneID(i) != h.Root {
			total += w
		}
	}
	return total
}
