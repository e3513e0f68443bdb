package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsim-cloning/evacsim/sim/trace"
)

// schedulesWithDiffs returns schedules where clone i differs from clone 0 in
// the first diffs[i] gates.
func schedulesWithDiffs(diffs ...int) []GateSchedule {
	out := make([]GateSchedule, len(diffs))
	for i, d := range diffs {
		s := uniformSchedule(50)
		for g := 0; g < d; g++ {
			s[g] = 10 + i
		}
		out[i] = s
	}
	return out
}

func TestDistanceMatrix(t *testing.T) {
	dm := NewDistanceMatrix(schedulesWithDiffs(0, 2, 5))
	assert.Equal(t, 3, dm.Len())
	assert.Equal(t, 0, dm.At(1, 1))
	assert.Equal(t, 2, dm.At(0, 1))
	assert.Equal(t, 5, dm.At(2, 0))
	assert.Equal(t, 5, dm.At(1, 2), "clones 1 and 2 differ in every mutated gate")
	assert.Equal(t, [][]int{{0, 2, 5}, {2, 0, 5}, {5, 5, 0}}, dm.Rows())
}

func TestBuildHierarchy_Prim(t *testing.T) {
	// GIVEN four clones: 1 and 2 close to the root, 3 closest to 2
	s := schedulesWithDiffs(0, 1, 2, 3)
	s[3] = s[2].Clone()
	s[3][20] = 1
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelHierarchy})

	// WHEN the hierarchy is built from clone 0
	h := BuildHierarchy(NewDistanceMatrix(s), 0, st)

	// THEN every clone hangs off its nearest already-reached clone
	assert.Equal(t, []CloneID{NoParent, 0, 0, 2}, h.Parent)
	assert.Equal(t, []int{0, 1, 2, 1}, h.Weight[:4])
	assert.Equal(t, 4, h.TotalWeight())
	assert.Equal(t, []CloneID{1, 2, 3}, h.Order())

	// AND the matrix and parent table were recorded
	require.NotNil(t, st.Matrix)
	assert.Len(t, st.Matrix.Distances, 4)
	assert.Equal(t, []trace.HierarchyEdgeRecord{
		{Parent: 0, Child: 1, Weight: 1},
		{Parent: 0, Child: 2, Weight: 2},
		{Parent: 2, Child: 3, Weight: 1},
	}, st.Hierarchy)
}

func TestBuildHierarchy_ZeroWeightEdgesAreValid(t *testing.T) {
	// GIVEN three identical schedules
	s := schedulesWithDiffs(0, 0, 0)

	// WHEN building from clone 1
	h := BuildHierarchy(NewDistanceMatrix(s), 1, nil)

	// THEN both other clones attach to the root with weight zero, lowest id first
	assert.Equal(t, []CloneID{1, NoParent, 1}, h.Parent)
	assert.Equal(t, []CloneID{0, 2}, h.Order())
	assert.Equal(t, 0, h.TotalWeight())
}

func TestBuildHierarchy_OrderIsTopological(t *testing.T) {
	s := schedulesWithDiffs(4, 3, 2, 1, 0)
	h := BuildHierarchy(NewDistanceMatrix(s), 4, nil)

	reached := map[CloneID]bool{h.Root: true}
	for _, c := range h.Order() {
		assert.True(t, reached[h.Parent[c]], "clone %d reached before parent %d", c, h.Parent[c])
		reached[c] = true
	}
	// Edges are sorted by child for output
	edges := h.Edges()
	for i := 1; i < len(edges); i++ {
		assert.Less(t, edges[i-1].Child, edges[i].Child)
	}
}

func TestBuildHierarchy_PanicsOnBadRoot(t *testing.T) {
	assert.Panics(t, func() { BuildHierarchy(NewDistanceMatrix(schedulesWithDiffs(0)), 3, nil) })
}
