package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStarAndChainSchedules(t *testing.T) {
	star := StarSchedule(4, 1)
	assert.Equal(t, []Edge{{1, 0}, {1, 2}, {1, 3}}, star.Edges)
	assert.NoError(t, star.Validate(4, 1))

	chain := ChainSchedule(4, 1)
	assert.Equal(t, []Edge{{1, 0}, {0, 2}, {2, 3}}, chain.Edges)
	assert.NoError(t, chain.Validate(4, 1))
}

func TestMSTSchedule_FollowsHierarchy(t *testing.T) {
	h := BuildHierarchy(NewDistanceMatrix(schedulesWithDiffs(0, 3, 1, 2)), 0, nil)
	s := MSTSchedule(h)
	assert.NoError(t, s.Validate(4, 0))
	for _, e := range s.Edges {
		assert.Equal(t, h.Parent[e.Child], e.Parent)
	}
}

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
		root  CloneID
		ok    bool
	}{
		{"valid explicit", []Edge{{0, 2}, {2, 1}}, 0, true},
		{"child before its parent", []Edge{{2, 1}, {0, 2}}, 0, false},
		{"clone twice", []Edge{{0, 1}, {0, 1}}, 0, false},
		{"root as child", []Edge{{0, 1}, {1, 0}}, 0, false},
		{"too few edges", []Edge{{0, 1}}, 0, false},
		{"unknown clone", []Edge{{0, 1}, {0, 7}}, 0, false},
		{"root out of range", []Edge{{0, 1}, {0, 2}}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExplicitSchedule(tt.edges).Validate(3, tt.root)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidScheduleOrder)
			}
		})
	}
}
