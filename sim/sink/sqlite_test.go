package sink

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/gsim-cloning/evacsim/sim"
)

func TestSQLiteIndex_RecordDivergence(t *testing.T) {
	// GIVEN a fresh index
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path, RunInfo{Seed: 42, Population: 10, Clones: 2, Schedule: "mst"})
	require.NoError(t, err)
	runID := idx.RunID()
	require.NotEmpty(t, runID)

	// WHEN two ticks are recorded
	for tick := 1; tick <= 2; tick++ {
		require.NoError(t, idx.RecordDivergence(tick, []sim.DivergenceSample{
			{Clone: 0, Parent: sim.NoParent, Owned: 10},
			{Clone: 1, Parent: 0, Owned: tick * 2, CopiedActive: tick, Pruned: 1},
		}))
	}
	require.NoError(t, idx.Close())

	// THEN the rows can be queried back under the run id
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var seed int64
	require.NoError(t, db.QueryRow(`SELECT seed FROM runs WHERE run_id=?`, runID).Scan(&seed))
	assert.Equal(t, int64(42), seed)

	var owned, active, parent int
	require.NoError(t, db.QueryRow(`SELECT owned,copied_active,parent FROM divergence WHERE run_id=? AND tick=2 AND clone=1`, runID).
		Scan(&owned, &active, &parent))
	assert.Equal(t, 4, owned)
	assert.Equal(t, 2, active)
	assert.Equal(t, 0, parent)

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM divergence WHERE run_id=?`, runID).Scan(&rows))
	assert.Equal(t, 4, rows)
}

func TestSQLiteIndex_RecordClones_StoresProcessingParent(t *testing.T) {
	// GIVEN clone 2 one gate away from clone 1 and two gates from the root,
	// processed under a star schedule
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path, RunInfo{Clones: 3, Schedule: sim.ScheduleStar})
	require.NoError(t, err)

	params := []sim.GateSchedule{
		make(sim.GateSchedule, sim.NumGates),
		make(sim.GateSchedule, sim.NumGates),
		make(sim.GateSchedule, sim.NumGates),
	}
	params[1][0] = 5
	params[2][0] = 5
	params[2][1] = 7
	h := sim.BuildHierarchy(sim.NewDistanceMatrix(params), 0, nil)
	require.Equal(t, sim.CloneID(1), h.Parent[2])

	// WHEN the clones are recorded
	require.NoError(t, idx.RecordClones(sim.StarSchedule(3, 0), h, params))
	runID := idx.RunID()
	require.NoError(t, idx.Close())

	// THEN parent is the star parent with its distance, mst_parent the tree's
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var parent, weight, mstParent int
	require.NoError(t, db.QueryRow(`SELECT parent,weight,mst_parent FROM clones WHERE run_id=? AND clone=2`, runID).
		Scan(&parent, &weight, &mstParent))
	assert.Equal(t, 0, parent)
	assert.Equal(t, 2, weight)
	assert.Equal(t, 1, mstParent)

	require.NoError(t, db.QueryRow(`SELECT parent,weight,mst_parent FROM clones WHERE run_id=? AND clone=0`, runID).
		Scan(&parent, &weight, &mstParent))
	assert.Equal(t, int(sim.NoParent), parent)
	assert.Equal(t, 0, weight)
	assert.Equal(t, int(sim.NoParent), mstParent)
}

func TestSQLiteIndex_TwoRunsShareDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	a, err := OpenSQLite(path, RunInfo{Seed: 1})
	require.NoError(t, err)
	require.NoError(t, a.Close())
	b, err := OpenSQLite(path, RunInfo{Seed: 2})
	require.NoError(t, err)
	require.NoError(t, b.Close())
	assert.NotEqual(t, a.RunID(), b.RunID())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("", RunInfo{})
	assert.Error(t, err)
}
