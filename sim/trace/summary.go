package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTicks    int
	TotalCopied   int
	TotalPruned   int
	PeakOwned     int
	PeakOwnedTick int
	PeakClone     int
	MeanOwned     float64     // mean over all (tick, clone) records
	OwnedByClone  map[int]int // clone id → owned count at the last recorded tick
	HierarchyCost int         // sum of edge weights
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OwnedByClone: make(map[int]int),
		PeakClone:    -1,
	}
	if st == nil {
		return summary
	}

	for _, e := range st.Hierarchy {
		summary.HierarchyCost += e.Weight
	}

	if len(st.Ticks) > 0 {
		totalOwned := 0
		for _, r := range st.Ticks {
			summary.TotalCopied += r.CopiedActive + r.CopiedPassive
			summary.TotalPruned += r.Pruned
			totalOwned += r.Owned
			if r.Tick > summary.TotalTicks {
				summary.TotalTicks = r.Tick
			}
			if r.Owned > summary.PeakOwned {
				summary.PeakOwned = r.Owned
				summary.PeakOwnedTick = r.Tick
				summary.PeakClone = r.Clone
			}
			summary.OwnedByClone[r.Clone] = r.Owned
		}
		summary.MeanOwned = float64(totalOwned) / float64(len(st.Ticks))
	}

	return summary
}
