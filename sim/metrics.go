// Tracks divergence volume across clones and ticks.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Metrics aggregates the owned-agent count of every clone over a run for
// final reporting. The owned count of a non-root clone is its divergence
// volume: how many agents it had to materialize instead of sharing.
type Metrics struct {
	Ticks int // Number of ticks recorded

	OwnedSeries   [][]int // clone -> owned count per tick (index tick-1)
	TotalCopied   []int   // clone -> agents copied in over the run
	TotalPruned   []int   // clone -> agents pruned over the run
	TotalOwnedSum []int   // per tick, owned agents summed over non-root clones

	PeakOwned int     // Max owned count of any single non-root clone
	PeakClone CloneID // Clone that reached PeakOwned
	PeakTick  int     // First tick at which PeakOwned was reached

	root CloneID
}

// NewMetrics creates metrics for numClones clones.
func NewMetrics(numClones int) *Metrics {
	return &Metrics{
		OwnedSeries: make([][]int, numClones),
		TotalCopied: make([]int, numClones),
		TotalPruned: make([]int, numClones),
		PeakClone:   NoParent,
		root:        NoParent,
	}
}

// Record appends one tick of samples, one per clone in id order.
func (m *Metrics) Record(tick int, samples []DivergenceSample) {
	m.Ticks = tick
	total := 0
	for _, s := range samples {
		m.OwnedSeries[s.Clone] = append(m.OwnedSeries[s.Clone], s.Owned)
		if s.Parent == NoParent {
			m.root = s.Clone
			continue
		}
		m.TotalCopied[s.Clone] += s.CopiedActive + s.CopiedPassive
		m.TotalPruned[s.Clone] += s.Pruned
		total += s.Owned
		if s.Owned > m.PeakOwned {
			m.PeakOwned = s.Owned
			m.PeakClone = s.Clone
			m.PeakTick = tick
		}
	}
	m.TotalOwnedSum = append(m.TotalOwnedSum, total)
}

// LastTotalOwned returns the non-root owned total of the latest tick.
func (m *Metrics) LastTotalOwned() int {
	if len(m.TotalOwnedSum) == 0 {
		return 0
	}
	return m.TotalOwnedSum[len(m.TotalOwnedSum)-1]
}

// MeanOwned returns the mean owned count of clone over all recorded ticks.
func (m *Metrics) MeanOwned(clone CloneID) float64 {
	return CalculateMean(m.OwnedSeries[clone])
}

// Print displays aggregated divergence metrics at the end of the run.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Divergence Metrics ===")
	fmt.Fprintf(w, "Ticks                : %d\n", m.Ticks)
	if m.Ticks == 0 {
		return
	}
	fmt.Fprintf(w, "Mean Owned (all)     : %.2f agents\n", CalculateMean(m.TotalOwnedSum))
	fmt.Fprintf(w, "P95 Owned (all)      : %.2f agents\n", CalculatePercentile(m.TotalOwnedSum, 95))
	if m.PeakClone != NoParent {
		fmt.Fprintf(w, "Peak Owned           : %d agents (clone %d, tick %d)\n", m.PeakOwned, m.PeakClone, m.PeakTick)
	}
	for id := range m.OwnedSeries {
		if CloneID(id) == m.root {
			continue
		}
		fmt.Fprintf(w, "  clone %-3d mean=%.2f copied=%d pruned=%d\n",
			id, m.MeanOwned(CloneID(id)), m.TotalCopied[id], m.TotalPruned[id])
	}
}

// MetricsOutput is the JSON form of Metrics written by SaveResults.
type MetricsOutput struct {
	RunID       string  `json:"run_id,omitempty"`
	Ticks       int     `json:"ticks"`
	PeakOwned   int     `json:"peak_owned"`
	PeakClone   int     `json:"peak_clone"`
	PeakTick    int     `json:"peak_tick"`
	MeanOwned   float64 `json:"mean_owned"`
	OwnedSeries [][]int `json:"owned_series"`
	TotalCopied []int   `json:"total_copied"`
	TotalPruned []int   `json:"total_pruned"`
}

// SaveResults writes the metrics as indented JSON to path.
func (m *Metrics) SaveResults(runID, path string) error {
	out := MetricsOutput{
		RunID:       runID,
		Ticks:       m.Ticks,
		PeakOwned:   m.PeakOwned,
		PeakClone:   int(m.PeakClone),
		PeakTick:    m.PeakTick,
		MeanOwned:   CalculateMean(m.TotalOwnedSum),
		OwnedSeries: m.OwnedSeries,
		TotalCopied: m.TotalCopied,
		TotalPruned: m.TotalPruned,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
