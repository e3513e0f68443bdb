package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelHierarchy captures the distance matrix and the parent table.
	TraceLevelHierarchy TraceLevel = "hierarchy"
	// TraceLevelTicks additionally captures per-clone, per-tick records.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelHierarchy: true,
	TraceLevelTicks:     true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Recorder receives trace events. Implementations only append.
type Recorder interface {
	RecordDistanceMatrix(DistanceMatrixRecord)
	RecordHierarchy([]HierarchyEdgeRecord)
	RecordCloneTick(CloneTickRecord)
}

// Nop discards every event. It is the default recorder.
type Nop struct{}

func (Nop) RecordDistanceMatrix(DistanceMatrixRecord) {}
func (Nop) RecordHierarchy([]HierarchyEdgeRecord)     {}
func (Nop) RecordCloneTick(CloneTickRecord)           {}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects events during a run, filtered by level.
type SimulationTrace struct {
	Config    TraceConfig
	Matrix    *DistanceMatrixRecord
	Hierarchy []HierarchyEdgeRecord
	Ticks     []CloneTickRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:    config,
		Hierarchy: make([]HierarchyEdgeRecord, 0),
		Ticks:     make([]CloneTickRecord, 0),
	}
}

func (st *SimulationTrace) enabled(lvl TraceLevel) bool {
	switch st.Config.Level {
	case TraceLevelTicks:
		return true
	case TraceLevelHierarchy:
		return lvl == TraceLevelHierarchy
	default:
		return false
	}
}

// RecordDistanceMatrix stores the distance matrix.
func (st *SimulationTrace) RecordDistanceMatrix(record DistanceMatrixRecord) {
	if !st.enabled(TraceLevelHierarchy) {
		return
	}
	rows := make([][]int, len(record.Distances))
	for i, r := range record.Distances {
		rows[i] = append([]int(nil), r...)
	}
	st.Matrix = &DistanceMatrixRecord{Distances: rows}
}

// RecordHierarchy appends the parent table rows.
func (st *SimulationTrace) RecordHierarchy(records []HierarchyEdgeRecord) {
	if !st.enabled(TraceLevelHierarchy) {
		return
	}
	st.Hierarchy = append(st.Hierarchy, records...)
}

// RecordCloneTick appends a per-tick clone record.
func (st *SimulationTrace) RecordCloneTick(record CloneTickRecord) {
	if !st.enabled(TraceLevelTicks) {
		return
	}
	st.Ticks = append(st.Ticks, record)
}
