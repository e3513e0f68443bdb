package sim

// SnapshotSink receives full-population snapshots of designated clones.
type SnapshotSink interface {
	WriteSnapshot(tick int, clone CloneID, rows []AgentSnapshot) error
}

// DivergenceSample is the divergence volume of one clone after one tick.
type DivergenceSample struct {
	Clone         CloneID
	Parent        CloneID
	Owned         int // private copies held after prune
	CopiedActive  int
	CopiedPassive int
	Pruned        int
}

// DivergenceSink receives one sample per clone per tick, in clone id order.
type DivergenceSink interface {
	RecordDivergence(tick int, samples []DivergenceSample) error
}
