// Package sink provides the output side of a cloning run: compressed
// trajectory streams, a SQLite divergence index and Prometheus gauges.
// Every type here implements sim.SnapshotSink, sim.DivergenceSink or both.
package sink
