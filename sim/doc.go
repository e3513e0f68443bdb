// Package sim provides the cloning engine for multi-branch crowd evacuation
// runs.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - clone.go: a Clone's pool and context, and the copy-in / prune protocol
//   - agent.go: the social force transition function (Current -> Pending)
//   - driver.go: the per-tick sequence over all clones and the commit barrier
//
// # Architecture
//
// Every clone holds a dense context mapping each global agent id to a SlotRef:
// either a slot of its own AgentPool (owned) or a slot in an ancestor's pool
// (inherited). The Registry resolves SlotRefs; no clone holds pointers into
// another clone's pool across ticks.
//
// Each tick the driver lifts scheduled gates in every clone, steps the root,
// then walks the Schedule: for each edge the child inherits its parent's
// context, copies in agents that may now behave differently (near a gate in a
// different state, or near an agent it already owns), steps its own agents
// and prunes copies that ended bit-identical to their origin. Commit runs for
// all clones after all of them have stepped.
//
// Sub-packages:
//   - sim/trace/: hierarchy and per-tick clone event recording
//   - sim/sink/: trajectory, SQLite and Prometheus outputs
//
// # Key Interfaces
//
//   - ParamGenerator: gate schedules per clone (mutating or fixed)
//   - SnapshotSink: full-population snapshots of designated clones
//   - DivergenceSink: per-clone owned counts after each tick
//   - trace.Recorder: append-only debug event log
package sim
