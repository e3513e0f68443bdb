package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gsim-cloning/evacsim/sim/trace"
)

// Driver advances every clone of a registry one tick at a time. Clones are
// processed sequentially in schedule order; commit happens for all clones
// together once every clone has stepped.
type Driver struct {
	reg      *Registry
	root     *Clone
	schedule Schedule

	workers    int
	recorder   trace.Recorder
	snapshots  SnapshotSink
	snapshotOf []CloneID
	divergence DivergenceSink
	metrics    *Metrics
	tick       int
	stats      []DivergenceSample
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithWorkers sets how many goroutines step one clone's agents. Values below
// 1 mean one worker.
func WithWorkers(n int) DriverOption {
	return func(d *Driver) { d.workers = max(1, n) }
}

// WithRecorder installs a trace recorder for per-tick clone events.
func WithRecorder(rec trace.Recorder) DriverOption {
	return func(d *Driver) {
		if rec != nil {
			d.recorder = rec
		}
	}
}

// WithSnapshotSink streams full snapshots of the given clones to sink after
// every tick. With no clones named, only the root is streamed.
func WithSnapshotSink(sink SnapshotSink, clones ...CloneID) DriverOption {
	return func(d *Driver) {
		d.snapshots = sink
		d.snapshotOf = append([]CloneID(nil), clones...)
	}
}

// WithDivergenceSink streams per-clone divergence samples after every tick.
func WithDivergenceSink(sink DivergenceSink) DriverOption {
	return func(d *Driver) { d.divergence = sink }
}

// NewDriver validates schedule against the registry, assigns every clone its
// parent and seeds each child's context from its parent.
func NewDriver(reg *Registry, root CloneID, schedule Schedule, opts ...DriverOption) (*Driver, error) {
	if reg == nil {
		panic("NewDriver: nil registry")
	}
	if err := schedule.Validate(reg.Len(), root); err != nil {
		return nil, err
	}
	d := &Driver{
		reg:      reg,
		root:     reg.Clone(root),
		schedule: schedule,
		workers:  1,
		recorder: trace.Nop{},
		metrics:  NewMetrics(reg.Len()),
		stats:    make([]DivergenceSample, reg.Len()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.snapshots != nil && len(d.snapshotOf) == 0 {
		d.snapshotOf = []CloneID{root}
	}
	for _, id := range d.snapshotOf {
		if reg.Clone(id) == nil {
			return nil, fmt.Errorf("snapshot of unknown clone %d", id)
		}
	}

	d.root.ParentID = NoParent
	for _, e := range schedule.Edges {
		reg.Clone(e.Child).ParentID = e.Parent
	}
	for _, e := range schedule.Edges {
		reg.Clone(e.Child).inheritContext(reg.Clone(e.Parent))
	}
	for i := range d.stats {
		d.stats[i] = DivergenceSample{Clone: CloneID(i), Parent: reg.Clone(CloneID(i)).ParentID}
	}
	return d, nil
}

// CurrentTick returns the number of ticks completed.
func (d *Driver) CurrentTick() int { return d.tick }

// Metrics returns the divergence metrics accumulated so far.
func (d *Driver) Metrics() *Metrics { return d.metrics }

// Tick advances every clone by one tick.
func (d *Driver) Tick(ctx context.Context) error {
	d.tick++
	tick := d.tick

	opened := make([]int, d.reg.Len())
	for _, c := range d.reg.Clones() {
		opened[c.ID] = c.AdvanceGates(tick)
	}

	d.root.Step(d.reg, d.workers)
	d.stats[d.root.ID] = DivergenceSample{Clone: d.root.ID, Parent: NoParent, Owned: d.root.OwnedCount()}

	for _, e := range d.schedule.Edges {
		child, parent := d.reg.Clone(e.Child), d.reg.Clone(e.Parent)
		copied, err := child.CopyIn(parent, d.reg)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		child.Step(d.reg, d.workers)
		pruned := child.Prune(d.reg)
		d.stats[child.ID] = DivergenceSample{
			Clone:         child.ID,
			Parent:        parent.ID,
			Owned:         child.OwnedCount(),
			CopiedActive:  copied.Active,
			CopiedPassive: copied.Passive,
			Pruned:        pruned,
		}
		d.recorder.RecordCloneTick(trace.CloneTickRecord{
			Tick:          tick,
			Clone:         int(child.ID),
			Parent:        int(parent.ID),
			GatesOpened:   opened[child.ID],
			CopiedActive:  copied.Active,
			CopiedPassive: copied.Passive,
			Pruned:        pruned,
			Owned:         child.OwnedCount(),
		})
	}

	if err := d.commit(ctx); err != nil {
		return fmt.Errorf("tick %d: %w", tick, err)
	}
	d.metrics.Record(tick, d.stats)

	if d.snapshots != nil {
		for _, id := range d.snapshotOf {
			rows := d.reg.Clone(id).Snapshot(d.reg)
			if err := d.snapshots.WriteSnapshot(tick, id, rows); err != nil {
				return fmt.Errorf("tick %d: snapshot of clone %d: %w", tick, id, err)
			}
		}
	}
	if d.divergence != nil {
		samples := append([]DivergenceSample(nil), d.stats...)
		if err := d.divergence.RecordDivergence(tick, samples); err != nil {
			return fmt.Errorf("tick %d: divergence: %w", tick, err)
		}
	}
	logrus.Debugf("[tick %04d] root owned=%d total owned=%d", tick, d.root.OwnedCount(), d.metrics.LastTotalOwned())
	return nil
}

// commit publishes pending state for every clone, one goroutine per clone.
// Clones own disjoint pools so commits never race.
func (d *Driver) commit(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, c := range d.reg.Clones() {
		g.Go(func() error {
			c.Commit()
			return nil
		})
	}
	return g.Wait()
}

// Run advances ticks until n ticks have run or ctx is cancelled. Cancellation
// is checked between ticks so a tick is never left half committed.
func (d *Driver) Run(ctx context.Context, n int) error {
	logrus.Infof("running %d ticks over %d clones (schedule %s, %d workers)", n, d.reg.Len(), d.schedule.Kind, d.workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped after tick %d: %w", d.tick, err)
		}
		if err := d.Tick(ctx); err != nil {
			return err
		}
	}
	logrus.Infof("completed %d ticks; peak owned %d (clone %d, tick %d)",
		d.tick, d.metrics.PeakOwned, d.metrics.PeakClone, d.metrics.PeakTick)
	return nil
}
