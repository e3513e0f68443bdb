package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/gsim-cloning/evacsim/sim"
)

// JSONLZstdWriter appends one JSON document per line to a zstd-compressed
// file. It is safe for concurrent use.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewJSONLZstdWriter creates path (and its directory) and opens it for writing.
func NewJSONLZstdWriter(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file being written.
func (w *JSONLZstdWriter) Path() string { return w.path }

// Write appends v as one line.
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("write to closed %s", w.path)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered lines, finishes the zstd frame and closes the file.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	err := w.w.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.w, w.enc, w.f = nil, nil, nil
	return err
}

// SnapshotLine is one line of a trajectory file: the full population of one
// clone after one tick.
type SnapshotLine struct {
	Tick   int                 `json:"tick"`
	Clone  int                 `json:"clone"`
	Agents []sim.AgentSnapshot `json:"agents"`
}

// TrajectoryWriter streams snapshots of each clone to its own
// clone-<id>.jsonl.zst file under a directory, keeping every Nth tick.
type TrajectoryWriter struct {
	dir   string
	every int

	mu      sync.Mutex
	writers map[sim.CloneID]*JSONLZstdWriter
}

// NewTrajectoryWriter writes into dir. every below 1 keeps every tick.
func NewTrajectoryWriter(dir string, every int) *TrajectoryWriter {
	return &TrajectoryWriter{
		dir:     dir,
		every:   max(1, every),
		writers: make(map[sim.CloneID]*JSONLZstdWriter),
	}
}

// TrajectoryPath returns the file a clone's snapshots are written to.
func TrajectoryPath(dir string, clone sim.CloneID) string {
	return filepath.Join(dir, fmt.Sprintf("clone-%d.jsonl.zst", clone))
}

// WriteSnapshot implements sim.SnapshotSink.
func (t *TrajectoryWriter) WriteSnapshot(tick int, clone sim.CloneID, rows []sim.AgentSnapshot) error {
	if tick%t.every != 0 {
		return nil
	}
	t.mu.Lock()
	w, ok := t.writers[clone]
	if !ok {
		var err error
		w, err = NewJSONLZstdWriter(TrajectoryPath(t.dir, clone))
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("open trajectory of clone %d: %w", clone, err)
		}
		t.writers[clone] = w
	}
	t.mu.Unlock()
	return w.Write(SnapshotLine{Tick: tick, Clone: int(clone), Agents: rows})
}

// Close closes every open trajectory file and returns the first error.
func (t *TrajectoryWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var first error
	for id, w := range t.writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("close trajectory of clone %d: %w", id, err)
		}
	}
	return first
}

// ReadSnapshotLines decodes every line of a trajectory file.
func ReadSnapshotLines(path string) ([]SnapshotLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []SnapshotLine
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		var line SnapshotLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, len(out)+1, err)
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
