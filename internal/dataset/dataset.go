// Package dataset streams normalized training and prediction patches out of
// directories of TIFF stacks.
//
// A Dataset is constructed once (discovering files and, when needed, running
// the statistics pass) and iterated many times. Iteration is lazy and
// memory-bounded: one image volume is resident at a time, and its patches
// are yielded before the next file is read. Worker identity is passed
// explicitly to Iter, so distributed loading is deterministic and testable
// without spawning workers.
package dataset

import (
	"fmt"
	"log/slog"

	"github.com/careamics-ml/careamics/internal/axes"
	"github.com/careamics-ml/careamics/internal/tiffio"
	"github.com/careamics-ml/careamics/internal/tiling"
	"github.com/careamics-ml/careamics/internal/transforms"
)

// Config describes a streaming dataset. The core reads these fields as
// given; cross-field consistency beyond the documented validation is the
// caller's concern.
type Config struct {
	// DataDir is searched recursively for .tif/.tiff files.
	DataDir string

	// Axes declares the layout of every file in the dataset, e.g. "TYX".
	// It is not auto-detected and is validated per file only against the
	// array rank.
	Axes string

	// PatchSize is the spatial patch extent, (Y, X) or (Z, Y, X).
	PatchSize []int

	// Mode selects the extraction strategy.
	Mode tiling.Mode

	// Stats supplies precomputed normalization statistics. When nil the
	// statistics pass runs at construction.
	Stats *Stats

	// Transforms are applied in order to every normalized patch.
	Transforms []transforms.Transform
}

// WorkerInfo identifies one loader replica. The zero value is a single
// worker owning every file.
type WorkerInfo struct {
	ID    int
	Count int
}

// Dataset is a lazily iterated source of normalized patches.
type Dataset struct {
	cfg   Config
	files []string
	stats Stats
}

// New discovers the source files and resolves normalization statistics.
// When cfg.Stats is nil every file is read once, synchronously, before New
// returns; iteration never starts with unresolved statistics.
func New(cfg Config) (*Dataset, error) {
	if err := axes.Validate(cfg.Axes); err != nil {
		return nil, err
	}

	files, err := ListFiles(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	d := &Dataset{cfg: cfg, files: files}
	if cfg.Stats != nil {
		d.stats = *cfg.Stats
	} else {
		d.stats, err = EstimateStats(files)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Files returns the discovered source files, sorted by path.
func (d *Dataset) Files() []string {
	return d.files
}

// Stats returns the dataset's normalization statistics.
func (d *Dataset) Stats() Stats {
	return d.stats
}

// Iter starts one pass over the files assigned to the given worker. Workers
// partition files round-robin (file index modulo worker count), so replicas
// with distinct IDs yield disjoint subsets and together cover every file.
func (d *Dataset) Iter(worker WorkerInfo) *Iterator {
	if worker.Count <= 0 {
		worker = WorkerInfo{ID: 0, Count: 1}
	}
	return &Iterator{d: d, worker: worker}
}

// Iterator is a single-pass pull iterator over a worker's patches.
//
//	it := ds.Iter(dataset.WorkerInfo{})
//	defer it.Close()
//	for it.Next() {
//		p := it.Patch()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
//
// Iterators are not safe for concurrent use.
type Iterator struct {
	d      *Dataset
	worker WorkerInfo

	fileIdx int
	patches *tiling.Iterator
	cur     *tiling.Patch
	err     error
	closed  bool
}

// Next advances to the next patch. It returns false when the worker's files
// are exhausted, an error occurred (see Err), or the iterator is closed.
func (it *Iterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}

	for {
		if it.patches != nil && it.patches.Next() {
			p, err := it.transform(it.patches.Patch())
			if err != nil {
				it.err = err
				return false
			}
			it.cur = p
			return true
		}

		// Current file exhausted; its volume is released before the next
		// read so at most one image is resident.
		it.patches = nil
		if !it.nextFile() {
			return false
		}
	}
}

// nextFile loads the next file assigned to this worker and prepares its
// patch iterator. It returns false when no files remain or loading failed.
func (it *Iterator) nextFile() bool {
	for ; it.fileIdx < len(it.d.files); it.fileIdx++ {
		if it.fileIdx%it.worker.Count != it.worker.ID {
			continue
		}
		path := it.d.files[it.fileIdx]

		patches, err := it.d.openFile(path)
		if err != nil {
			it.err = err
			return false
		}
		it.patches = patches
		it.fileIdx++
		return true
	}
	return false
}

// openFile reads and canonicalizes one volume and starts patch extraction
// over it. Read failures are logged and returned; they abort iteration.
func (d *Dataset) openFile(path string) (*tiling.Iterator, error) {
	arr, err := tiffio.Read(path)
	if err != nil {
		readErr := &ReadError{Path: path, Err: err}
		slog.Error("failed to read source file", "file", path, "error", err)
		return nil, readErr
	}

	canonical, err := axes.Canonicalize(arr, d.cfg.Axes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	patches, err := tiling.Extract(canonical, d.cfg.PatchSize, d.cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return patches, nil
}

// transform normalizes a patch and runs the configured transform chain.
func (it *Iterator) transform(p *tiling.Patch) (*tiling.Patch, error) {
	p, err := transforms.Normalize{Mean: it.d.stats.Mean, Std: it.d.stats.Std}.Apply(p)
	if err != nil {
		return nil, err
	}
	return transforms.Compose(it.d.cfg.Transforms).Apply(p)
}

// Patch returns the current patch. It is only valid after a call to Next
// that returned true.
func (it *Iterator) Patch() *tiling.Patch {
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator. Further Next calls return false. Closing is
// idempotent and safe at any point of the pass, so consumers abandoning a
// pass early do not hold file data alive.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.patches = nil
	it.cur = nil
	return nil
}
