package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careamics-ml/careamics/internal/tensor"
	"github.com/careamics-ml/careamics/internal/tiffio"
	"github.com/careamics-ml/careamics/internal/tiling"
)

// writeStack writes a float32 TIFF fixture and returns its values.
func writeStack(t *testing.T, path string, shape tensor.Shape, fill func(i int) float32) *tensor.Array {
	t.Helper()
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = fill(i)
	}
	arr, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	require.NoError(t, tiffio.Write(path, arr))
	return arr
}

func TestListFilesSortedRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	for _, name := range []string{"b.tif", "a.tiff", filepath.Join("sub", "c.TIF"), "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.tiff"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.tif"), files[1])
	assert.Equal(t, filepath.Join(dir, "sub", "c.TIF"), files[2])
}

func TestListFilesEmpty(t *testing.T) {
	_, err := ListFiles(t.TempDir())
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestEstimateStats(t *testing.T) {
	dir := t.TempDir()
	// File A: {0, 2} per row -> mean 1, population std 1.
	writeStack(t, filepath.Join(dir, "a.tif"), tensor.Shape{2, 2}, func(i int) float32 {
		return float32(i%2) * 2
	})
	// File B: {2, 4} per row -> mean 3, population std 1.
	writeStack(t, filepath.Join(dir, "b.tif"), tensor.Shape{2, 2}, func(i int) float32 {
		return float32(i%2)*2 + 2
	})

	s, err := EstimateStats([]string{filepath.Join(dir, "a.tif"), filepath.Join(dir, "b.tif")})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Mean, 1e-9, "average of the per-image means")
	assert.InDelta(t, 1.0, s.Std, 1e-9, "average of the per-image stds")
}

func TestEstimateStatsNoFiles(t *testing.T) {
	_, err := EstimateStats(nil)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestNewEmptyDirectory(t *testing.T) {
	// Construction fails before any file read is attempted.
	_, err := New(Config{
		DataDir:   t.TempDir(),
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
	})
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestStreamingSequential(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{8, 8}, func(i int) float32 {
		return float32(i)
	})

	stats := &Stats{Mean: 2, Std: 4}
	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     stats,
	})
	require.NoError(t, err)
	assert.Equal(t, *stats, ds.Stats(), "supplied statistics skip the estimation pass")

	it := ds.Iter(WorkerInfo{})
	defer it.Close()

	count := 0
	for it.Next() {
		p := it.Patch()
		count++
		assert.Equal(t, tensor.Shape{1, 4, 4}, p.Data.Shape())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 4, count)
}

func TestStreamingNormalizes(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{4, 4}, func(i int) float32 {
		return 10
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 6, Std: 2},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	defer it.Close()
	require.True(t, it.Next())
	for _, v := range it.Patch().Data.Data() {
		assert.Equal(t, float32(2), v, "(10 - 6) / 2")
	}
}

func TestStreamingStatsComputedAtConstruction(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{4, 4}, func(i int) float32 {
		return float32(i % 2) // mean 0.5, population std 0.5
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ds.Stats().Mean, 1e-9)
	assert.InDelta(t, 0.5, ds.Stats().Std, 1e-9)
}

func TestWorkerPartitionDisjointAndComplete(t *testing.T) {
	dir := t.TempDir()
	const numFiles = 5
	names := []string{"a.tif", "b.tif", "c.tif", "d.tif", "e.tif"}
	for n, name := range names {
		base := float32(n * 100)
		writeStack(t, filepath.Join(dir, name), tensor.Shape{4, 4}, func(i int) float32 {
			return base + float32(i)
		})
	}

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	// Each patch's first value identifies its source file.
	fileOf := func(v float32) int { return int(v) / 100 }

	workers := 2
	seen := make(map[int]int) // file index -> worker
	total := 0
	for w := 0; w < workers; w++ {
		it := ds.Iter(WorkerInfo{ID: w, Count: workers})
		for it.Next() {
			total++
			f := fileOf(it.Patch().Data.Data()[0])
			if prev, ok := seen[f]; ok {
				require.Equal(t, w, prev, "file %d emitted by two workers", f)
			}
			seen[f] = w
			assert.Equal(t, f%workers, w, "round-robin assignment")
		}
		require.NoError(t, it.Err())
		require.NoError(t, it.Close())
	}

	assert.Len(t, seen, numFiles, "workers together cover every file")
	assert.Equal(t, numFiles, total, "one 4x4 patch per 4x4 file")
}

func TestAxisMismatchAborts(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{4, 4}, func(i int) float32 {
		return float32(i)
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "TYX", // declares rank 3, files are 2D
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	defer it.Close()
	assert.False(t, it.Next())
	assert.Error(t, it.Err())
}

func TestCorruptFileAborts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.tif"), []byte("not a tiff"), 0o644))

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{2, 2},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	defer it.Close()
	assert.False(t, it.Next())

	var readErr *ReadError
	require.ErrorAs(t, it.Err(), &readErr)
	assert.Equal(t, filepath.Join(dir, "bad.tif"), readErr.Path)
}

func TestInvalidPatchSpecSurfacesOnIteration(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{10, 10}, func(i int) float32 {
		return float32(i)
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{5, 11}, // X patch exceeds X extent
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	defer it.Close()
	assert.False(t, it.Next(), "no patch is produced")
	assert.ErrorIs(t, it.Err(), tiling.ErrInvalidPatchSpec)
}

func TestIteratorCloseStops(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "img.tif"), tensor.Shape{8, 8}, func(i int) float32 {
		return float32(i)
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "YX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	require.True(t, it.Next())
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
	require.NoError(t, it.Close(), "close is idempotent")
}

func TestStreamingTimeSeries(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, filepath.Join(dir, "stack.tif"), tensor.Shape{10, 8, 8}, func(i int) float32 {
		return float32(i)
	})

	ds, err := New(Config{
		DataDir:   dir,
		Axes:      "TYX",
		PatchSize: []int{4, 4},
		Mode:      tiling.Sequential{},
		Stats:     &Stats{Mean: 0, Std: 1},
	})
	require.NoError(t, err)

	it := ds.Iter(WorkerInfo{})
	defer it.Close()

	count := 0
	samples := make(map[int]bool)
	for it.Next() {
		count++
		samples[it.Patch().Sample] = true
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 40, count, "10 samples x 4 tiles")
	assert.Len(t, samples, 10)
}

func TestPredictionSet(t *testing.T) {
	data := make([]float32, 3*4*4)
	for i := range data {
		data[i] = float32(i)
	}
	arr, err := tensor.FromSlice(data, tensor.Shape{3, 4, 4})
	require.NoError(t, err)

	set, err := NewPredictionSet(arr, "SYX", Stats{Mean: 1, Std: 2})
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	sample, err := set.At(1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, sample.Shape())
	// Element (1, 0, 0, 0) of the source is flat index 16.
	assert.Equal(t, float32((16.0-1.0)/2.0), sample.Data()[0])

	_, err = set.At(3)
	assert.Error(t, err)

	// Source data is untouched by normalization.
	assert.Equal(t, float32(16), arr.Data()[16])
}
