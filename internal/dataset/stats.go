package dataset

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/careamics-ml/careamics/internal/tiffio"
)

// Stats holds the dataset-wide normalization statistics.
type Stats struct {
	Mean float64
	Std  float64
}

// EstimateStats streams over the files once and returns the average of the
// per-image means and the average of the per-image population standard
// deviations.
//
// This is not the pooled mean/std over all pixels. The formula is part of
// the normalization contract: models are trained against it, so replacing
// it with a pooled estimate would silently shift every normalized value.
//
// Only one image is held in memory at a time. An empty file list is
// ErrNoInputFiles.
func EstimateStats(files []string) (Stats, error) {
	if len(files) == 0 {
		return Stats{}, ErrNoInputFiles
	}

	var meanSum, stdSum float64
	for _, path := range files {
		arr, err := tiffio.Read(path)
		if err != nil {
			readErr := &ReadError{Path: path, Err: err}
			slog.Error("statistics pass failed", "file", path, "error", err)
			return Stats{}, readErr
		}

		pixels := make([]float64, arr.NumElements())
		for i, v := range arr.Data() {
			pixels[i] = float64(v)
		}
		meanSum += stat.Mean(pixels, nil)
		stdSum += stat.PopStdDev(pixels, nil)
	}

	s := Stats{
		Mean: meanSum / float64(len(files)),
		Std:  stdSum / float64(len(files)),
	}
	slog.Info("computed dataset statistics", "files", len(files), "mean", s.Mean, "std", s.Std)
	return s, nil
}
