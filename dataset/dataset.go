// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset provides the public API for streaming patches out of
// directories of TIFF stacks.
//
// A Dataset is constructed once from a Config; construction discovers the
// input files and, when no statistics are supplied, estimates the dataset
// mean and standard deviation in a streaming pass. Iterators then stream
// normalized patches one file at a time, so memory use is bounded by a
// single image volume regardless of dataset size.
//
// Example:
//
//	ds, err := dataset.New(dataset.Config{
//		DataDir:   "data/train",
//		Axes:      "SYX",
//		PatchSize: []int{64, 64},
//		Mode:      tiling.Random{Seed: 42},
//	})
//	if err != nil {
//		return err
//	}
//	it := ds.Iter(dataset.WorkerInfo{})
//	defer it.Close()
//	for it.Next() {
//		train(it.Patch())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
package dataset

import (
	"github.com/careamics-ml/careamics/internal/dataset"
	"github.com/careamics-ml/careamics/internal/tensor"
)

// Errors returned by dataset construction and iteration.
var (
	ErrNoInputFiles = dataset.ErrNoInputFiles
	ErrClosed       = dataset.ErrClosed
)

// ReadError wraps a failure to read or decode one input file.
type ReadError = dataset.ReadError

// Stats holds the dataset mean and standard deviation used for
// normalization.
type Stats = dataset.Stats

// Config specifies a dataset: where its files live, how their axes are
// laid out, and how patches are extracted from them.
type Config = dataset.Config

// WorkerInfo identifies one worker out of Count parallel loader workers.
// The zero value means a single worker that sees every file.
type WorkerInfo = dataset.WorkerInfo

// Dataset streams patches from a directory of TIFF stacks.
type Dataset = dataset.Dataset

// Iterator streams patches for one worker. It is not safe for concurrent
// use; give each worker its own iterator.
type Iterator = dataset.Iterator

// PredictionSet serves whole normalized samples of an in-memory volume
// for inference.
type PredictionSet = dataset.PredictionSet

// New builds a dataset from cfg, discovering input files and estimating
// normalization statistics when cfg.Stats is nil.
func New(cfg Config) (*Dataset, error) {
	return dataset.New(cfg)
}

// ListFiles returns the sorted TIFF files under dir, searched recursively.
func ListFiles(dir string) ([]string, error) {
	return dataset.ListFiles(dir)
}

// EstimateStats computes the dataset mean and standard deviation over the
// given files, reading one file at a time.
func EstimateStats(files []string) (Stats, error) {
	return dataset.EstimateStats(files)
}

// NewPredictionSet canonicalizes arr according to the axis descriptor and
// wraps it for sample-by-sample normalized access.
func NewPredictionSet(arr *tensor.Array, axesLayout string, stats Stats) (*PredictionSet, error) {
	return dataset.NewPredictionSet(arr, axesLayout, stats)
}
