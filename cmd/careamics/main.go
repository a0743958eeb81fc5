// Package main provides the careamics command line tool.
//
// Subcommands:
//
//	stats      estimate normalization statistics over a directory of TIFFs
//	patches    stream patches from a dataset and report what was produced
//	roundtrip  tile one TIFF, stitch it back and verify the result
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/careamics-ml/careamics/axes"
	"github.com/careamics-ml/careamics/config"
	"github.com/careamics-ml/careamics/dataset"
	"github.com/careamics-ml/careamics/internal/tiffio"
	"github.com/careamics-ml/careamics/tiling"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "stats":
		err = runStats(os.Args[2:])
	case "patches":
		err = runPatches(os.Args[2:])
	case "roundtrip":
		err = runRoundtrip(os.Args[2:])
	case "version":
		fmt.Printf("careamics %s\n", version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: careamics <stats|patches|roundtrip|version> [flags]")
}

// parseInts parses a comma separated list like "64,64".
func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	input := fs.String("input", "", "directory searched recursively for TIFF files")
	fs.Parse(args)
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("-input is required")
	}

	files, err := dataset.ListFiles(*input)
	if err != nil {
		return err
	}
	stats, err := dataset.EstimateStats(files)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d\nmean:  %g\nstd:   %g\n", len(files), stats.Mean, stats.Std)
	return nil
}

func runPatches(args []string) error {
	fs := flag.NewFlagSet("patches", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML experiment configuration")
	input := fs.String("input", "", "data directory (overrides the config)")
	output := fs.String("output", "", "write each patch as a TIFF file into this directory")
	limit := fs.Int("limit", 0, "stop after this many patches (0 = no limit)")
	fs.Parse(args)

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	if *input != "" {
		cfg.Data.Dir = *input
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ds, err := dataset.New(cfg.DatasetConfig())
	if err != nil {
		return err
	}
	stats := ds.Stats()
	slog.Info("dataset ready",
		"files", len(ds.Files()), "mean", stats.Mean, "std", stats.Std)

	if *output != "" {
		if err := os.MkdirAll(*output, 0o755); err != nil {
			return err
		}
	}

	it := ds.Iter(dataset.WorkerInfo{})
	defer it.Close()
	count := 0
	for it.Next() {
		p := it.Patch()
		if count == 0 {
			fmt.Printf("patch shape: %v\n", p.Data.Shape())
		}
		if *output != "" {
			// Single-channel patches are written as (Y, X) or (Z, Y, X).
			out := p.Data
			if out.Shape()[0] == 1 {
				out = out.Squeeze(0)
			}
			path := filepath.Join(*output, fmt.Sprintf("patch_%05d.tif", count))
			if err := tiffio.Write(path, out); err != nil {
				return err
			}
		}
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Printf("patches: %d\n", count)
	return nil
}

func runRoundtrip(args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	input := fs.String("input", "", "TIFF file to tile and stitch")
	output := fs.String("output", "", "write the stitched volume to this TIFF file")
	axesFlag := fs.String("axes", "YX", "axis descriptor of the input file")
	sizeFlag := fs.String("size", "64,64", "tile size, comma separated")
	overlapFlag := fs.String("overlap", "", "tile overlap, comma separated (default: half the tile size)")
	fs.Parse(args)
	if *input == "" {
		fs.Usage()
		return fmt.Errorf("-input is required")
	}

	size, err := parseInts(*sizeFlag)
	if err != nil {
		return err
	}
	overlap, err := parseInts(*overlapFlag)
	if err != nil {
		return err
	}
	if overlap == nil {
		overlap = make([]int, len(size))
		for i, s := range size {
			overlap[i] = s / 2
		}
	}

	arr, err := tiffio.Read(*input)
	if err != nil {
		return err
	}
	img, err := axes.Canonicalize(arr, *axesFlag)
	if err != nil {
		return err
	}

	it, err := tiling.Extract(img, size, tiling.Predict{Overlap: overlap})
	if err != nil {
		return err
	}
	var patches []*tiling.Patch
	for it.Next() {
		patches = append(patches, it.Patch())
	}
	stitched, err := tiling.Stitch(patches, img.Shape())
	if err != nil {
		return err
	}
	if !stitched.Equal(img) {
		return fmt.Errorf("stitched volume differs from input")
	}
	fmt.Printf("tiles: %d\nround trip exact over shape %v\n", len(patches), img.Shape())

	if *output != "" {
		if err := tiffio.Write(*output, arr); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *output)
	}
	return nil
}
