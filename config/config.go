// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads experiment configurations from YAML files and maps
// them onto dataset and tiling settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/careamics-ml/careamics/dataset"
	"github.com/careamics-ml/careamics/tiling"
	"github.com/careamics-ml/careamics/transforms"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is an experiment configuration as loaded from YAML.
type Config struct {
	// Data describes the input files and their axis layout.
	Data struct {
		// Dir is the directory searched recursively for TIFF files.
		Dir string `yaml:"dir"`

		// Axes is the axis descriptor of every file, for example "SYX".
		Axes string `yaml:"axes"`

		// Mean and Std override the streaming statistics estimate when
		// both are set. Std must be positive when given.
		Mean *float64 `yaml:"mean,omitempty"`
		Std  *float64 `yaml:"std,omitempty"`
	} `yaml:"data"`

	// Patching selects the extraction mode and patch geometry.
	Patching struct {
		// Mode is "sequential", "random" or "predict".
		Mode string `yaml:"mode"`

		// Size is the spatial patch size, ([Z,] Y, X).
		Size []int `yaml:"size"`

		// PerSample is the number of random draws per sample; 0 means
		// one draw per sequential tile.
		PerSample int `yaml:"perSample,omitempty"`

		// Seed makes random extraction restartable.
		Seed int64 `yaml:"seed,omitempty"`

		// Overlap is the per-axis tile overlap in predict mode.
		Overlap []int `yaml:"overlap,omitempty"`
	} `yaml:"patching"`

	// Augmentation enables the training-time transforms.
	Augmentation struct {
		Flip     bool `yaml:"flip"`
		Rotate90 bool `yaml:"rotate90"`

		// N2VMasking enables Noise2Void pixel manipulation.
		N2VMasking bool `yaml:"n2vMasking"`

		// Seed drives the augmentation random streams.
		Seed int64 `yaml:"seed,omitempty"`
	} `yaml:"augmentation"`
}

// Default returns a configuration for 2D sequential patching with no
// augmentation.
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Axes = "YX"
	cfg.Patching.Mode = "sequential"
	cfg.Patching.Size = []int{64, 64}
	return cfg
}

// Load reads a YAML configuration from path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks cross-field consistency. Geometry against actual image
// extents is checked later, at extraction time.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("%w: data.dir is required", ErrInvalidConfig)
	}
	if len(c.Patching.Size) < 2 || len(c.Patching.Size) > 3 {
		return fmt.Errorf("%w: patching.size must have 2 or 3 entries, got %d",
			ErrInvalidConfig, len(c.Patching.Size))
	}
	switch c.Patching.Mode {
	case "sequential", "random":
	case "predict":
		if len(c.Patching.Overlap) != len(c.Patching.Size) {
			return fmt.Errorf("%w: patching.overlap must match patching.size, got %d entries for %d axes",
				ErrInvalidConfig, len(c.Patching.Overlap), len(c.Patching.Size))
		}
	default:
		return fmt.Errorf("%w: unknown patching.mode %q", ErrInvalidConfig, c.Patching.Mode)
	}
	if (c.Data.Mean == nil) != (c.Data.Std == nil) {
		return fmt.Errorf("%w: data.mean and data.std must be set together", ErrInvalidConfig)
	}
	if c.Data.Std != nil && *c.Data.Std <= 0 {
		return fmt.Errorf("%w: data.std must be positive, got %g", ErrInvalidConfig, *c.Data.Std)
	}
	return nil
}

// Mode builds the tiling mode the configuration selects.
func (c *Config) Mode() tiling.Mode {
	switch c.Patching.Mode {
	case "random":
		return tiling.Random{PerSample: c.Patching.PerSample, Seed: c.Patching.Seed}
	case "predict":
		return tiling.Predict{Overlap: c.Patching.Overlap}
	default:
		return tiling.Sequential{}
	}
}

// DatasetConfig maps the configuration onto a dataset.Config.
func (c *Config) DatasetConfig() dataset.Config {
	cfg := dataset.Config{
		DataDir:   c.Data.Dir,
		Axes:      c.Data.Axes,
		PatchSize: c.Patching.Size,
		Mode:      c.Mode(),
	}
	if c.Data.Mean != nil && c.Data.Std != nil {
		cfg.Stats = &dataset.Stats{Mean: *c.Data.Mean, Std: *c.Data.Std}
	}
	if c.Augmentation.Flip {
		cfg.Transforms = append(cfg.Transforms, transforms.NewFlip(c.Augmentation.Seed))
	}
	if c.Augmentation.Rotate90 {
		cfg.Transforms = append(cfg.Transforms, transforms.NewRandomRotate90(c.Augmentation.Seed+1))
	}
	if c.Augmentation.N2VMasking {
		cfg.Transforms = append(cfg.Transforms, transforms.NewManipulateN2V(c.Augmentation.Seed+2))
	}
	return cfg
}
