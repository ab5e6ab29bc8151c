// Package config defines the structures to configure the LiDAR analysis pipelines.
package config

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/building"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/quadtree"
)

// A Config describes the configuration of all analysis pipelines.
type Config struct {
	ConfigFilePath string `json:"-"`

	// Input is the point cloud file read when no input is given on the command line.
	Input     string           `json:"input,omitempty"`
	Building  building.Options `json:"building"`
	Surface   SurfaceConfig    `json:"surface"`
	Elevation ElevationConfig  `json:"elevation"`
}

// SurfaceConfig configures planar surface detection.
type SurfaceConfig struct {
	DetailLevel float64 `json:"detail_level"`
	// MaxQuotient is the largest eigen value quotient a voxel may have to count as planar.
	MaxQuotient float64 `json:"max_quotient"`
}

// ElevationConfig configures elevation image rendering.
type ElevationConfig struct {
	DetailLevel float64 `json:"detail_level"`
	Mode        string  `json:"mode"`
}

// Default returns the configuration used for every omitted value.
func Default() Config {
	return Config{
		Building: building.DefaultOptions(),
		Surface: SurfaceConfig{
			DetailLevel: 0.5,
			MaxQuotient: 0.05,
		},
		Elevation: ElevationConfig{
			DetailLevel: 0.5,
			Mode:        quadtree.MinElevation.String(),
		},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	return multierr.Combine(
		c.Building.Validate("building"),
		c.Surface.Validate("surface"),
		c.Elevation.Validate("elevation"),
	)
}

// Validate ensures all parts of the config are valid.
func (c *SurfaceConfig) Validate(path string) error {
	if c.DetailLevel == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "detail_level")
	}
	if c.DetailLevel < 0 {
		return utils.NewConfigValidationError(path, errors.New("detail_level must be positive"))
	}
	if c.MaxQuotient <= 0 || c.MaxQuotient > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_quotient (%v) must be in (0, 1]", c.MaxQuotient))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *ElevationConfig) Validate(path string) error {
	if c.DetailLevel == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "detail_level")
	}
	if c.DetailLevel < 0 {
		return utils.NewConfigValidationError(path, errors.New("detail_level must be positive"))
	}
	if _, err := quadtree.ParseImageMode(c.Mode); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// ImageMode returns the parsed image mode.
func (c *ElevationConfig) ImageMode() (quadtree.ImageMode, error) {
	return quadtree.ParseImageMode(c.Mode)
}
