package building

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Options configures building detection. Distances are in the units of the input points.
type Options struct {
	// DetailLevel is the half width of the quadtree cells and octree voxels.
	DetailLevel float64 `json:"detail_level"`
	// MinSearchDetailLevel is the half width of the window in which the ground elevation
	// below a point is searched.
	MinSearchDetailLevel float64 `json:"min_search_detail_level"`
	// MinSearchCutUntilAbove drops points less than this high above the ground.
	MinSearchCutUntilAbove float64 `json:"min_search_cut_until_above"`
	// MinGroupVoxels rejects groups with fewer voxels.
	MinGroupVoxels int `json:"min_group_voxels"`
}

// DefaultOptions returns options suited for airborne scans in meters.
func DefaultOptions() Options {
	return Options{
		DetailLevel:            0.5,
		MinSearchDetailLevel:   16,
		MinSearchCutUntilAbove: 3,
		MinGroupVoxels:         20,
	}
}

// Validate ensures all parts of the options are valid.
func (opts *Options) Validate(path string) error {
	if opts.DetailLevel == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "detail_level")
	}
	if opts.DetailLevel < 0 {
		return utils.NewConfigValidationError(path, errors.New("detail_level must be positive"))
	}
	if opts.MinSearchDetailLevel < opts.DetailLevel {
		return utils.NewConfigValidationError(path,
			errors.Errorf("min_search_detail_level (%v) cannot be lower than detail_level (%v)",
				opts.MinSearchDetailLevel, opts.DetailLevel))
	}
	if opts.MinSearchCutUntilAbove < 0 {
		return utils.NewConfigValidationError(path, errors.New("min_search_cut_until_above cannot be negative"))
	}
	if opts.MinGroupVoxels < 0 {
		return utils.NewConfigValidationError(path, errors.New("min_group_voxels cannot be negative"))
	}
	return nil
}
