// Package building detects buildings in airborne LiDAR scans. Points close to the local ground
// are removed and the remaining points are voxelized; connected groups of voxels that are
// large enough are reported as buildings.
package building

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/colors"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/octree"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/quadtree"
)

// GroupSummary describes a connected group of voxels.
type GroupSummary struct {
	ID       int
	Voxels   int
	Points   int
	Min      r3.Vector
	Max      r3.Vector
	Rejected bool
}

// Height returns the vertical extent of the group's points.
func (g GroupSummary) Height() float64 {
	return g.Max.Z - g.Min.Z
}

// Result is the outcome of Detect.
type Result struct {
	Octree *octree.Octree
	// Kept is the number of points above the ground cut.
	Kept int
	// Groups are ordered by id.
	Groups []GroupSummary
}

// Summary holds statistics over the voxel counts of the accepted groups.
type Summary struct {
	Buildings    int
	MeanVoxels   float64
	MedianVoxels float64
	P90Voxels    float64
	MaxVoxels    float64
}

// Detect runs building detection on the given points.
func Detect(points []pointcloud.Point, opts Options, logger golog.Logger) (*Result, error) {
	if err := opts.Validate("building"); err != nil {
		return nil, err
	}

	ground, err := quadtree.FromPoints(points, opts.DetailLevel, logger)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build elevation quadtree")
	}

	kept := make([]pointcloud.Point, 0, len(points))
	for _, p := range points {
		floor, ok := ground.MinElevation(p.Position.X, p.Position.Y, opts.MinSearchDetailLevel)
		if !ok {
			return nil, errors.Errorf("no ground elevation below registered point %v", p.Position)
		}
		if p.Position.Z >= floor+opts.MinSearchCutUntilAbove {
			kept = append(kept, p)
		}
	}
	logger.Debugw("cut points near the ground", "points", len(points), "kept", len(kept))

	voxels, err := octree.FromPoints(kept, opts.DetailLevel, logger)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build voxel octree")
	}
	voxels.Group()

	result := &Result{Octree: voxels, Kept: len(kept), Groups: summarize(voxels, opts.MinGroupVoxels)}
	logger.Infow("detected buildings",
		"points", len(points),
		"kept", len(kept),
		"voxels", voxels.Size(),
		"groups", len(result.Groups),
		"buildings", len(result.Buildings()))
	return result, nil
}

func summarize(voxels *octree.Octree, minGroupVoxels int) []GroupSummary {
	groups := make([]GroupSummary, voxels.GroupCount())
	for i := range groups {
		groups[i].ID = i
	}
	for _, v := range voxels.Voxels() {
		g := &groups[v.Group]
		if g.Voxels == 0 {
			g.Min, g.Max = v.Stats.Min, v.Stats.Max
		}
		g.Voxels++
		g.Points += v.Stats.Count
		g.Min = r3.Vector{X: min(g.Min.X, v.Stats.Min.X), Y: min(g.Min.Y, v.Stats.Min.Y), Z: min(g.Min.Z, v.Stats.Min.Z)}
		g.Max = r3.Vector{X: max(g.Max.X, v.Stats.Max.X), Y: max(g.Max.Y, v.Stats.Max.Y), Z: max(g.Max.Z, v.Stats.Max.Z)}
	}
	for i := range groups {
		groups[i].Rejected = groups[i].Voxels < minGroupVoxels
	}
	return groups
}

// Buildings returns the groups that were not rejected, largest first.
func (r *Result) Buildings() []GroupSummary {
	var buildings []GroupSummary
	for _, g := range r.Groups {
		if !g.Rejected {
			buildings = append(buildings, g)
		}
	}
	sort.SliceStable(buildings, func(i, j int) bool {
		return buildings[i].Voxels > buildings[j].Voxels
	})
	return buildings
}

// ColoredVoxels returns the voxel centers of all buildings, colored per building.
func (r *Result) ColoredVoxels() []pointcloud.ColoredPoint {
	rank := map[int]int{}
	for i, b := range r.Buildings() {
		rank[b.ID] = i
	}
	var points []pointcloud.ColoredPoint
	for _, v := range r.Octree.Voxels() {
		i, ok := rank[v.Group]
		if !ok {
			continue
		}
		points = append(points, pointcloud.ColoredPoint{Position: v.Center, Color: colors.GroupColor(i)})
	}
	return points
}

// Summary computes statistics over the voxel counts of the buildings.
func (r *Result) Summary() (Summary, error) {
	buildings := r.Buildings()
	if len(buildings) == 0 {
		return Summary{}, nil
	}
	counts := make(stats.Float64Data, 0, len(buildings))
	for _, b := range buildings {
		counts = append(counts, float64(b.Voxels))
	}

	summary := Summary{Buildings: len(buildings)}
	var err error
	if summary.MeanVoxels, err = counts.Mean(); err != nil {
		return Summary{}, err
	}
	if summary.MedianVoxels, err = counts.Median(); err != nil {
		return Summary{}, err
	}
	if summary.P90Voxels, err = counts.PercentileNearestRank(90); err != nil {
		return Summary{}, err
	}
	if summary.MaxVoxels, err = counts.Max(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
