package pca

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/colors"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
)

// Surface is a connected set of planar voxels.
type Surface struct {
	// ID is the group id of the surface's voxels in the tree.
	ID     int
	Voxels int
	Points int
	Min    r3.Vector
	Max    r3.Vector
}

// SurfaceResult is the outcome of DetectSurfaces.
type SurfaceResult struct {
	Tree        *Tree
	MaxQuotient float64
	Analysis    AnalysisStats
	// Surfaces are sorted by decreasing voxel count.
	Surfaces []Surface
}

// MinPlanarSpread is the smallest ratio of the middle to the largest eigen value a planar
// leaf needs. Points along a line have a quotient close to 0 as well but no spread.
const MinPlanarSpread = 0.05

// IsPlanar reports whether a leaf was analyzed with a quotient of at most maxQuotient and its
// points extend along two axes, so that linear scatters are not taken for planes.
func IsPlanar(n *Node, maxQuotient float64) bool {
	shape, ok := n.Payload().Shape()
	return ok && shape.Quotient <= maxQuotient && shape.Spread >= MinPlanarSpread
}

// DetectSurfaces voxelizes the points, analyzes every voxel and groups face adjacent voxels
// that are both planar. Voxels that are not planar never join a group, so only groups of
// planar voxels are reported as surfaces.
func DetectSurfaces(
	points []pointcloud.Point,
	detailLevel, maxQuotient float64,
	logger golog.Logger,
) (*SurfaceResult, error) {
	tree, err := NewTree(detailLevel)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if err := tree.Register(p.Position, p.Position.Z); err != nil {
			return nil, err
		}
	}

	analysis := Analyze(tree, Options{})
	tree.GroupLeaves(func(a, b *Node) bool {
		return IsPlanar(a, maxQuotient) && IsPlanar(b, maxQuotient)
	})

	byID := map[int]*Surface{}
	tree.IterateLeaves(func(n *Node) bool {
		if !IsPlanar(n, maxQuotient) {
			return true
		}
		id, _ := n.GroupID()
		stats := n.Payload().Stats
		s, ok := byID[id]
		if !ok {
			s = &Surface{ID: id, Min: stats.Min, Max: stats.Max}
			byID[id] = s
		}
		s.Voxels++
		s.Points += stats.Count
		s.Min = minVector(s.Min, stats.Min)
		s.Max = maxVector(s.Max, stats.Max)
		return true
	})

	surfaces := make([]Surface, 0, len(byID))
	for _, s := range byID {
		surfaces = append(surfaces, *s)
	}
	sort.Slice(surfaces, func(i, j int) bool {
		if surfaces[i].Voxels != surfaces[j].Voxels {
			return surfaces[i].Voxels > surfaces[j].Voxels
		}
		return surfaces[i].ID < surfaces[j].ID
	})

	logger.Infow("detected surfaces",
		"points", len(points),
		"voxels", analysis.Leaves,
		"degenerate", analysis.Degenerate,
		"surfaces", len(surfaces))
	return &SurfaceResult{Tree: tree, MaxQuotient: maxQuotient, Analysis: analysis, Surfaces: surfaces}, nil
}

// ColoredVoxels returns the center of every planar voxel colored by the rank of its surface.
func (r *SurfaceResult) ColoredVoxels() []pointcloud.ColoredPoint {
	rank := make(map[int]int, len(r.Surfaces))
	for i, s := range r.Surfaces {
		rank[s.ID] = i
	}
	var points []pointcloud.ColoredPoint
	r.Tree.IterateLeaves(func(n *Node) bool {
		if !IsPlanar(n, r.MaxQuotient) {
			return true
		}
		id, _ := n.GroupID()
		points = append(points, pointcloud.ColoredPoint{Position: n.Center(), Color: colors.GroupColor(rank[id])})
		return true
	})
	return points
}

func minVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

func maxVector(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}
