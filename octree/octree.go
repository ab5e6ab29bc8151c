// Package octree implements the 3D statistics octree used to voxelize point clouds and to find
// connected groups of occupied voxels.
package octree

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/colors"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/spatialtree"
)

// Node is a node of the statistics octree.
type Node = spatialtree.Node[spatialtree.Stats, *spatialtree.Stats]

// Voxel is the exported view of an occupied leaf.
type Voxel struct {
	Center r3.Vector
	Radius float64
	Group  int
	Stats  spatialtree.Stats
}

// Octree wraps a 3D statistics tree and keeps metadata about the registered points.
type Octree struct {
	logger golog.Logger
	tree   *spatialtree.Tree[spatialtree.Stats, *spatialtree.Stats]
	meta   pointcloud.MetaData
}

// New creates an empty octree whose leaves have the given half width.
func New(detailLevel float64, logger golog.Logger) (*Octree, error) {
	tree, err := spatialtree.NewOctree[spatialtree.Stats](detailLevel)
	if err != nil {
		return nil, err
	}
	return &Octree{
		logger: logger,
		tree:   tree,
		meta:   pointcloud.NewMetaData(),
	}, nil
}

// FromPoints creates an octree holding all given points.
func FromPoints(points []pointcloud.Point, detailLevel float64, logger golog.Logger) (*Octree, error) {
	octree, err := New(detailLevel, logger)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if err := octree.Register(p); err != nil {
			return nil, err
		}
	}
	logger.Debugw("built octree", "points", len(points), "voxels", octree.Size())
	return octree, nil
}

// Register adds a point. Its value is recorded when it has one, otherwise its elevation.
func (octree *Octree) Register(p pointcloud.Point) error {
	value := p.Position.Z
	if p.HasValue {
		value = p.Value
	}
	if err := octree.tree.Register(p.Position, value); err != nil {
		return err
	}
	octree.meta.Merge(p)
	return nil
}

// Size returns the number of occupied voxels.
func (octree *Octree) Size() int {
	return octree.tree.LeafCount()
}

// MetaData returns the metadata of all registered points.
func (octree *Octree) MetaData() pointcloud.MetaData {
	return octree.meta
}

// DetailLevel returns the half width of the voxels.
func (octree *Octree) DetailLevel() float64 {
	return octree.tree.DetailLevel()
}

// Root returns the root node.
func (octree *Octree) Root() *Node {
	return octree.tree.Root()
}

// Leaf returns the voxel containing p.
func (octree *Octree) Leaf(p r3.Vector) (*Node, bool) {
	return octree.tree.Leaf(p)
}

// Group assigns connected voxels to groups and returns the number of groups.
func (octree *Octree) Group() int {
	count := octree.tree.GroupLeaves(nil)
	octree.logger.Debugw("grouped voxels", "voxels", octree.Size(), "groups", count)
	return count
}

// GroupCount returns the number of groups of the last Group call.
func (octree *Octree) GroupCount() int {
	return octree.tree.GroupCount()
}

// GroupSizes returns the number of voxels in every group.
func (octree *Octree) GroupSizes() []int {
	return octree.tree.GroupSizes()
}

// Voxels returns every occupied voxel, sorted by center so that exports are stable. Voxels
// of an ungrouped tree carry group -1.
func (octree *Octree) Voxels() []Voxel {
	voxels := make([]Voxel, 0, octree.Size())
	octree.tree.IterateLeaves(func(n *Node) bool {
		group, ok := n.GroupID()
		if !ok {
			group = -1
		}
		voxels = append(voxels, Voxel{
			Center: n.Center(),
			Radius: n.Radius(),
			Group:  group,
			Stats:  *n.Payload(),
		})
		return true
	})
	sort.Slice(voxels, func(i, j int) bool {
		return less(voxels[i].Center, voxels[j].Center)
	})
	return voxels
}

// ColoredVoxels returns the center of every voxel colored by its group. Voxels without a
// group are colored neutral gray.
func (octree *Octree) ColoredVoxels() []pointcloud.ColoredPoint {
	voxels := octree.Voxels()
	points := make([]pointcloud.ColoredPoint, 0, len(voxels))
	for _, v := range voxels {
		c := colors.Ungrouped
		if v.Group >= 0 {
			c = colors.GroupColor(v.Group)
		}
		points = append(points, pointcloud.ColoredPoint{Position: v.Center, Color: c})
	}
	return points
}

// less orders by Z first so that exported voxels go bottom to top.
func less(a, b r3.Vector) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
