// Package pca analyzes the shape of the points inside octree voxels with a principal
// component analysis and finds connected planar surfaces.
package pca

import (
	"github.com/golang/geo/r3"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/spatialtree"
)

// Voxel is an octree payload that keeps the raw points of leaves in addition to the plain
// statistics, so that each leaf can be analyzed after registration. The points are kept until
// ClearInputData is called; the statistics for the lifetime of the tree.
type Voxel struct {
	spatialtree.Stats

	points []r3.Vector

	analyzed bool
	shape    Shape
	hasShape bool
}

// Node is a node of a PCA octree.
type Node = spatialtree.Node[Voxel, *Voxel]

// Tree is an octree with Voxel payloads.
type Tree = spatialtree.Tree[Voxel, *Voxel]

// NewTree returns an empty PCA octree whose leaves have the given half width.
func NewTree(detailLevel float64) (*Tree, error) {
	return spatialtree.NewOctree[Voxel](detailLevel)
}

// Record updates the statistics and, on leaves, keeps the point.
func (v *Voxel) Record(p r3.Vector, value float64, leaf bool) {
	v.Stats.Record(p, value, leaf)
	if leaf {
		v.points = append(v.points, p)
	}
}

// Inherit takes over the statistics of child. Raw points only ever live on leaves.
func (v *Voxel) Inherit(child *Voxel) {
	v.Stats = child.Stats
}

// Points returns the raw points registered in the leaf. It is empty for interior nodes and
// after ClearInputData.
func (v *Voxel) Points() []r3.Vector {
	return v.points
}

// ClearInputData drops the raw points.
func (v *Voxel) ClearInputData() {
	v.points = nil
}

// SetShape stores the eigen value ratios of the leaf and marks it analyzed.
func (v *Voxel) SetShape(shape Shape) {
	v.analyzed = true
	v.shape = shape
	v.hasShape = true
}

// SetDegenerate marks the leaf analyzed without usable eigen values.
func (v *Voxel) SetDegenerate() {
	v.analyzed = true
	v.shape = Shape{}
	v.hasShape = false
}

// Quotient returns the eigen value quotient. The second return is false if the leaf has not
// been analyzed or its points were degenerate.
func (v *Voxel) Quotient() (float64, bool) {
	return v.shape.Quotient, v.hasShape
}

// Shape returns all eigen value ratios of the leaf, with the same second return as Quotient.
func (v *Voxel) Shape() (Shape, bool) {
	return v.shape, v.hasShape
}

// Analyzed returns whether the leaf went through the analysis, degenerate or not.
func (v *Voxel) Analyzed() bool {
	return v.analyzed
}
