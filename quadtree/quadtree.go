// Package quadtree implements the 2D elevation quadtree: points are bucketed by X and Y while
// their elevation is aggregated on every level, which allows minimum and maximum queries over
// windows of different sizes and rendering of elevation images.
package quadtree

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/spatialtree"
)

// Node is a node of the elevation quadtree.
type Node = spatialtree.Node[spatialtree.Stats, *spatialtree.Stats]

// Quadtree wraps a 2D statistics tree whose node values are elevations.
type Quadtree struct {
	logger golog.Logger
	tree   *spatialtree.Tree[spatialtree.Stats, *spatialtree.Stats]
	meta   pointcloud.MetaData
}

// New creates an empty quadtree whose leaves have the given half width.
func New(detailLevel float64, logger golog.Logger) (*Quadtree, error) {
	tree, err := spatialtree.NewQuadtree[spatialtree.Stats](detailLevel)
	if err != nil {
		return nil, err
	}
	return &Quadtree{
		logger: logger,
		tree:   tree,
		meta:   pointcloud.NewMetaData(),
	}, nil
}

// FromPoints creates a quadtree of the elevations of all given points.
func FromPoints(points []pointcloud.Point, detailLevel float64, logger golog.Logger) (*Quadtree, error) {
	quad, err := New(detailLevel, logger)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if err := quad.Register(p.Position.X, p.Position.Y, p.Position.Z); err != nil {
			return nil, err
		}
	}
	logger.Debugw("built quadtree", "points", len(points), "cells", quad.Size())
	return quad, nil
}

// Register adds an elevation sample at x, y.
func (quad *Quadtree) Register(x, y, elevation float64) error {
	p := r3.Vector{X: x, Y: y, Z: elevation}
	if err := quad.tree.Register(p, elevation); err != nil {
		return err
	}
	quad.meta.Merge(pointcloud.Point{Position: p})
	return nil
}

// Size returns the number of occupied cells.
func (quad *Quadtree) Size() int {
	return quad.tree.LeafCount()
}

// DetailLevel returns the half width of the cells.
func (quad *Quadtree) DetailLevel() float64 {
	return quad.tree.DetailLevel()
}

// MetaData returns the metadata of all registered samples.
func (quad *Quadtree) MetaData() pointcloud.MetaData {
	return quad.meta
}

// Root returns the root node.
func (quad *Quadtree) Root() *Node {
	return quad.tree.Root()
}

// Leaf returns the cell containing x, y.
func (quad *Quadtree) Leaf(x, y float64) (*Node, bool) {
	return quad.tree.Leaf(r3.Vector{X: x, Y: y})
}

// LeafAt returns the node containing x, y at the first level whose half width is at most
// detailLevel.
func (quad *Quadtree) LeafAt(x, y, detailLevel float64) (*Node, bool) {
	return quad.tree.LeafAt(r3.Vector{X: x, Y: y}, detailLevel)
}

// MinElevation returns the lowest elevation of the aligned tree node that contains x, y and
// has the largest half width not exceeding window. The node is fixed by the tree's grid and
// is in general not centered on x, y, so a point near its edge sees only one side.
func (quad *Quadtree) MinElevation(x, y, window float64) (float64, bool) {
	n, ok := quad.LeafAt(x, y, window)
	if !ok {
		return 0, false
	}
	return n.Payload().MinValue, true
}

// MaxElevation returns the highest elevation of the aligned tree node that contains x, y and
// has the largest half width not exceeding window. The node is fixed by the tree's grid and
// is in general not centered on x, y, so a point near its edge sees only one side.
func (quad *Quadtree) MaxElevation(x, y, window float64) (float64, bool) {
	n, ok := quad.LeafAt(x, y, window)
	if !ok {
		return 0, false
	}
	return n.Payload().MaxValue, true
}
