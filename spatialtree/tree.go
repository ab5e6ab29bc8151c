// Package spatialtree implements dynamically growing, power of two aligned spatial trees
// that bucket points into fixed size leaves: an octree for 3D and a quadtree for 2D data.
//
// A tree is created with a detail level, the half width of its leaves. Registering a point
// grows the root until it covers the point and then walks, creating nodes on demand, down to
// the leaf holding the point. Leaves are centered on multiples of the leaf width, so the leaf
// that contains the origin is centered at the origin.
//
// Trees are not safe for concurrent use.
package spatialtree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidDetailLevel is returned when a tree is constructed with a detail level that
	// is not a positive finite number.
	ErrInvalidDetailLevel = errors.New("detail level must be positive and finite")

	// ErrInvalidPoint is returned when a point with a NaN or infinite coordinate, or one too
	// far from the origin to be addressed on the leaf grid, is registered.
	ErrInvalidPoint = errors.New("point coordinates must be finite and within range of the leaf grid")
)

// maxLevel bounds the height of the root so that every grid line stays exactly
// representable as a float64.
const maxLevel = 52

// Tree is a spatial tree over D = 2 or 3 axes with payload T on every node.
type Tree[T any, PT PayloadPtr[T]] struct {
	root        *Node[T, PT]
	detailLevel float64
	dims        int

	nodes  int
	leaves int

	// groups maps group ids to their final group after a grouping pass.
	groups []int
}

// New returns an empty tree over dims axes whose leaves have the given half width.
func New[T any, PT PayloadPtr[T]](dims int, detailLevel float64) (*Tree[T, PT], error) {
	if dims != 2 && dims != 3 {
		return nil, errors.Errorf("unsupported number of dimensions %d", dims)
	}
	if !(detailLevel > 0) || math.IsInf(math.Ldexp(detailLevel, maxLevel+1), 1) {
		return nil, errors.Wrapf(ErrInvalidDetailLevel, "got %v", detailLevel)
	}

	// The root starts leaf sized, offset by one radius so that after the first expansion
	// its children sit on the leaf grid around the origin.
	grid := [3]int64{1, 1}
	if dims == 3 {
		grid[2] = 1
	}
	return &Tree[T, PT]{
		root:        newNode[T, PT](grid, 0, detailLevel, dims),
		detailLevel: detailLevel,
		dims:        dims,
		nodes:       1,
	}, nil
}

// NewOctree returns an empty 3D tree.
func NewOctree[T any, PT PayloadPtr[T]](detailLevel float64) (*Tree[T, PT], error) {
	return New[T, PT](3, detailLevel)
}

// NewQuadtree returns an empty 2D tree. Points are routed by X and Y only.
func NewQuadtree[T any, PT PayloadPtr[T]](detailLevel float64) (*Tree[T, PT], error) {
	return New[T, PT](2, detailLevel)
}

// Root returns the root node. The root is expanded in place so the returned node remains
// the root for the lifetime of the tree.
func (t *Tree[T, PT]) Root() *Node[T, PT] {
	return t.root
}

// DetailLevel returns the half width of the leaves.
func (t *Tree[T, PT]) DetailLevel() float64 {
	return t.detailLevel
}

// Dims returns the number of axes the tree partitions.
func (t *Tree[T, PT]) Dims() int {
	return t.dims
}

// LeafCount returns the number of leaves created so far.
func (t *Tree[T, PT]) LeafCount() int {
	return t.leaves
}

// NodeCount returns the number of nodes in the tree including the root.
func (t *Tree[T, PT]) NodeCount() int {
	return t.nodes
}

// IsLeaf returns whether n is at the tree's detail level.
func (t *Tree[T, PT]) IsLeaf(n *Node[T, PT]) bool {
	return n.level == 0
}

// Register adds a point with an associated scalar value. The root is expanded until it
// contains the point, then every node on the path down to the point's leaf records it.
func (t *Tree[T, PT]) Register(p r3.Vector, value float64) error {
	limit := math.Ldexp(t.detailLevel, maxLevel-1)
	for i := 0; i < t.dims; i++ {
		v := axis(p, i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidPoint, "got %v", p)
		}
		if math.Abs(v) >= limit {
			return errors.Wrapf(ErrInvalidPoint, "%v is out of range for detail level %v", p, t.detailLevel)
		}
	}

	for !t.root.FitsIn(p) || t.root.level == 0 {
		t.expandRoot()
	}

	node := t.root
	for {
		leaf := t.IsLeaf(node)
		node.record(p, value, leaf)
		if leaf {
			return nil
		}
		child, created := node.touchChild(node.FittingChildIndex(p))
		if created {
			t.nodes++
			if t.IsLeaf(child) {
				t.leaves++
			}
		}
		node = child
	}
}

func (t *Tree[T, PT]) expandRoot() {
	for _, c := range t.root.children {
		if c != nil {
			t.nodes++
		}
	}
	t.root.Expand()
}

// Leaf returns the leaf containing p, if any point was registered there.
func (t *Tree[T, PT]) Leaf(p r3.Vector) (*Node[T, PT], bool) {
	return t.LeafAt(p, t.detailLevel)
}

// LeafAt descends towards p but stops at the first node whose radius is at most
// detailLevel. This allows querying a coarser grid than the leaves, where interior payloads
// aggregate all points below them. Levels finer than the tree's leaves are clamped to the
// leaf level.
func (t *Tree[T, PT]) LeafAt(p r3.Vector, detailLevel float64) (*Node[T, PT], bool) {
	if detailLevel < t.detailLevel {
		detailLevel = t.detailLevel
	}
	if t.leaves == 0 || !t.root.FitsIn(p) {
		return nil, false
	}
	node := t.root
	for node.radius > detailLevel {
		child := node.Child(node.FittingChildIndex(p))
		if child == nil {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Walk visits every node in depth first order, parents before children and children in
// index order. Returning false from fn stops the walk.
func (t *Tree[T, PT]) Walk(fn func(n *Node[T, PT]) bool) {
	walk(t.root, fn)
}

func walk[T any, PT PayloadPtr[T]](n *Node[T, PT], fn func(n *Node[T, PT]) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if c != nil && !walk(c, fn) {
			return false
		}
	}
	return true
}

// IterateLeaves visits every leaf in child index order. Returning false from fn stops the
// iteration.
func (t *Tree[T, PT]) IterateLeaves(fn func(n *Node[T, PT]) bool) {
	if t.leaves == 0 {
		return
	}
	t.Walk(func(n *Node[T, PT]) bool {
		if t.IsLeaf(n) {
			return fn(n)
		}
		return true
	})
}

// Leaves returns all leaves in child index order.
func (t *Tree[T, PT]) Leaves() []*Node[T, PT] {
	leaves := make([]*Node[T, PT], 0, t.leaves)
	t.IterateLeaves(func(n *Node[T, PT]) bool {
		leaves = append(leaves, n)
		return true
	})
	return leaves
}
