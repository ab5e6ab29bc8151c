package spatialtree

import (
	"math"

	"github.com/golang/geo/r3"
)

// ungrouped marks a leaf that no grouping pass has assigned yet.
const ungrouped = -1

// Node is a single axis aligned cube (3D) or square (2D) of a Tree. It owns its children
// and carries a payload of type T.
//
// Positions are kept on an integer grid in units of the tree's detail level: a node at level
// k has half width unit*2^k and all of its edges lie on grid lines. Every bound is computed as
// float64(gridLine)*unit, so a parent's center and the shared edge of its children are the
// very same float and descent always agrees with FitsIn.
//
// Child indices enumerate the per-axis cases: bit i of an index is set when the child lies
// on the upper side of the center along axis i (X is bit 0, Y bit 1, Z bit 2). The same
// enumeration is used for descent, child creation and root expansion.
type Node[T any, PT PayloadPtr[T]] struct {
	grid     [3]int64
	level    int
	unit     float64
	dims     int
	center   r3.Vector
	radius   float64
	children []*Node[T, PT]
	data     T
	group    int
}

func newNode[T any, PT PayloadPtr[T]](grid [3]int64, level int, unit float64, dims int) *Node[T, PT] {
	n := &Node[T, PT]{
		grid:  grid,
		level: level,
		unit:  unit,
		dims:  dims,
		group: ungrouped,
	}
	for i := 0; i < dims; i++ {
		n.center = withAxis(n.center, i, float64(grid[i])*unit)
	}
	n.radius = math.Ldexp(unit, level)
	return n
}

// Center returns the center of the node.
func (n *Node[T, PT]) Center() r3.Vector {
	return n.center
}

// Radius returns the half width of the node.
func (n *Node[T, PT]) Radius() float64 {
	return n.radius
}

// Dims returns the number of axes the node partitions, 2 or 3.
func (n *Node[T, PT]) Dims() int {
	return n.dims
}

// Payload returns the node's payload. The pointer stays valid for the lifetime of the tree.
func (n *Node[T, PT]) Payload() PT {
	return PT(&n.data)
}

// Min returns the inclusive lower corner of the node. Axes the node does not partition
// keep the center coordinate.
func (n *Node[T, PT]) Min() r3.Vector {
	v := n.center
	for i := 0; i < n.dims; i++ {
		v = withAxis(v, i, n.edge(i, -1))
	}
	return v
}

// Max returns the exclusive upper corner of the node.
func (n *Node[T, PT]) Max() r3.Vector {
	v := n.center
	for i := 0; i < n.dims; i++ {
		v = withAxis(v, i, n.edge(i, 1))
	}
	return v
}

// edge returns the lower (side -1) or upper (side 1) edge of the node along axis a.
func (n *Node[T, PT]) edge(a int, side int64) float64 {
	return float64(n.grid[a]+side*n.span())*n.unit
}

// span is the half width of the node in grid units.
func (n *Node[T, PT]) span() int64 {
	return int64(1) << n.level
}

// GroupID returns the group the leaf was assigned by the last grouping pass. The second
// return is false if the node has not been grouped.
func (n *Node[T, PT]) GroupID() (int, bool) {
	if n.group == ungrouped {
		return 0, false
	}
	return n.group, true
}

// Child returns the child at the given index or nil if it was never created.
func (n *Node[T, PT]) Child(index int) *Node[T, PT] {
	if n.children == nil {
		return nil
	}
	return n.children[index]
}

// HasChildren returns whether any child has been created.
func (n *Node[T, PT]) HasChildren() bool {
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

// FitsIn returns whether the point lies within the node. The lower edge of every axis is
// inclusive and the upper edge exclusive so that siblings tile space without overlap.
func (n *Node[T, PT]) FitsIn(p r3.Vector) bool {
	for i := 0; i < n.dims; i++ {
		v := axis(p, i)
		if v < n.edge(i, -1) || v >= n.edge(i, 1) {
			return false
		}
	}
	return true
}

// FittingChildIndex returns the index of the child whose region would contain the point.
// The point is assumed to fit in n.
func (n *Node[T, PT]) FittingChildIndex(p r3.Vector) int {
	index := 0
	for i := 0; i < n.dims; i++ {
		if axis(p, i) >= axis(n.center, i) {
			index |= 1 << i
		}
	}
	return index
}

// TouchChild returns the child at index, creating it first if it is absent. Nodes of leaf
// size cannot be subdivided and TouchChild panics on them.
func (n *Node[T, PT]) TouchChild(index int) *Node[T, PT] {
	child, _ := n.touchChild(index)
	return child
}

func (n *Node[T, PT]) touchChild(index int) (*Node[T, PT], bool) {
	if n.level <= 0 {
		panic("spatialtree: cannot subdivide a leaf sized node")
	}
	if n.children == nil {
		n.children = make([]*Node[T, PT], 1<<n.dims)
	}
	if child := n.children[index]; child != nil {
		return child, false
	}
	child := newNode[T, PT](n.childGrid(index, n.level), n.level-1, n.unit, n.dims)
	n.children[index] = child
	return child, true
}

// Expand doubles the radius of the node around its center. Every existing child is moved
// one level down under a new intermediate node so that all descendants keep their absolute
// center and radius.
func (n *Node[T, PT]) Expand() {
	for i, child := range n.children {
		if child == nil {
			continue
		}
		inter := newNode[T, PT](n.childGrid(i, n.level+1), n.level, n.unit, n.dims)
		PT(&inter.data).Inherit(&child.data)
		inter.children = make([]*Node[T, PT], len(n.children))
		inter.children[n.opposite(i)] = child
		n.children[i] = inter
	}
	n.level++
	n.radius = math.Ldexp(n.unit, n.level)
}

// childGrid is the grid position of the child at index for a parent at the given level.
func (n *Node[T, PT]) childGrid(index, level int) [3]int64 {
	g := n.grid
	offset := int64(1) << (level - 1)
	for i := 0; i < n.dims; i++ {
		if index&(1<<i) != 0 {
			g[i] += offset
		} else {
			g[i] -= offset
		}
	}
	return g
}

// neighborCenter returns the center of the same sized node steps node widths away along
// axis a.
func (n *Node[T, PT]) neighborCenter(a int, steps int64) r3.Vector {
	return withAxis(n.center, a, float64(n.grid[a]+2*steps*n.span())*n.unit)
}

// opposite mirrors an index on every axis.
func (n *Node[T, PT]) opposite(index int) int {
	return index ^ (1<<n.dims - 1)
}

func (n *Node[T, PT]) record(p r3.Vector, value float64, leaf bool) {
	PT(&n.data).Record(p, value, leaf)
}

func axis(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func withAxis(v r3.Vector, i int, value float64) r3.Vector {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}
