package spatialtree

import (
	"github.com/golang/geo/r3"
)

// PayloadPtr is the constraint on the per-node data a Tree carries. T is the payload value
// stored inline in every node and *T must be able to record points and to initialize
// itself from a child during root expansion.
type PayloadPtr[T any] interface {
	*T

	// Record is called for every node on the path of a registered point, from the root
	// down to the leaf. leaf reports whether the node is at the tree's detail level.
	Record(p r3.Vector, value float64, leaf bool)

	// Inherit initializes a node that root expansion inserted between the root and an
	// existing child. The new node covers exactly what child covers.
	Inherit(child *T)
}

// Stats is the plain statistics payload: point count plus running extrema of the
// coordinates and of the scalar value. It aggregates on every level so interior nodes
// answer range queries without descending.
type Stats struct {
	Count int

	Min, Max r3.Vector

	MinValue, MaxValue float64
}

// Record merges a point into the running extrema.
func (s *Stats) Record(p r3.Vector, value float64, _ bool) {
	if s.Count == 0 {
		s.Min, s.Max = p, p
		s.MinValue, s.MaxValue = value, value
		s.Count = 1
		return
	}
	s.Count++

	if p.X < s.Min.X {
		s.Min.X = p.X
	}
	if p.Y < s.Min.Y {
		s.Min.Y = p.Y
	}
	if p.Z < s.Min.Z {
		s.Min.Z = p.Z
	}

	if p.X > s.Max.X {
		s.Max.X = p.X
	}
	if p.Y > s.Max.Y {
		s.Max.Y = p.Y
	}
	if p.Z > s.Max.Z {
		s.Max.Z = p.Z
	}

	if value < s.MinValue {
		s.MinValue = value
	}
	if value > s.MaxValue {
		s.MaxValue = value
	}
}

// Inherit copies the child's statistics.
func (s *Stats) Inherit(child *Stats) {
	*s = *child
}

// Empty returns whether no point has been recorded.
func (s *Stats) Empty() bool {
	return s.Count == 0
}
