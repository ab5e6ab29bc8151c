package spatialtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func newStatsOctree(t *testing.T, detail float64) *Tree[Stats, *Stats] {
	t.Helper()
	tree, err := NewOctree[Stats](detail)
	test.That(t, err, test.ShouldBeNil)
	return tree
}

func TestNewInvalid(t *testing.T) {
	for _, detail := range []float64{0, -1, math.NaN(), math.Inf(1), 1e300} {
		_, err := NewOctree[Stats](detail)
		test.That(t, errors.Is(err, ErrInvalidDetailLevel), test.ShouldBeTrue)
	}
	_, err := New[Stats](4, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEmptyTree(t *testing.T) {
	tree := newStatsOctree(t, 1)
	_, ok := tree.Leaf(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, tree.Leaves(), test.ShouldBeEmpty)
	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 0)
	test.That(t, tree.GroupCount(), test.ShouldEqual, 0)
}

func TestRegisterInvalidPoint(t *testing.T) {
	tree := newStatsOctree(t, 1)
	err := tree.Register(r3.Vector{X: math.NaN()}, 0)
	test.That(t, errors.Is(err, ErrInvalidPoint), test.ShouldBeTrue)
	err = tree.Register(r3.Vector{Z: math.Inf(-1)}, 0)
	test.That(t, errors.Is(err, ErrInvalidPoint), test.ShouldBeTrue)
	test.That(t, tree.LeafCount(), test.ShouldEqual, 0)

	fine := newStatsOctree(t, 0.1)
	err = fine.Register(r3.Vector{X: 1e20}, 0)
	test.That(t, errors.Is(err, ErrInvalidPoint), test.ShouldBeTrue)
	test.That(t, fine.LeafCount(), test.ShouldEqual, 0)

	// a quadtree never looks at z
	quad, err := NewQuadtree[Stats](1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quad.Register(r3.Vector{X: 1, Y: 1, Z: math.Inf(1)}, 0), test.ShouldBeNil)
}

func TestRegisterSameLeaf(t *testing.T) {
	tree := newStatsOctree(t, 1)
	test.That(t, tree.Register(r3.Vector{X: 0.4, Y: 0.4, Z: 0.4}, 1), test.ShouldBeNil)
	test.That(t, tree.Register(r3.Vector{X: 0.6, Y: 0.6, Z: 0.6}, 2), test.ShouldBeNil)

	leaf, ok := tree.Leaf(r3.Vector{X: 0.4, Y: 0.4, Z: 0.4})
	test.That(t, ok, test.ShouldBeTrue)
	other, ok := tree.Leaf(r3.Vector{X: 0.6, Y: 0.6, Z: 0.6})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, other, test.ShouldEqual, leaf)

	test.That(t, leaf.Center(), test.ShouldResemble, r3.Vector{})
	test.That(t, leaf.Radius(), test.ShouldEqual, 1.0)
	test.That(t, leaf.Payload().Count, test.ShouldEqual, 2)
	test.That(t, tree.LeafCount(), test.ShouldEqual, 1)
}

func TestRegisterAdjacentLeaves(t *testing.T) {
	tree := newStatsOctree(t, 1)
	a, b := r3.Vector{X: 0.4, Y: 0.4, Z: 0.4}, r3.Vector{X: 1.6, Y: 0.4, Z: 0.4}
	test.That(t, tree.Register(a, 0), test.ShouldBeNil)
	test.That(t, tree.Register(b, 0), test.ShouldBeNil)

	la, ok := tree.Leaf(a)
	test.That(t, ok, test.ShouldBeTrue)
	lb, ok := tree.Leaf(b)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, la, test.ShouldNotEqual, lb)
	test.That(t, lb.Center(), test.ShouldResemble, r3.Vector{X: 2})

	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 1)
	ga, ok := la.GroupID()
	test.That(t, ok, test.ShouldBeTrue)
	gb, ok := lb.GroupID()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ga, test.ShouldEqual, gb)
}

func TestRegisterIdempotentLookup(t *testing.T) {
	tree := newStatsOctree(t, 0.25)
	r := rand.New(rand.NewSource(7))
	var points []r3.Vector
	for i := 0; i < 500; i++ {
		points = append(points, r3.Vector{
			X: r.Float64()*20 - 10,
			Y: r.Float64()*20 - 10,
			Z: r.Float64()*4 - 2,
		})
	}
	for i, p := range points {
		test.That(t, tree.Register(p, float64(i)), test.ShouldBeNil)
	}

	for i, p := range points {
		leaf, ok := tree.Leaf(p)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, leaf.FitsIn(p), test.ShouldBeTrue)
		test.That(t, tree.IsLeaf(leaf), test.ShouldBeTrue)
		test.That(t, leaf.Payload().MinValue, test.ShouldBeLessThanOrEqualTo, float64(i))
		test.That(t, leaf.Payload().MaxValue, test.ShouldBeGreaterThanOrEqualTo, float64(i))

		nodes := tree.NodeCount()
		before := leaf.Payload().Count
		test.That(t, tree.Register(p, float64(i)), test.ShouldBeNil)
		test.That(t, leaf.Payload().Count, test.ShouldEqual, before+1)
		test.That(t, tree.NodeCount(), test.ShouldEqual, nodes)
	}
}

func TestTiling(t *testing.T) {
	tree := newStatsOctree(t, 0.5)
	r := rand.New(rand.NewSource(3))
	var points []r3.Vector
	for i := 0; i < 300; i++ {
		p := r3.Vector{X: r.Float64() * 6, Y: r.Float64() * 6, Z: r.Float64() * 6}
		// snap some points onto leaf boundaries
		if i%3 == 0 {
			p.X = math.Round(p.X) + 0.5
		}
		points = append(points, p)
		test.That(t, tree.Register(p, 0), test.ShouldBeNil)
	}

	leaves := tree.Leaves()
	test.That(t, leaves, test.ShouldHaveLength, tree.LeafCount())
	total := 0
	for _, l := range leaves {
		total += l.Payload().Count
	}
	test.That(t, total, test.ShouldEqual, len(points))

	for _, p := range points {
		claims := 0
		for _, l := range leaves {
			if l.FitsIn(p) {
				claims++
			}
		}
		test.That(t, claims, test.ShouldEqual, 1)
	}
}

func TestBoundaryPointsAtInexactDetailLevels(t *testing.T) {
	for _, detail := range []float64{0.1, 0.3, 0.7} {
		tree := newStatsOctree(t, detail)
		var points []r3.Vector
		for i := -100; i <= 100; i++ {
			// multiples of the detail level are leaf centers or leaf edges
			p := r3.Vector{
				X: float64(i) * detail,
				Y: float64(i%7) * detail,
				Z: -float64(i%5) * detail,
			}
			points = append(points, p)
			test.That(t, tree.Register(p, float64(i)), test.ShouldBeNil)
		}

		leaves := tree.Leaves()
		total := 0
		for _, l := range leaves {
			total += l.Payload().Count
		}
		test.That(t, total, test.ShouldEqual, len(points))

		for i, p := range points {
			leaf, ok := tree.Leaf(p)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, leaf.FitsIn(p), test.ShouldBeTrue)
			test.That(t, leaf.Payload().MinValue, test.ShouldBeLessThanOrEqualTo, float64(i-100))
			test.That(t, leaf.Payload().MaxValue, test.ShouldBeGreaterThanOrEqualTo, float64(i-100))

			claims := 0
			for _, l := range leaves {
				if l.FitsIn(p) {
					claims++
				}
			}
			test.That(t, claims, test.ShouldEqual, 1)
		}

		// the leaf holding the origin is centered on it
		origin, ok := tree.Leaf(r3.Vector{})
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, origin.Center(), test.ShouldResemble, r3.Vector{})
	}
}

func TestExpansionKeepsLeaves(t *testing.T) {
	tree := newStatsOctree(t, 1)
	near := r3.Vector{X: 0.5, Y: -0.5, Z: 0.1}
	test.That(t, tree.Register(near, 3), test.ShouldBeNil)
	nearLeaf, ok := tree.Leaf(near)
	test.That(t, ok, test.ShouldBeTrue)
	before := *nearLeaf.Payload()
	root := tree.Root()

	far := r3.Vector{X: 10000, Y: -10000, Z: 5000}
	test.That(t, tree.Register(far, 9), test.ShouldBeNil)

	test.That(t, tree.Root(), test.ShouldEqual, root)
	test.That(t, tree.Root().FitsIn(far), test.ShouldBeTrue)
	test.That(t, tree.Root().Radius(), test.ShouldBeGreaterThan, 10000.0)

	farLeaf, ok := tree.Leaf(far)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, farLeaf.Payload().Count, test.ShouldEqual, 1)
	test.That(t, farLeaf.Radius(), test.ShouldEqual, 1.0)

	again, ok := tree.Leaf(near)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, again, test.ShouldEqual, nearLeaf)
	test.That(t, *again.Payload(), test.ShouldResemble, before)

	rootStats := tree.Root().Payload()
	test.That(t, rootStats.Count, test.ShouldEqual, 2)
	test.That(t, rootStats.Max.X, test.ShouldEqual, 10000.0)
}

func TestRadiusPowerOfTwo(t *testing.T) {
	detail := 0.125
	tree := newStatsOctree(t, detail)
	for _, p := range []r3.Vector{{X: 3, Y: 1}, {X: -40, Y: 2, Z: 7}, {X: 0.01}} {
		test.That(t, tree.Register(p, 0), test.ShouldBeNil)
	}
	tree.Walk(func(n *Node[Stats, *Stats]) bool {
		exp := math.Log2(n.Radius() / detail)
		test.That(t, exp, test.ShouldEqual, math.Round(exp))
		test.That(t, exp, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		return true
	})
}

func TestLeafAtCoarserLevel(t *testing.T) {
	tree, err := NewQuadtree[Stats](1)
	test.That(t, err, test.ShouldBeNil)

	points := []r3.Vector{
		{X: 0.5, Y: 0.5, Z: 10},
		{X: -2.5, Y: 0.5, Z: 4},
		{X: -4.5, Y: -3.5, Z: 7},
		{X: 12, Y: 12, Z: -3},
	}
	for _, p := range points {
		test.That(t, tree.Register(p, p.Z), test.ShouldBeNil)
	}

	leaf, ok := tree.Leaf(points[0])
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, leaf.Payload().MinValue, test.ShouldEqual, 10.0)

	coarse, ok := tree.LeafAt(points[0], 4)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, coarse.Radius(), test.ShouldBeLessThanOrEqualTo, 4.0)
	test.That(t, coarse.Radius(), test.ShouldBeGreaterThan, 2.0)
	test.That(t, coarse.FitsIn(points[1]), test.ShouldBeTrue)
	test.That(t, coarse.Payload().MinValue, test.ShouldEqual, 4.0)
	test.That(t, coarse.Payload().MaxValue, test.ShouldEqual, 10.0)
	test.That(t, coarse.Payload().Count, test.ShouldEqual, 3)

	// finer than the leaves clamps to the leaves
	fine, ok := tree.LeafAt(points[0], 0.01)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fine, test.ShouldEqual, leaf)

	_, ok = tree.Leaf(r3.Vector{X: 6.5, Y: 0.5})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = tree.Leaf(r3.Vector{X: 1e6, Y: 0})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestQuadtreeAggregatesEveryLevel(t *testing.T) {
	tree, err := NewQuadtree[Stats](0.5)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 10; i++ {
		p := r3.Vector{X: float64(i), Y: float64(i % 3), Z: float64(i)}
		test.That(t, tree.Register(p, p.Z), test.ShouldBeNil)
	}
	tree.Walk(func(n *Node[Stats, *Stats]) bool {
		if tree.IsLeaf(n) {
			return true
		}
		sum := 0
		for i := 0; i < 4; i++ {
			if c := n.Child(i); c != nil {
				sum += c.Payload().Count
			}
		}
		test.That(t, n.Payload().Count, test.ShouldEqual, sum)
		return true
	})
	test.That(t, tree.Root().Payload().Count, test.ShouldEqual, 10)
	test.That(t, tree.Root().Payload().MaxValue, test.ShouldEqual, 9.0)
}
