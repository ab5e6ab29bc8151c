package spatialtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func registerAll(t *testing.T, tree *Tree[Stats, *Stats], points []r3.Vector) {
	t.Helper()
	for _, p := range points {
		test.That(t, tree.Register(p, p.Z), test.ShouldBeNil)
	}
}

// partition returns the leaf centers of every group, each group sorted and the groups
// ordered by their first center, so partitions of different trees can be compared.
func partition(tree *Tree[Stats, *Stats]) [][]r3.Vector {
	byGroup := map[int][]r3.Vector{}
	tree.IterateLeaves(func(n *statsNode) bool {
		id, _ := n.GroupID()
		byGroup[id] = append(byGroup[id], n.Center())
		return true
	})
	less := func(a, b r3.Vector) bool {
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	}
	groups := make([][]r3.Vector, 0, len(byGroup))
	for _, centers := range byGroup {
		sort.Slice(centers, func(i, j int) bool { return less(centers[i], centers[j]) })
		groups = append(groups, centers)
	}
	sort.Slice(groups, func(i, j int) bool { return less(groups[i][0], groups[j][0]) })
	return groups
}

func TestGroupConnectivity(t *testing.T) {
	tree := newStatsOctree(t, 1)
	registerAll(t, tree, []r3.Vector{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 2.5, Y: 0.5, Z: 0.5},
		{X: 40, Y: 40, Z: 40},
	})

	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 2)
	test.That(t, tree.GroupCount(), test.ShouldEqual, 2)

	a, _ := tree.Leaf(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	b, _ := tree.Leaf(r3.Vector{X: 2.5, Y: 0.5, Z: 0.5})
	far, _ := tree.Leaf(r3.Vector{X: 40, Y: 40, Z: 40})
	ga, _ := a.GroupID()
	gb, _ := b.GroupID()
	gf, _ := far.GroupID()
	test.That(t, ga, test.ShouldEqual, gb)
	test.That(t, gf, test.ShouldNotEqual, ga)
}

func TestGroupDiagonalIsNotAdjacent(t *testing.T) {
	tree := newStatsOctree(t, 1)
	registerAll(t, tree, []r3.Vector{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 2.5, Y: 2.5, Z: 0.5},
		{X: 2.5, Y: 2.5, Z: 2.5},
	})
	// the second and third share a face, the first only an edge with the second
	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 2)
}

func TestGroupSingleLeaf(t *testing.T) {
	tree := newStatsOctree(t, 0.5)
	registerAll(t, tree, []r3.Vector{{X: 3, Y: 3, Z: 3}, {X: 3.1, Y: 3.1, Z: 3.1}})
	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 1)
	leaf, ok := tree.Leaf(r3.Vector{X: 3, Y: 3, Z: 3})
	test.That(t, ok, test.ShouldBeTrue)
	id, ok := leaf.GroupID()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, 0)
}

func TestUngroupedBeforeGrouping(t *testing.T) {
	tree := newStatsOctree(t, 1)
	registerAll(t, tree, []r3.Vector{{X: 1}, {X: 5}})
	tree.IterateLeaves(func(n *statsNode) bool {
		_, ok := n.GroupID()
		test.That(t, ok, test.ShouldBeFalse)
		return true
	})
	test.That(t, tree.GroupCount(), test.ShouldEqual, 0)
}

func TestGroupMergesBranches(t *testing.T) {
	// A U shape: both arms get separate ids until the bottom row joins them.
	tree, err := NewQuadtree[Stats](0.5)
	test.That(t, err, test.ShouldBeNil)
	var points []r3.Vector
	for y := 0; y < 6; y++ {
		points = append(points, r3.Vector{X: 0, Y: float64(y)}, r3.Vector{X: 6, Y: float64(y)})
	}
	for x := 0; x <= 6; x++ {
		points = append(points, r3.Vector{X: float64(x), Y: 6})
	}
	points = append(points, r3.Vector{X: 3, Y: 2})
	registerAll(t, tree, points)

	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 2)
	sizes := tree.GroupSizes()
	sort.Ints(sizes)
	test.That(t, sizes, test.ShouldResemble, []int{1, 19})
}

func TestGroupIdsAreDense(t *testing.T) {
	tree := newStatsOctree(t, 0.5)
	r := rand.New(rand.NewSource(11))
	var points []r3.Vector
	for i := 0; i < 400; i++ {
		points = append(points, r3.Vector{
			X: float64(r.Intn(12)),
			Y: float64(r.Intn(12)),
			Z: float64(r.Intn(3)),
		})
	}
	registerAll(t, tree, points)

	count := tree.GroupLeaves(nil)
	test.That(t, count, test.ShouldBeGreaterThan, 0)
	seen := make([]bool, count)
	tree.IterateLeaves(func(n *statsNode) bool {
		id, ok := n.GroupID()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, id, test.ShouldBeBetweenOrEqual, 0, count-1)
		seen[id] = true
		return true
	})
	for _, s := range seen {
		test.That(t, s, test.ShouldBeTrue)
	}

	total := 0
	for _, size := range tree.GroupSizes() {
		test.That(t, size, test.ShouldBeGreaterThan, 0)
		total += size
	}
	test.That(t, total, test.ShouldEqual, tree.LeafCount())
}

func TestGroupOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	var points []r3.Vector
	for i := 0; i < 250; i++ {
		points = append(points, r3.Vector{
			X: float64(r.Intn(16)) - 8,
			Y: float64(r.Intn(16)) - 8,
			Z: float64(r.Intn(4)),
		})
	}

	reference := newStatsOctree(t, 0.5)
	registerAll(t, reference, points)
	count := reference.GroupLeaves(nil)
	expected := partition(reference)

	for i := 0; i < 5; i++ {
		shuffled := append([]r3.Vector(nil), points...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		tree := newStatsOctree(t, 0.5)
		registerAll(t, tree, shuffled)
		test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, count)
		test.That(t, partition(tree), test.ShouldResemble, expected)
	}
}

func TestGroupPredicate(t *testing.T) {
	tree := newStatsOctree(t, 0.5)
	// one row of leaves whose values step up by 10 in the middle
	for x := 0; x < 8; x++ {
		value := 0.0
		if x >= 4 {
			value = 10
		}
		test.That(t, tree.Register(r3.Vector{X: float64(x)}, value), test.ShouldBeNil)
	}

	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 1)

	similar := func(a, b *statsNode) bool {
		return a.Payload().MaxValue == b.Payload().MaxValue
	}
	test.That(t, tree.GroupLeaves(similar), test.ShouldEqual, 2)
	test.That(t, tree.GroupSizes(), test.ShouldResemble, []int{4, 4})

	never := func(a, b *statsNode) bool { return false }
	test.That(t, tree.GroupLeaves(never), test.ShouldEqual, tree.LeafCount())
}

func TestRegroupResets(t *testing.T) {
	tree := newStatsOctree(t, 1)
	registerAll(t, tree, []r3.Vector{{X: 0.5}, {X: 4.5}})
	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 2)

	// filling the gap joins both groups on the next pass
	registerAll(t, tree, []r3.Vector{{X: 2.5}})
	test.That(t, tree.GroupLeaves(nil), test.ShouldEqual, 1)
	test.That(t, tree.GroupSizes(), test.ShouldResemble, []int{3})
}
