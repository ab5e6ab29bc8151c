package spatialtree

// CanGroupFunc reports whether two face adjacent leaves may join the same group.
type CanGroupFunc[T any, PT PayloadPtr[T]] func(a, b *Node[T, PT]) bool

// GroupLeaves assigns every leaf a group id so that two leaves share an id iff they are
// connected through a chain of face adjacent leaves for which canGroup holds. A nil
// canGroup connects all adjacent leaves. Ids are dense, in [0, GroupCount()), and the
// number of groups is returned.
//
// Each leaf only looks at its lower neighbor along every axis, so every adjacent pair is
// examined once. Leaves are visited in child index order, which guarantees that lower
// neighbors have been assigned before the leaf itself.
func (t *Tree[T, PT]) GroupLeaves(canGroup CanGroupFunc[T, PT]) int {
	t.IterateLeaves(func(n *Node[T, PT]) bool {
		n.group = ungrouped
		return true
	})

	// equivalences is kept fully resolved: every entry holds the smallest id of its class.
	var equivalences []int
	neighbors := make([]int, 0, 3)
	t.IterateLeaves(func(n *Node[T, PT]) bool {
		candidate := len(equivalences)
		neighbors = neighbors[:0]
		for a := 0; a < t.dims; a++ {
			nb := t.lowerNeighbor(n, a)
			if nb == nil || nb.group == ungrouped {
				continue
			}
			if canGroup != nil && !canGroup(n, nb) {
				continue
			}
			id := equivalences[nb.group]
			neighbors = append(neighbors, id)
			if id < candidate {
				candidate = id
			}
		}
		for _, id := range neighbors {
			if id <= candidate {
				continue
			}
			for i, e := range equivalences {
				if e == id {
					equivalences[i] = candidate
				}
			}
		}
		if candidate >= len(equivalences) {
			equivalences = append(equivalences, candidate)
		}
		n.group = candidate
		return true
	})

	used := make([]bool, len(equivalences))
	for _, e := range equivalences {
		used[e] = true
	}
	dense := make([]int, len(equivalences))
	count := 0
	for id := range equivalences {
		if used[id] {
			dense[id] = count
			count++
		}
	}
	t.IterateLeaves(func(n *Node[T, PT]) bool {
		n.group = dense[equivalences[n.group]]
		return true
	})

	t.groups = make([]int, count)
	for i := range t.groups {
		t.groups[i] = i
	}
	return count
}

// GroupCount returns the number of groups found by the last grouping pass.
func (t *Tree[T, PT]) GroupCount() int {
	return len(t.groups)
}

// GroupSizes returns the number of leaves in every group of the last grouping pass.
func (t *Tree[T, PT]) GroupSizes() []int {
	sizes := make([]int, len(t.groups))
	t.IterateLeaves(func(n *Node[T, PT]) bool {
		if id, ok := n.GroupID(); ok && id < len(sizes) {
			sizes[id]++
		}
		return true
	})
	return sizes
}

// lowerNeighbor returns the leaf one leaf width below n along the given axis.
func (t *Tree[T, PT]) lowerNeighbor(n *Node[T, PT], a int) *Node[T, PT] {
	p := n.neighborCenter(a, -1)
	nb, ok := t.Leaf(p)
	if !ok || nb == n || nb.level != n.level {
		return nil
	}
	return nb
}
