package rbtree

// Remove deletes key from the map and returns its value.
func (tree *Map[K, V]) Remove(key K) (V, bool) {
	_, value, ok := tree.RemoveEntry(key)

	return value, ok
}

// RemoveEntry deletes key from the map and returns the stored key and value.
func (tree *Map[K, V]) RemoveEntry(key K) (K, V, bool) {
	nodeIdx, _, _ := tree.find(key)
	if nodeIdx == 0 {
		var (
			zeroKey   K
			zeroValue V
		)

		return zeroKey, zeroValue, false
	}

	alloc := tree.storage()
	removedKey, removedValue := alloc[nodeIdx].key, alloc[nodeIdx].value

	tree.doDelete(nodeIdx)

	return removedKey, removedValue, true
}

// Delete N from the tree.
func (tree *Map[K, V]) doDelete(nodeIdx uint32) {
	alloc := tree.storage()

	// With two children the in-order successor's payload moves into N and
	// the successor, which has no left child, is removed instead.
	if alloc[nodeIdx].child[left] != 0 && alloc[nodeIdx].child[right] != 0 {
		succ := outermost(alloc[nodeIdx].child[right], left, alloc)
		alloc[nodeIdx].key = alloc[succ].key
		alloc[nodeIdx].value = alloc[succ].value
		nodeIdx = succ
	}

	child := alloc[nodeIdx].child[left]
	if child == 0 {
		child = alloc[nodeIdx].child[right]
	}

	switch {
	case child != 0:
		// N is black and its only child is red: painting the child black
		// keeps the black height of the path.
		tree.replaceNode(nodeIdx, child)
		alloc[child].color = black
	case alloc[nodeIdx].color == black:
		// N is a black leaf: rebalance while it still stands in place,
		// then cut it off.
		tree.deleteFixup(nodeIdx)
		tree.replaceNode(nodeIdx, 0)
	default:
		tree.replaceNode(nodeIdx, 0)
	}

	tree.allocator.free(nodeIdx)
	tree.count--
	tree.generation++

	if tree.root != 0 {
		alloc[tree.root].color = black
	}
}

// deleteFixup treats nodeIdx as carrying one missing black unit and moves the
// deficit up the tree until a red node absorbs it, a rotation redistributes
// it, or it reaches the root.
func (tree *Map[K, V]) deleteFixup(nodeIdx uint32) {
	alloc := tree.storage()

	for nodeIdx != tree.root && alloc[nodeIdx].color == black {
		tree.stats.DeleteFixups++

		parent := alloc[nodeIdx].parent
		near := childSide(nodeIdx, alloc)
		far := near.opposite()

		// The deficit side has black height >= 1, so the sibling exists.
		sibling := alloc[parent].child[far]
		doAssert(sibling != 0)

		// Red sibling: rotate it over the parent to get a black sibling.
		if alloc[sibling].color == red {
			alloc[sibling].color = black
			alloc[parent].color = red
			tree.rotate(parent, near)
			sibling = alloc[parent].child[far]
			doAssert(sibling != 0)
		}

		// Black sibling with black children: take one black unit from
		// both sides and move the deficit to the parent.
		if getColor(alloc[sibling].child[left], alloc) == black &&
			getColor(alloc[sibling].child[right], alloc) == black {
			alloc[sibling].color = red
			nodeIdx = parent

			continue
		}

		// Only the near nephew is red: turn it into the far one.
		if getColor(alloc[sibling].child[far], alloc) == black {
			alloc[alloc[sibling].child[near]].color = black
			alloc[sibling].color = red
			tree.rotate(sibling, far)
			sibling = alloc[parent].child[far]
		}

		// Far nephew is red: rotate the sibling over the parent.
		alloc[sibling].color = alloc[parent].color
		alloc[parent].color = black
		alloc[alloc[sibling].child[far]].color = black
		tree.rotate(parent, near)

		nodeIdx = tree.root
	}

	alloc[nodeIdx].color = black
}
