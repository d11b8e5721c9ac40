package rbtree

// Insert stores value under key. If the key was already present its value is
// replaced in place and the previous value is returned with true; the tree
// shape and colors are left untouched.
func (tree *Map[K, V]) Insert(key K, value V) (V, bool) {
	found, parent, dir := tree.find(key)
	if found != 0 {
		nd := &tree.storage()[found]
		previous := nd.value
		nd.value = value

		return previous, true
	}

	// malloc may grow the storage, so the slice is fetched afterwards.
	nodeIdx := tree.allocator.malloc()
	alloc := tree.storage()

	nd := &alloc[nodeIdx]
	nd.key = key
	nd.value = value
	nd.color = red
	nd.parent = parent

	tree.count++
	tree.generation++

	if parent == 0 {
		tree.root = nodeIdx
		nd.color = black
	} else {
		alloc[parent].child[dir] = nodeIdx
		tree.insertFixup(nodeIdx)
		alloc[tree.root].color = black
	}

	var zero V

	return zero, false
}

// insertFixup restores the red-black properties after nodeIdx was attached
// as a red leaf. The only possible violation is a red node with a red
// parent; it is either pushed two levels up by recoloring or removed by at
// most two rotations.
func (tree *Map[K, V]) insertFixup(nodeIdx uint32) {
	alloc := tree.storage()

	for nodeIdx != tree.root && alloc[alloc[nodeIdx].parent].color == red {
		tree.stats.InsertFixups++

		parent := alloc[nodeIdx].parent
		// A red parent is never the root, so the grandparent exists and is black.
		grandparent := alloc[parent].parent
		doAssert(grandparent != 0)

		parentSide := childSide(parent, alloc)
		uncle := alloc[grandparent].child[parentSide.opposite()]

		// Parent and uncle are both red: paint them black and the
		// grandparent red, then continue from the grandparent.
		if getColor(uncle, alloc) == red {
			alloc[parent].color = black
			alloc[uncle].color = black
			alloc[grandparent].color = red
			nodeIdx = grandparent

			continue
		}

		// Inner child: lift it into the parent's place so the red pair
		// lines up on the outer side.
		if childSide(nodeIdx, alloc) != parentSide {
			tree.rotate(parent, parentSide)
			nodeIdx = parent
			parent = alloc[nodeIdx].parent
		}

		// Outer child: lift the parent over the grandparent.
		alloc[parent].color = black
		alloc[grandparent].color = red
		tree.rotate(grandparent, parentSide.opposite())

		break
	}
}
