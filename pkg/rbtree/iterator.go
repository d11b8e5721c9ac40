package rbtree

import "iter"

// Iterator yields the entries of a map in ascending key order.
//
// It keeps an explicit stack of the nodes still to visit, so it needs
// O(height) memory and no recursion. An Iterator is one-shot: once Next
// reports false it stays exhausted. Inserting or removing keys while an
// iterator is in use makes the next call to Next panic; replacing the value
// of an existing key does not.
type Iterator[K, V any] struct {
	tree       *Map[K, V]
	stack      []uint32
	generation uint64
}

// Iter creates an iterator positioned before the smallest key.
func (tree *Map[K, V]) Iter() *Iterator[K, V] {
	iterator := &Iterator[K, V]{tree: tree, generation: tree.generation}
	iterator.pushLeftSpine(tree.root)

	return iterator
}

// Next returns the next entry in key order, or false when the iterator is exhausted.
func (iterator *Iterator[K, V]) Next() (K, V, bool) {
	last := len(iterator.stack) - 1
	if last < 0 {
		var (
			zeroKey   K
			zeroValue V
		)

		return zeroKey, zeroValue, false
	}

	if iterator.generation != iterator.tree.generation {
		panic("rbtree: map modified during iteration")
	}

	nodeIdx := iterator.stack[last]
	iterator.stack = iterator.stack[:last]

	nd := &iterator.tree.storage()[nodeIdx]
	iterator.pushLeftSpine(nd.child[right])

	return nd.key, nd.value, true
}

func (iterator *Iterator[K, V]) pushLeftSpine(nodeIdx uint32) {
	if nodeIdx == 0 {
		return
	}

	alloc := iterator.tree.storage()

	for ; nodeIdx != 0; nodeIdx = alloc[nodeIdx].child[left] {
		iterator.stack = append(iterator.stack, nodeIdx)
	}
}

// All returns an iterator over the key-value pairs in ascending key order.
func (tree *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		iterator := tree.Iter()

		for key, value, ok := iterator.Next(); ok; key, value, ok = iterator.Next() {
			if !yield(key, value) {
				return
			}
		}
	}
}

// Keys returns an iterator over the keys in ascending order.
func (tree *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for key := range tree.All() {
			if !yield(key) {
				return
			}
		}
	}
}
