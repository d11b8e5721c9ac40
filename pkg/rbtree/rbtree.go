// Package rbtree provides an ordered map backed by a red-black tree whose
// nodes live in an index-addressed arena, with LZ4 hibernation of idle arenas.
package rbtree

import (
	"cmp"
)

const (
	red   = false
	black = true
)

type side uint8

const (
	left  side = 0
	right side = 1
)

func (s side) opposite() side {
	return 1 - s
}

// Stats counts the rebalancing work done by a map since it was created.
type Stats struct {
	// Rotations is the number of single rotations.
	Rotations uint64
	// InsertFixups is the number of insertion fixup loop iterations.
	InsertFixups uint64
	// DeleteFixups is the number of deletion fixup loop iterations.
	DeleteFixups uint64
}

// Map is an ordered map implemented as a red-black tree.
//
// A Map has a single owner: it performs no locking and must not be used from
// several goroutines at once. Passing it between goroutines is fine.
type Map[K, V any] struct {
	// Nodes allocator.
	allocator *Allocator[K, V]

	compare func(a, b K) int

	// Root of the tree.
	root uint32

	// Number of nodes under root, including the root.
	count int

	// Bumped on every structural change; guards live iterators.
	generation uint64

	stats Stats
}

// New creates an empty map ordered by the natural ordering of K.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc creates an empty map ordered by compare, which must return a
// negative number when a < b, zero when a == b and a positive number when a > b.
func NewFunc[K, V any](compare func(a, b K) int) *Map[K, V] {
	return NewWithAllocator(NewAllocator[K, V](), compare)
}

// NewWithAllocator creates an empty map whose nodes are taken from allocator.
func NewWithAllocator[K, V any](allocator *Allocator[K, V], compare func(a, b K) int) *Map[K, V] {
	if allocator == nil || compare == nil {
		panic("rbtree: NewWithAllocator requires an allocator and a comparator")
	}

	return &Map[K, V]{allocator: allocator, compare: compare}
}

// Allocator returns the bound nodes allocator.
func (tree *Map[K, V]) Allocator() *Allocator[K, V] {
	return tree.allocator
}

// Len returns the number of entries in the map.
func (tree *Map[K, V]) Len() int {
	return tree.count
}

// Stats returns the rebalancing counters.
func (tree *Map[K, V]) Stats() Stats {
	return tree.stats
}

// Clear removes all the entries, returning every node to the allocator.
// The walk uses an explicit stack so arbitrarily deep trees are safe.
func (tree *Map[K, V]) Clear() {
	if tree.root != 0 {
		alloc := tree.storage()
		stack := []uint32{tree.root}

		for len(stack) > 0 {
			last := len(stack) - 1
			nodeIdx := stack[last]
			stack = stack[:last]

			for _, child := range alloc[nodeIdx].child {
				if child != 0 {
					stack = append(stack, child)
				}
			}

			tree.allocator.free(nodeIdx)
		}
	}

	tree.root = 0
	tree.count = 0
	tree.generation++
}

// Get returns the value stored under key.
func (tree *Map[K, V]) Get(key K) (V, bool) {
	nodeIdx, _, _ := tree.find(key)
	if nodeIdx == 0 {
		var zero V

		return zero, false
	}

	return tree.storage()[nodeIdx].value, true
}

// GetKeyValue returns the stored key equal to key together with its value.
func (tree *Map[K, V]) GetKeyValue(key K) (K, V, bool) {
	nodeIdx, _, _ := tree.find(key)
	if nodeIdx == 0 {
		var (
			zeroKey   K
			zeroValue V
		)

		return zeroKey, zeroValue, false
	}

	nd := &tree.storage()[nodeIdx]

	return nd.key, nd.value, true
}

// ContainsKey reports whether the map holds an entry for key.
func (tree *Map[K, V]) ContainsKey(key K) bool {
	nodeIdx, _, _ := tree.find(key)

	return nodeIdx != 0
}

// Min returns the entry with the smallest key.
func (tree *Map[K, V]) Min() (K, V, bool) {
	return tree.extreme(left)
}

// Max returns the entry with the largest key.
func (tree *Map[K, V]) Max() (K, V, bool) {
	return tree.extreme(right)
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (tree *Map[K, V]) Height() int {
	if tree.root == 0 {
		return 0
	}

	type frame struct {
		node  uint32
		depth int
	}

	alloc := tree.storage()
	height := 0
	stack := []frame{{tree.root, 1}}

	for len(stack) > 0 {
		last := len(stack) - 1
		top := stack[last]
		stack = stack[:last]

		height = max(height, top.depth)

		for _, child := range alloc[top.node].child {
			if child != 0 {
				stack = append(stack, frame{child, top.depth + 1})
			}
		}
	}

	return height
}

// BlackHeight returns the number of black nodes on the path from the root
// to its leftmost absent child, the root included. On a valid tree every
// root-to-leaf path has this many black nodes.
func (tree *Map[K, V]) BlackHeight() int {
	alloc := tree.storage()
	blackHeight := 0

	for nodeIdx := tree.root; nodeIdx != 0; nodeIdx = alloc[nodeIdx].child[left] {
		if alloc[nodeIdx].color == black {
			blackHeight++
		}
	}

	return blackHeight
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

func (tree *Map[K, V]) storage() []node[K, V] {
	return tree.allocator.nodes()
}

// Internal node attribute accessors.
func getColor[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	if nodeIdx == 0 {
		return black
	}

	return alloc[nodeIdx].color
}

// childSide returns the side nodeIdx hangs from under its parent.
// REQUIRES: nodeIdx has a parent.
func childSide[K, V any](nodeIdx uint32, alloc []node[K, V]) side {
	if alloc[alloc[nodeIdx].parent].child[left] == nodeIdx {
		return left
	}

	return right
}

// outermost descends from nodeIdx along dir until the child on that side is absent.
func outermost[K, V any](nodeIdx uint32, dir side, alloc []node[K, V]) uint32 {
	for alloc[nodeIdx].child[dir] != 0 {
		nodeIdx = alloc[nodeIdx].child[dir]
	}

	return nodeIdx
}

func (tree *Map[K, V]) extreme(dir side) (K, V, bool) {
	if tree.root == 0 {
		var (
			zeroKey   K
			zeroValue V
		)

		return zeroKey, zeroValue, false
	}

	alloc := tree.storage()
	nd := &alloc[outermost(tree.root, dir, alloc)]

	return nd.key, nd.value, true
}

// find walks from the root comparing key against each node. It returns the
// node holding key, or 0 together with the last visited node and the side a
// new node for key would take under it.
func (tree *Map[K, V]) find(key K) (found, parent uint32, dir side) {
	if tree.root == 0 {
		return 0, 0, left
	}

	alloc := tree.storage()
	nodeIdx := tree.root

	for nodeIdx != 0 {
		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0:
			return nodeIdx, alloc[nodeIdx].parent, left
		case comp < 0:
			dir = left
		default:
			dir = right
		}

		parent = nodeIdx
		nodeIdx = alloc[nodeIdx].child[dir]
	}

	return 0, parent, dir
}

// replaceNode puts newn in oldn's place under oldn's parent. newn may be 0.
func (tree *Map[K, V]) replaceNode(oldn, newn uint32) {
	alloc := tree.storage()
	parent := alloc[oldn].parent

	if parent == 0 {
		tree.root = newn
	} else {
		alloc[parent].child[childSide(oldn, alloc)] = newn
	}

	if newn != 0 {
		alloc[newn].parent = parent
	}
}

// rotate performs a tree rotation at pivot in direction dir: the child of
// pivot on the opposite side takes pivot's place and pivot becomes its child
// on side dir.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
func (tree *Map[K, V]) rotate(pivot uint32, dir side) {
	alloc := tree.storage()

	child := alloc[pivot].child[dir.opposite()]
	doAssert(child != 0)

	// Move the inner subtree.
	inner := alloc[child].child[dir]
	alloc[pivot].child[dir.opposite()] = inner

	if inner != 0 {
		alloc[inner].parent = pivot
	}

	// Update parent links.
	tree.replaceNode(pivot, child)

	// Complete the rotation.
	alloc[child].child[dir] = pivot
	alloc[pivot].parent = child

	tree.stats.Rotations++
}
