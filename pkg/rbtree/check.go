package rbtree

import (
	"errors"
	"fmt"
)

// Structural violations reported by Check.
var (
	ErrRedRoot             = errors.New("root is red")
	ErrRootHasParent       = errors.New("root has a parent")
	ErrBrokenParentLink    = errors.New("child does not point back to its parent")
	ErrOrderViolation      = errors.New("keys are out of order")
	ErrRedViolation        = errors.New("red node has a red child")
	ErrBlackHeightMismatch = errors.New("black height differs between subtrees")
	ErrCountMismatch       = errors.New("entry count does not match reachable nodes")
	ErrFreedNodeReachable  = errors.New("freed node is reachable")
)

// Check verifies the red-black and binary-search-tree invariants, the parent
// links and the entry count. It returns the first violation found.
func (tree *Map[K, V]) Check() error {
	if tree.root == 0 {
		if tree.count != 0 {
			return fmt.Errorf("%w: empty tree with count %d", ErrCountMismatch, tree.count)
		}

		return nil
	}

	alloc := tree.storage()

	if alloc[tree.root].parent != 0 {
		return fmt.Errorf("%w: root #%d, parent #%d", ErrRootHasParent, tree.root, alloc[tree.root].parent)
	}

	if alloc[tree.root].color == red {
		return fmt.Errorf("%w: root #%d", ErrRedRoot, tree.root)
	}

	checker := &checker[K, V]{tree: tree, alloc: alloc}

	_, err := checker.walk(tree.root, 0, 0)
	if err != nil {
		return err
	}

	if checker.reachable != tree.count {
		return fmt.Errorf("%w: %d reachable, count %d", ErrCountMismatch, checker.reachable, tree.count)
	}

	return nil
}

type checker[K, V any] struct {
	tree      *Map[K, V]
	alloc     []node[K, V]
	reachable int
}

// walk returns the black height of the subtree at nodeIdx, not counting
// nodeIdx itself. lower and upper are the nodes whose keys bound the
// subtree, 0 meaning unbounded.
func (c *checker[K, V]) walk(nodeIdx, lower, upper uint32) (int, error) {
	nd := &c.alloc[nodeIdx]
	c.reachable++

	if !nd.used {
		return 0, fmt.Errorf("%w: #%d", ErrFreedNodeReachable, nodeIdx)
	}

	if lower != 0 && c.tree.compare(c.alloc[lower].key, nd.key) >= 0 {
		return 0, fmt.Errorf("%w: #%d is not greater than #%d", ErrOrderViolation, nodeIdx, lower)
	}

	if upper != 0 && c.tree.compare(nd.key, c.alloc[upper].key) >= 0 {
		return 0, fmt.Errorf("%w: #%d is not less than #%d", ErrOrderViolation, nodeIdx, upper)
	}

	heights := [2]int{}

	for dir, child := range nd.child {
		if child == 0 {
			continue
		}

		if c.alloc[child].parent != nodeIdx {
			return 0, fmt.Errorf("%w: #%d under #%d points to #%d",
				ErrBrokenParentLink, child, nodeIdx, c.alloc[child].parent)
		}

		if nd.color == red && c.alloc[child].color == red {
			return 0, fmt.Errorf("%w: #%d and #%d", ErrRedViolation, nodeIdx, child)
		}

		childLower, childUpper := lower, nodeIdx
		if side(dir) == right {
			childLower, childUpper = nodeIdx, upper
		}

		height, err := c.walk(child, childLower, childUpper)
		if err != nil {
			return 0, err
		}

		if c.alloc[child].color == black {
			height++
		}

		heights[dir] = height
	}

	if heights[left] != heights[right] {
		return 0, fmt.Errorf("%w: #%d has %d on the left and %d on the right",
			ErrBlackHeightMismatch, nodeIdx, heights[left], heights[right])
	}

	return heights[left], nil
}
