package rbtree //nolint:testpackage // tests require access to unexported fields (stack).

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterator(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()

	for _, key := range []int{40, 10, 30, 20, 50} {
		tree.Insert(key, key+1)
	}

	iterator := tree.Iter()

	var keys []int

	for key, value, ok := iterator.Next(); ok; key, value, ok = iterator.Next() {
		assert.Equal(t, key+1, value)

		keys = append(keys, key)
	}

	assert.Equal(t, []int{10, 20, 30, 40, 50}, keys)

	// One-shot: an exhausted iterator stays exhausted.
	for range 3 {
		_, _, ok := iterator.Next()
		assert.False(t, ok)
	}
}

func TestIteratorStackIsBoundedByHeight(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()

	for key := range 1000 {
		tree.Insert(key, key)
	}

	height := tree.Height()
	iterator := tree.Iter()
	assert.LessOrEqual(t, len(iterator.stack), height)

	count := 0

	for _, _, ok := iterator.Next(); ok; _, _, ok = iterator.Next() {
		assert.LessOrEqual(t, len(iterator.stack), height)

		count++
	}

	assert.Equal(t, 1000, count)
}

func TestIteratorPanicsAfterInsert(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()
	tree.Insert(1, 1)
	tree.Insert(2, 2)

	iterator := tree.Iter()
	_, _, ok := iterator.Next()
	require.True(t, ok)

	tree.Insert(3, 3)
	assert.PanicsWithValue(t, "rbtree: map modified during iteration", func() { iterator.Next() })
}

func TestIteratorPanicsAfterRemove(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()
	tree.Insert(1, 1)
	tree.Insert(2, 2)

	iterator := tree.Iter()
	tree.Remove(2)
	assert.PanicsWithValue(t, "rbtree: map modified during iteration", func() { iterator.Next() })
}

func TestIteratorAllowsValueUpdates(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()

	for key := range 10 {
		tree.Insert(key, 0)
	}

	for key := range tree.Keys() {
		tree.Insert(key, key*key)
	}

	_, values := collect(tree)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, values)
}

func TestAllStopsEarly(t *testing.T) {
	t.Parallel()

	tree := testNewIntMap()

	for key := range 10 {
		tree.Insert(key, key)
	}

	var seen []int

	for key := range tree.All() {
		if key == 3 {
			break
		}

		seen = append(seen, key)
	}

	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, slices.Collect(func(yield func(int) bool) {
		for key := range tree.Keys() {
			if key > 4 || !yield(key) {
				return
			}
		}
	}))
}
