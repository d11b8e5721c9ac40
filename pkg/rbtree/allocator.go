package rbtree

import (
	"math"
	"slices"
	"sync"

	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor for storage.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// Hibernated columns.
const (
	columnLeft = iota
	columnRight
	columnParent
	columnFlags
	columnGaps
	columnCount
)

// Node flag bits packed into the flags column while hibernated.
const (
	flagBlack = 1 << iota
	flagUsed
)

// maxNodes is the first index that can never be handed out. [math.MaxUint32] is reserved.
const maxNodes = math.MaxUint32

type node[K, V any] struct {
	key    K
	value  V
	parent uint32
	child  [2]uint32
	color  bool // Black or red.
	used   bool
}

type payload[K, V any] struct {
	key   K
	value V
}

// Allocator is the node arena of one or more maps. Nodes are addressed by
// uint32 indices; index 0 is reserved and stands for "no node". Freed slots
// are kept on a free list and handed out again before the arena grows.
//
// An Allocator may be shared by several maps with the same key and value
// types. It is not safe for concurrent use.
type Allocator[K, V any] struct {
	storage []node[K, V]
	gaps    []uint32

	// HibernationThreshold is the minimum number of slots for Hibernate to
	// compress anything.
	HibernationThreshold int

	hibernatedData    [columnCount][]byte
	hibernatedPayload []payload[K, V]
	hibernatedLen     int
	hibernatedGapsLen int
}

// NewAllocator creates a new allocator for map nodes.
func NewAllocator[K, V any]() *Allocator[K, V] {
	return &Allocator[K, V]{
		storage: []node[K, V]{},
		gaps:    []uint32{},
	}
}

// Size returns the number of allocated slots, including the reserved one.
func (allocator *Allocator[K, V]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes in the allocator.
func (allocator *Allocator[K, V]) Used() int {
	allocator.mustBeAwake()

	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - len(allocator.gaps) - 1
}

// Hibernated reports whether the allocator is compressed.
func (allocator *Allocator[K, V]) Hibernated() bool {
	return allocator.storage == nil
}

// HibernatedSize returns the number of bytes held by the compressed columns,
// or 0 when the allocator is awake.
func (allocator *Allocator[K, V]) HibernatedSize() int {
	size := 0
	for _, column := range allocator.hibernatedData {
		size += len(column)
	}

	return size
}

// Hibernate compresses the link, color and free-list columns with LZ4. Keys
// and values stay as they are. A hibernated allocator panics on any node
// access until Boot is called.
func (allocator *Allocator[K, V]) Hibernate() {
	if allocator.Hibernated() {
		panic("rbtree: cannot hibernate an already hibernated allocator")
	}

	if len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernatedLen = len(allocator.storage)
	if allocator.hibernatedLen == 0 {
		allocator.storage = nil
		allocator.gaps = nil

		return
	}

	columns := [columnGaps][]uint32{}
	for idx := range columns {
		columns[idx] = make([]uint32, len(allocator.storage))
	}

	allocator.hibernatedPayload = make([]payload[K, V], len(allocator.storage))

	// Deinterleave to achieve a better compression ratio.
	for idx, nd := range allocator.storage {
		columns[columnLeft][idx] = nd.child[left]
		columns[columnRight][idx] = nd.child[right]
		columns[columnParent][idx] = nd.parent
		columns[columnFlags][idx] = packFlags(nd)
		allocator.hibernatedPayload[idx] = payload[K, V]{key: nd.key, value: nd.value}
	}

	allocator.storage = nil

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 1)

	for idx, column := range columns {
		go func(colIdx int, col []uint32) {
			defer wg.Done()

			allocator.hibernatedData[colIdx] = CompressUInt32Slice(col)
		}(idx, column)
	}

	go func() {
		defer wg.Done()

		if len(allocator.gaps) > 0 {
			allocator.hibernatedGapsLen = len(allocator.gaps)

			gapsColumn := slices.Clone(allocator.gaps)
			slices.Sort(gapsColumn)
			DeltaEncodeUInt32Slice(gapsColumn)

			allocator.hibernatedData[columnGaps] = CompressUInt32Slice(gapsColumn)
		}

		allocator.gaps = nil
	}()

	wg.Wait()
}

// Boot performs the opposite of Hibernate: decompresses and restores the arena.
func (allocator *Allocator[K, V]) Boot() {
	if !allocator.Hibernated() {
		return
	}

	if allocator.hibernatedLen == 0 {
		allocator.storage = []node[K, V]{}
		allocator.gaps = []uint32{}

		return
	}

	columns := [columnGaps][]uint32{}
	errs := [columnCount]error{}

	wg := &sync.WaitGroup{}
	wg.Add(len(columns) + 1)

	for idx := range columns {
		go func(colIdx int) {
			defer wg.Done()

			columns[colIdx] = make([]uint32, allocator.hibernatedLen)
			errs[colIdx] = DecompressUInt32Slice(allocator.hibernatedData[colIdx], columns[colIdx])
			allocator.hibernatedData[colIdx] = nil
		}(idx)
	}

	gaps := make([]uint32, allocator.hibernatedGapsLen)

	go func() {
		defer wg.Done()

		if allocator.hibernatedGapsLen > 0 {
			errs[columnGaps] = DecompressUInt32Slice(allocator.hibernatedData[columnGaps], gaps)
			DeltaDecodeUInt32Slice(gaps)
			allocator.hibernatedData[columnGaps] = nil
		}
	}()

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			panic("rbtree: corrupted hibernated allocator: " + err.Error())
		}
	}

	capSize := (allocator.hibernatedLen * growCapacityNumerator) / growCapacityDenominator
	allocator.storage = make([]node[K, V], allocator.hibernatedLen, capSize)

	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		nd.key = allocator.hibernatedPayload[idx].key
		nd.value = allocator.hibernatedPayload[idx].value
		nd.child[left] = columns[columnLeft][idx]
		nd.child[right] = columns[columnRight][idx]
		nd.parent = columns[columnParent][idx]
		nd.color = columns[columnFlags][idx]&flagBlack != 0
		nd.used = columns[columnFlags][idx]&flagUsed != 0
	}

	allocator.gaps = gaps
	allocator.hibernatedPayload = nil
	allocator.hibernatedLen = 0
	allocator.hibernatedGapsLen = 0
}

func (allocator *Allocator[K, V]) mustBeAwake() {
	if allocator.Hibernated() {
		panic("rbtree: hibernated allocators cannot be used")
	}
}

func (allocator *Allocator[K, V]) nodes() []node[K, V] {
	allocator.mustBeAwake()

	return allocator.storage
}

func (allocator *Allocator[K, V]) malloc() uint32 {
	allocator.mustBeAwake()

	if last := len(allocator.gaps) - 1; last >= 0 {
		nodeIdx := allocator.gaps[last]
		allocator.gaps = allocator.gaps[:last]
		allocator.storage[nodeIdx].used = true

		return nodeIdx
	}

	if len(allocator.storage) == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[K, V]{})
	}

	nodeLen := len(allocator.storage)
	if uint64(nodeLen) >= maxNodes {
		panic("rbtree: the allocator has reached the maximum number of nodes")
	}

	allocator.storage = append(allocator.storage, node[K, V]{used: true})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator[K, V]) free(nodeIdx uint32) {
	allocator.mustBeAwake()

	if nodeIdx == 0 {
		panic("rbtree: node #0 is special and cannot be deallocated")
	}

	doAssert(allocator.storage[nodeIdx].used)

	// Drop references held by the key and value.
	allocator.storage[nodeIdx] = node[K, V]{}
	allocator.gaps = append(allocator.gaps, nodeIdx)
}

func packFlags[K, V any](nd node[K, V]) uint32 {
	var flags uint32

	if nd.color == black {
		flags |= flagBlack
	}

	if nd.used {
		flags |= flagUsed
	}

	return flags
}
