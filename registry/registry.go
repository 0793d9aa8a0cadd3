// Package registry implements the frame graph's chunked resource registry
// (spec.md §4.B): index-addressed column storage for resource descriptors,
// labels, state flags, and per-frame wait-frame counters, split into
// transient (reset every frame) and persistent (caller-managed lifetime)
// instances per resource kind.
//
// This generalizes the teacher's Storage[T, M] (core/storage.go), which is
// a single contiguous slice that doubles and copies on growth, into a
// slice-of-fixed-size-chunks so that a pointer obtained from one chunk
// stays valid as the registry grows — the spec calls this out explicitly
// ("Registries are column stores arranged in fixed-size chunks"). The
// Registry/Storage split (identity allocation vs. item storage) is kept,
// renamed Chunked to match the column-store vocabulary spec.md uses.
package registry

import (
	"container/heap"
	"sync"

	"github.com/rhizomegfx/framegraph/handle"
)

// DefaultChunkSize is the typical chunk size named in spec.md §3.
const DefaultChunkSize = 256

// Kind distinguishes a transient registry (reset every frame, indices
// recycled collectively) from a persistent one (caller-managed, indices
// freed individually once their wait-frame has completed).
type Kind uint8

const (
	Transient Kind = iota
	Persistent
)

// StateFlags holds per-resource runtime state (spec.md §3).
type StateFlags uint8

// Initialised is set once a resource has been written to by any pass or
// CPU path (spec.md invariant 3).
const Initialised StateFlags = 1 << 0

// Meta is the set of parallel columns the spec names alongside each
// resource's descriptor: label, state flags, usage-list head, and the two
// wait-frame counters that gate persistent-resource CPU access and deferred
// disposal.
type Meta struct {
	Label          string
	State          StateFlags
	ReadWaitFrame  uint64
	WriteWaitFrame uint64
	// UsageHead is opaque storage for the usage package's per-resource usage
	// list head, so the registry carries the column the spec names without
	// importing the usage package (which would create an import cycle,
	// since usage classifies access types per resource *kind* and the
	// registry is kind-agnostic).
	UsageHead any
	// BaseResource is set for resourceView handles: the view's usage list
	// aliases the base resource's (spec.md §9, "Cyclic/shared graphs").
	BaseResource handle.Handle
}

type slot[T any] struct {
	valid      bool
	flags      handle.Flags
	descriptor T
	meta       Meta
}

type chunk[T any] struct {
	slots [DefaultChunkSize]slot[T]
}

// disposeEntry is a deferred-dispose heap entry for persistent resources,
// keyed by max(readWaitFrame, writeWaitFrame) per spec.md §4.B.
type disposeEntry struct {
	index     uint32
	waitFrame uint64
}

type disposeHeap []disposeEntry

func (h disposeHeap) Len() int            { return len(h) }
func (h disposeHeap) Less(i, j int) bool  { return h[i].waitFrame < h[j].waitFrame }
func (h disposeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *disposeHeap) Push(x any)         { *h = append(*h, x.(disposeEntry)) }
func (h *disposeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Chunked is a column-store registry for one resource kind (e.g. all
// transient Buffers, or all persistent Textures).
type Chunked[T any] struct {
	mu        sync.RWMutex
	kind      Kind
	chunkSize int
	chunks    []*chunk[T]
	next      uint32
	free      []uint32 // LIFO reuse pool
	dispose   disposeHeap
}

// New creates an empty chunked registry of the given kind.
func New[T any](kind Kind) *Chunked[T] {
	return &Chunked[T]{kind: kind, chunkSize: DefaultChunkSize}
}

func (c *Chunked[T]) locate(index uint32) (chunkIdx, slotIdx int) {
	return int(index) / c.chunkSize, int(index) % c.chunkSize
}

// ensureChunk grows the chunk slice so that index is addressable. Must be
// called with the write lock held.
func (c *Chunked[T]) ensureChunk(chunkIdx int) {
	for len(c.chunks) <= chunkIdx {
		c.chunks = append(c.chunks, &chunk[T]{})
	}
}

// Allocate reserves the next index (reusing a freed one for persistent
// registries when available) and stores descriptor/flags. Amortized O(1):
// a new chunk is appended only when the current one is full.
func (c *Chunked[T]) Allocate(descriptor T, flags handle.Flags) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var index uint32
	if c.kind == Persistent && len(c.free) > 0 {
		index = c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
	} else {
		index = c.next
		c.next++
	}

	chunkIdx, slotIdx := c.locate(index)
	c.ensureChunk(chunkIdx)
	c.chunks[chunkIdx].slots[slotIdx] = slot[T]{
		valid:      true,
		flags:      flags,
		descriptor: descriptor,
	}
	return index
}

// Get returns the descriptor, flags, and metadata at index.
func (c *Chunked[T]) Get(index uint32) (descriptor T, flags handle.Flags, meta Meta, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chunkIdx, slotIdx := c.locate(index)
	if chunkIdx >= len(c.chunks) {
		return descriptor, 0, Meta{}, false
	}
	s := &c.chunks[chunkIdx].slots[slotIdx]
	if !s.valid {
		return descriptor, 0, Meta{}, false
	}
	return s.descriptor, s.flags, s.meta, true
}

// Mutate applies fn to the slot at index while holding the write lock,
// giving callers a way to update descriptor/meta fields in place. Per-slot
// mutations need not be atomic with respect to other slots, only ordered by
// the frame lifecycle, so a single coarse lock over the whole registry is
// sufficient.
func (c *Chunked[T]) Mutate(index uint32, fn func(descriptor *T, meta *Meta)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	chunkIdx, slotIdx := c.locate(index)
	if chunkIdx >= len(c.chunks) {
		return false
	}
	s := &c.chunks[chunkIdx].slots[slotIdx]
	if !s.valid {
		return false
	}
	fn(&s.descriptor, &s.meta)
	return true
}

// Contains reports whether index currently names a live resource.
func (c *Chunked[T]) Contains(index uint32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunkIdx, slotIdx := c.locate(index)
	if chunkIdx >= len(c.chunks) {
		return false
	}
	return c.chunks[chunkIdx].slots[slotIdx].valid
}

// Dispose removes index immediately. For a Persistent registry, prefer
// DisposeDeferred so the slot is only recycled once the GPU has finished
// with it; Dispose here is for transient resources and for the double-free
// check a caller may want before re-disposing.
func (c *Chunked[T]) Dispose(index uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposeLocked(index)
}

func (c *Chunked[T]) disposeLocked(index uint32) bool {
	chunkIdx, slotIdx := c.locate(index)
	if chunkIdx >= len(c.chunks) {
		return false
	}
	s := &c.chunks[chunkIdx].slots[slotIdx]
	if !s.valid {
		return false
	}
	var zero T
	s.valid = false
	s.descriptor = zero
	s.meta = Meta{}
	if c.kind == Persistent {
		c.free = append(c.free, index)
	}
	return true
}

// DisposeDeferred enqueues index for the persistent deferred-free list,
// keyed by the resource's wait frame (max of its read/write wait frames).
// It must not be called on a Transient registry.
func (c *Chunked[T]) DisposeDeferred(index uint32, waitFrame uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	heap.Push(&c.dispose, disposeEntry{index: index, waitFrame: waitFrame})
}

// Drain pops and frees every deferred-dispose entry whose wait frame has
// completed on the GPU (waitFrame <= lastCompletedFrame), per spec.md §4.B
// ("drains entries whose key <= FrameCompletion.current at safe points").
func (c *Chunked[T]) Drain(lastCompletedFrame uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.dispose) > 0 && c.dispose[0].waitFrame <= lastCompletedFrame {
		e := heap.Pop(&c.dispose).(disposeEntry)
		c.disposeLocked(e.index)
	}
}

// PendingDisposals reports how many entries are still waiting to drain.
func (c *Chunked[T]) PendingDisposals() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dispose)
}

// CycleFrames resets a Transient registry in one shot: every index is
// freed and index allocation restarts from zero, matching spec.md's
// "transient indices reset each frame". It is a no-op on a Persistent
// registry.
func (c *Chunked[T]) CycleFrames() {
	if c.kind != Transient {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.chunks {
		for i := range ch.slots {
			if ch.slots[i].valid {
				var zero T
				ch.slots[i] = slot[T]{descriptor: zero}
			}
		}
	}
	c.next = 0
	c.free = c.free[:0]
}

// Len reports the slot capacity of the chunks currently allocated (chunk
// count times chunk size), mostly useful for diagnostics and tests.
func (c *Chunked[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks) * c.chunkSize
}

// ForEach iterates live entries in index order. Returning false from fn
// stops iteration early.
func (c *Chunked[T]) ForEach(fn func(index uint32, descriptor T, flags handle.Flags, meta Meta) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := uint32(0)
	for _, ch := range c.chunks {
		for i := range ch.slots {
			if ch.slots[i].valid {
				if !fn(idx, ch.slots[i].descriptor, ch.slots[i].flags, ch.slots[i].meta) {
					return
				}
			}
			idx++
		}
	}
}
