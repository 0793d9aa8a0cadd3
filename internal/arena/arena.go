// Package arena provides a tagged bump allocator for per-frame data that is
// freed as one unit at frame end, rather than node-by-node.
//
// Usage lists (usage.Tracker) and compacted resource commands
// (compile.ResourceCommand) are both allocated from an Arena so the frame
// compiler never has to free individual linked-list nodes: the whole arena
// is reset once the frame has been submitted. No third-party arena
// allocator appears anywhere in the example corpus, and the need here is
// small and internal enough (a handful of typed free-lists) that pulling in
// a dependency for it would not buy anything a plain slice-backed pool
// doesn't already give us.
package arena

import "sync"

// Tag identifies which logical arena a value was allocated from, so that
// resetting one tag never disturbs another (mirrors the "resourceCommandArrayTag"
// naming convention called out in the design notes).
type Tag string

// Arena is a growable pool of same-type values, reused across Reset calls.
// It is not safe for concurrent use by multiple goroutines without external
// synchronization; each frame owns exactly one Arena per tag.
type Arena[T any] struct {
	tag    Tag
	values []T
	len    int
}

// New creates an empty arena for values of type T under the given tag.
func New[T any](tag Tag) *Arena[T] {
	return &Arena[T]{tag: tag}
}

// Tag returns the arena's tag.
func (a *Arena[T]) Tag() Tag { return a.tag }

// Alloc appends a zero-value T and returns a pointer to it, valid until the
// next Reset. The returned pointer must not be retained past Reset.
func (a *Arena[T]) Alloc() *T {
	if a.len < len(a.values) {
		idx := a.len
		a.len++
		var zero T
		a.values[idx] = zero
		return &a.values[idx]
	}
	var zero T
	a.values = append(a.values, zero)
	a.len = len(a.values)
	return &a.values[a.len-1]
}

// Push appends v and returns a pointer to the stored copy.
func (a *Arena[T]) Push(v T) *T {
	p := a.Alloc()
	*p = v
	return p
}

// Len returns the number of values currently live in the arena.
func (a *Arena[T]) Len() int { return a.len }

// Slice returns the live portion of the backing storage. The slice is only
// valid until the next Alloc/Push/Reset call.
func (a *Arena[T]) Slice() []T { return a.values[:a.len] }

// Reset frees all values as one unit, retaining the backing storage for
// reuse by the next frame.
func (a *Arena[T]) Reset() { a.len = 0 }

// Pool hands out arenas of a fixed tag, recycling freed ones so repeated
// frames do not reallocate backing storage every cycle.
type Pool[T any] struct {
	tag  Tag
	mu   sync.Mutex
	free []*Arena[T]
}

// NewPool creates a pool of arenas tagged with tag.
func NewPool[T any](tag Tag) *Pool[T] {
	return &Pool[T]{tag: tag}
}

// Get returns a reset arena, reusing a previously released one if available.
func (p *Pool[T]) Get() *Arena[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		a := p.free[n-1]
		p.free = p.free[:n-1]
		a.Reset()
		return a
	}
	return New[T](p.tag)
}

// Put releases an arena back to the pool after the frame that owned it has
// finished executing.
func (p *Pool[T]) Put(a *Arena[T]) {
	if a == nil {
		return
	}
	a.Reset()
	p.mu.Lock()
	p.free = append(p.free, a)
	p.mu.Unlock()
}
