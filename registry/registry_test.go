package registry

import (
	"testing"

	"github.com/rhizomegfx/framegraph/handle"
)

type descriptor struct {
	Size uint64
}

func TestAllocateGet(t *testing.T) {
	r := New[descriptor](Transient)
	idx := r.Allocate(descriptor{Size: 128}, 0)
	d, _, _, ok := r.Get(idx)
	if !ok {
		t.Fatal("expected live slot")
	}
	if d.Size != 128 {
		t.Fatalf("got size %d, want 128", d.Size)
	}
}

func TestChunkGrowth(t *testing.T) {
	r := New[descriptor](Persistent)
	n := DefaultChunkSize*2 + 3
	indices := make([]uint32, n)
	for i := 0; i < n; i++ {
		indices[i] = r.Allocate(descriptor{Size: uint64(i)}, 0)
	}
	for i, idx := range indices {
		d, _, _, ok := r.Get(idx)
		if !ok || d.Size != uint64(i) {
			t.Fatalf("index %d: got %+v ok=%v, want Size=%d", idx, d, ok, i)
		}
	}
	if len(r.chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for %d entries, got %d", n, len(r.chunks))
	}
}

func TestDisposeImmediateReusesIndex(t *testing.T) {
	r := New[descriptor](Persistent)
	idx := r.Allocate(descriptor{Size: 1}, 0)
	if !r.Dispose(idx) {
		t.Fatal("expected Dispose to succeed")
	}
	if r.Contains(idx) {
		t.Fatal("disposed index must not be live")
	}
	if r.Dispose(idx) {
		t.Fatal("double dispose must fail")
	}
	reused := r.Allocate(descriptor{Size: 2}, 0)
	if reused != idx {
		t.Fatalf("expected reuse of freed index %d, got %d", idx, reused)
	}
}

func TestDeferredDisposeDrainsAtCompletion(t *testing.T) {
	r := New[descriptor](Persistent)
	idx := r.Allocate(descriptor{Size: 1}, 0)
	r.DisposeDeferred(idx, 10)

	r.Drain(9)
	if !r.Contains(idx) {
		t.Fatal("resource must remain live before its wait frame completes")
	}
	if r.PendingDisposals() != 1 {
		t.Fatalf("expected 1 pending disposal, got %d", r.PendingDisposals())
	}

	r.Drain(10)
	if r.Contains(idx) {
		t.Fatal("resource must be freed once its wait frame has completed")
	}
	if r.PendingDisposals() != 0 {
		t.Fatalf("expected 0 pending disposals after drain, got %d", r.PendingDisposals())
	}
}

func TestDeferredDisposeOrdersByWaitFrame(t *testing.T) {
	r := New[descriptor](Persistent)
	a := r.Allocate(descriptor{Size: 1}, 0)
	b := r.Allocate(descriptor{Size: 2}, 0)
	c := r.Allocate(descriptor{Size: 3}, 0)
	r.DisposeDeferred(a, 30)
	r.DisposeDeferred(b, 10)
	r.DisposeDeferred(c, 20)

	r.Drain(15)
	if !r.Contains(a) || !r.Contains(c) {
		t.Fatal("only the lowest wait-frame entry should have drained")
	}
	if r.Contains(b) {
		t.Fatal("entry b should have drained by frame 15")
	}
}

func TestCycleFramesResetsTransientIndices(t *testing.T) {
	r := New[descriptor](Transient)
	for i := 0; i < 5; i++ {
		r.Allocate(descriptor{Size: uint64(i)}, 0)
	}
	r.CycleFrames()
	idx := r.Allocate(descriptor{Size: 99}, 0)
	if idx != 0 {
		t.Fatalf("expected index allocation to restart at 0 after CycleFrames, got %d", idx)
	}
	count := 0
	r.ForEach(func(uint32, descriptor, handle.Flags, Meta) bool { count++; return true })
	if count != 1 {
		t.Fatalf("expected exactly 1 live entry after cycle+reallocate, got %d", count)
	}
}

func TestMutateUpdatesInPlace(t *testing.T) {
	r := New[descriptor](Persistent)
	idx := r.Allocate(descriptor{Size: 1}, 0)
	ok := r.Mutate(idx, func(d *descriptor, m *Meta) {
		d.Size = 42
		m.Label = "renamed"
	})
	if !ok {
		t.Fatal("expected Mutate to succeed")
	}
	d, _, meta, _ := r.Get(idx)
	if d.Size != 42 || meta.Label != "renamed" {
		t.Fatalf("mutation did not stick: %+v %+v", d, meta)
	}
}

func TestForEachStopsEarly(t *testing.T) {
	r := New[descriptor](Persistent)
	for i := 0; i < 10; i++ {
		r.Allocate(descriptor{Size: uint64(i)}, 0)
	}
	seen := 0
	r.ForEach(func(uint32, descriptor, handle.Flags, Meta) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Fatalf("expected ForEach to stop after 3 entries, saw %d", seen)
	}
}
