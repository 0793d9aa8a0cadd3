package resource

import (
	"testing"

	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/types"
)

func TestMaterializableMaterializeOnce(t *testing.T) {
	m := NewMaterializable[int]()
	if m.IsMaterialized() {
		t.Fatal("expected fresh Materializable to be unmaterialized")
	}
	if got := m.Get(); got != nil {
		t.Fatalf("expected nil Get before Materialize, got %v", *got)
	}

	calls := 0
	v1 := m.MaterializeWith(func() int { calls++; return 42 })
	v2 := m.MaterializeWith(func() int { calls++; return 99 })
	if *v1 != 42 || *v2 != 42 {
		t.Fatalf("expected both materializations to return the first value, got %d and %d", *v1, *v2)
	}
	if calls != 1 {
		t.Fatalf("expected constructor to run exactly once, ran %d times", calls)
	}
	if !m.IsMaterialized() {
		t.Fatal("expected IsMaterialized true after Materialize")
	}
}

func TestMaterializableReset(t *testing.T) {
	m := NewMaterializable[int]()
	m.Materialize(7)
	m.Reset()
	if m.IsMaterialized() {
		t.Fatal("expected Reset to clear materialized state")
	}
	if got := m.Get(); got != nil {
		t.Fatalf("expected nil after Reset, got %v", *got)
	}
}

func TestBufferFacadeRoundTrip(t *testing.T) {
	hub := newTestHub()
	b := NewBuffer(hub, types.BufferDescriptor{Label: "vertices", Size: 1024}, 0)
	d, _, ok := b.Descriptor()
	if !ok || d.Size != 1024 {
		t.Fatalf("got %+v ok=%v", d, ok)
	}
	if b.Backing() != nil {
		t.Fatal("expected nil backing before materialization")
	}
}

func TestArgumentBufferAllocatesCorrectType(t *testing.T) {
	hub := newTestHub()
	ab := NewArgumentBuffer(hub, 256, "set0", 0)
	if ab.Handle.Type() != handle.TypeArgumentBuffer {
		t.Fatalf("expected TypeArgumentBuffer, got %s", ab.Handle.Type())
	}
}

func TestArgumentBufferArrayAllocatesCorrectType(t *testing.T) {
	hub := newTestHub()
	aba := NewArgumentBufferArray(hub, 256, 4, "bindless", handle.Persistent)
	if aba.Handle.Type() != handle.TypeArgumentBufferArray {
		t.Fatalf("expected TypeArgumentBufferArray, got %s", aba.Handle.Type())
	}
	if !aba.Handle.Flags().Contains(handle.Persistent) {
		t.Fatal("expected persistent flag to round-trip through the handle")
	}
}
