package registry

import (
	"testing"

	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/types"
)

func TestHubAllocateBufferTransientVsPersistent(t *testing.T) {
	h := NewHub()

	transientHdl := h.AllocateBuffer(types.BufferDescriptor{Label: "scratch", Size: 256}, 0)
	if transientHdl.Flags().Contains(handle.Persistent) {
		t.Fatal("expected transient handle")
	}
	d, _, ok := h.GetBuffer(transientHdl)
	if !ok || d.Size != 256 {
		t.Fatalf("got %+v ok=%v", d, ok)
	}

	persistentHdl := h.AllocateBuffer(types.BufferDescriptor{Label: "uniforms", Size: 1024}, handle.Persistent)
	if !persistentHdl.Flags().Contains(handle.Persistent) {
		t.Fatal("expected persistent handle")
	}
	d2, _, ok := h.GetBuffer(persistentHdl)
	if !ok || d2.Size != 1024 {
		t.Fatalf("got %+v ok=%v", d2, ok)
	}
}

func TestHubMutateMetaSetsUsageHead(t *testing.T) {
	h := NewHub()
	hdl := h.AllocateTexture(types.TextureDescriptor{Label: "colorTarget"}, 0)

	sentinel := "usage-list-head"
	if !h.MutateMeta(hdl, func(m *Meta) { m.UsageHead = &sentinel }) {
		t.Fatal("expected MutateMeta to succeed")
	}
	_, meta, ok := h.GetTexture(hdl)
	if !ok {
		t.Fatal("expected texture to still be live")
	}
	got, isString := meta.UsageHead.(*string)
	if !isString || got != &sentinel {
		t.Fatalf("usage head not set correctly: %+v", meta.UsageHead)
	}
}

func TestHubDisposeTransientImmediate(t *testing.T) {
	h := NewHub()
	hdl := h.AllocateBuffer(types.BufferDescriptor{Size: 8}, 0)
	if err := h.Dispose(hdl, 0); err != nil {
		t.Fatalf("unexpected error disposing transient handle: %v", err)
	}
	if _, _, ok := h.GetBuffer(hdl); ok {
		t.Fatal("expected transient handle to be gone immediately")
	}
}

func TestHubDisposePersistentDeferred(t *testing.T) {
	h := NewHub()
	hdl := h.AllocateBuffer(types.BufferDescriptor{Size: 8}, handle.Persistent)
	if err := h.Dispose(hdl, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, ok := h.GetBuffer(hdl); !ok {
		t.Fatal("persistent handle must remain live until its wait frame drains")
	}
	h.Drain(5)
	if _, _, ok := h.GetBuffer(hdl); ok {
		t.Fatal("expected persistent handle to be freed after Drain past its wait frame")
	}
}

func TestHubCycleFramesResetsOnlyTransient(t *testing.T) {
	h := NewHub()
	transientHdl := h.AllocateBuffer(types.BufferDescriptor{Size: 1}, 0)
	persistentHdl := h.AllocateBuffer(types.BufferDescriptor{Size: 2}, handle.Persistent)

	h.CycleFrames()

	if _, _, ok := h.GetBuffer(persistentHdl); !ok {
		t.Fatal("persistent handle must survive CycleFrames")
	}
	_ = transientHdl // the transient slot was wiped; its old handle is intentionally stale now.
	reused := h.AllocateBuffer(types.BufferDescriptor{Size: 3}, 0)
	if reused.Index() != 0 {
		t.Fatalf("expected transient index reuse to restart at 0, got %d", reused.Index())
	}
}
