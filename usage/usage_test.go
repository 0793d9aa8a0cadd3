package usage

import (
	"testing"

	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/internal/arena"
	"github.com/rhizomegfx/framegraph/registry"
	"github.com/rhizomegfx/framegraph/types"
)

func TestIsReadOnly(t *testing.T) {
	readOnly := []AccessType{Read, ConstantBuffer, BlitSource, VertexBuffer, IndexBuffer, Sampler, InputAttachment}
	for _, a := range readOnly {
		if !IsReadOnly(a) {
			t.Errorf("expected %s to be read-only", a)
		}
	}
	writes := []AccessType{Write, ReadWrite, BlitDestination, ReadWriteRenderTarget, WriteOnlyRenderTarget}
	for _, a := range writes {
		if IsReadOnly(a) {
			t.Errorf("expected %s to not be read-only", a)
		}
		if !IsWrite(a) {
			t.Errorf("expected %s to be classified as a write", a)
		}
	}
}

func TestIsCompatibleOnlyForReadOnlyPairs(t *testing.T) {
	if !IsCompatible(Read, Sampler) {
		t.Error("two read-only accesses should be compatible")
	}
	if IsCompatible(Read, Write) {
		t.Error("a read followed by a write should not be compatible")
	}
	if IsCompatible(Write, Write) {
		t.Error("two writes should not be compatible")
	}
}

func newTestTracker() (*Tracker, *registry.Hub, handle.Handle) {
	hub := registry.NewHub()
	a := arena.New[Record]("test")
	tr := NewTracker(hub, a)
	h := hub.AllocateBuffer(types.BufferDescriptor{Size: 64}, 0)
	return tr, hub, h
}

func TestTrackerRecordOrdersHistory(t *testing.T) {
	tr, _, h := newTestTracker()

	tr.Record(h, PassRef{ID: 1, Name: "upload"}, 0, 1, Write, StageHost)
	tr.Record(h, PassRef{ID: 2, Name: "draw"}, 1, 5, Read, StageVertex)
	tr.Record(h, PassRef{ID: 3, Name: "draw"}, 1, 5, Sampler, StageFragment)

	hist := tr.History(h)
	if len(hist) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(hist))
	}
	if hist[0].Access != Write || hist[1].Access != Read || hist[2].Access != Sampler {
		t.Fatalf("history out of order: %+v", hist)
	}
	if hist[0].Pass.Name != "upload" || hist[2].Pass.Name != "draw" {
		t.Fatalf("pass attribution lost: %+v", hist)
	}
}

func TestTrackerHistoryEmptyForUntouchedResource(t *testing.T) {
	tr, hub, _ := newTestTracker()
	other := hub.AllocateBuffer(types.BufferDescriptor{Size: 4}, 0)
	if hist := tr.History(other); len(hist) != 0 {
		t.Fatalf("expected no history for untouched resource, got %d entries", len(hist))
	}
}

func TestTrackerClearDropsHistory(t *testing.T) {
	tr, _, h := newTestTracker()
	tr.Record(h, PassRef{ID: 1}, 0, 1, Write, StageHost)
	tr.Clear(h)
	if hist := tr.History(h); len(hist) != 0 {
		t.Fatalf("expected history cleared, got %d entries", len(hist))
	}
}
