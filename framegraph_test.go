package framegraph

import (
	"testing"

	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/hal/mock"
	"github.com/rhizomegfx/framegraph/pass"
	"github.com/rhizomegfx/framegraph/types"
	"github.com/rhizomegfx/framegraph/usage"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	device := &mock.Device{}
	g, err := Open(Config{
		Device: device,
		Queues: map[string]hal.Queue{
			"graphics": &mock.Queue{},
			"compute":  &mock.Queue{},
		},
		MaxFramesInFlight: 2,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(g.Release)
	return g
}

func TestOpenRejectsMissingDeviceOrQueues(t *testing.T) {
	if _, err := Open(Config{Queues: map[string]hal.Queue{"graphics": &mock.Queue{}}}); err == nil {
		t.Fatal("expected an error with no Device")
	}
	if _, err := Open(Config{Device: &mock.Device{}}); err == nil {
		t.Fatal("expected an error with no Queues")
	}
}

func TestSingleFrameCPUPassSubmitsCleanly(t *testing.T) {
	g := newTestGraph(t)
	buf := g.AllocateBuffer(types.BufferDescriptor{Size: 256}, 0)

	f := g.BeginFrame()
	ran := false
	p := f.AddCPU("readback", "graphics", func() error {
		ran = true
		return nil
	})
	if err := f.Use(p, buf.Handle, usage.Read, usage.StageHost); err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	if err := f.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !ran {
		t.Fatal("expected the CPU pass body to have run")
	}
}

func TestCrossQueuePassesSubmitWithoutError(t *testing.T) {
	g := newTestGraph(t)
	buf := g.AllocateBuffer(types.BufferDescriptor{Size: 64}, 0)

	f := g.BeginFrame()
	writer := f.AddCompute("producer", "compute", func(*pass.ComputeEncoder) error { return nil })
	if err := f.Use(writer, buf.Handle, usage.Write, usage.StageCompute); err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	reader := f.AddDraw("consumer", "graphics", nil, func(*pass.DrawEncoder) error { return nil })
	if err := f.Use(reader, buf.Handle, usage.VertexBuffer, usage.StageVertex); err != nil {
		t.Fatalf("Use failed: %v", err)
	}

	if err := f.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestSubmitTwiceFails(t *testing.T) {
	g := newTestGraph(t)
	f := g.BeginFrame()
	if err := f.Submit(); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if err := f.Submit(); err != ErrReleased {
		t.Fatalf("expected ErrReleased on second Submit, got %v", err)
	}
}

func TestSequentialFramesAdvanceFrameNumber(t *testing.T) {
	g := newTestGraph(t)
	first := g.BeginFrame()
	if err := first.Submit(); err != nil {
		t.Fatalf("first frame Submit failed: %v", err)
	}
	second := g.BeginFrame()
	if second.Number() != first.Number()+1 {
		t.Fatalf("expected frame numbers to increase, got %d then %d", first.Number(), second.Number())
	}
	if err := second.Submit(); err != nil {
		t.Fatalf("second frame Submit failed: %v", err)
	}
}
