package framegraph

import (
	"fmt"
	"sync"

	"github.com/rhizomegfx/framegraph/analyze"
	"github.com/rhizomegfx/framegraph/compile"
	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/internal/arena"
	"github.com/rhizomegfx/framegraph/pass"
	"github.com/rhizomegfx/framegraph/usage"
)

// Frame is one frame's worth of declared passes and resource usages,
// produced by Graph.BeginFrame and consumed by a single Submit call.
//
// The declare/compile/execute split is the frame graph's core discipline
// (spec.md §4): AddDraw/AddCompute/etc. and Use only ever append
// declarations — no pass's execute callback runs and no command is issued
// until Submit replays them in dependency order.
type Frame struct {
	graph  *Graph
	number uint64

	tracker    *usage.Tracker
	usageArena *arena.Arena[usage.Record]
	cmdArena   *arena.Arena[compile.ResourceCommand]

	mu        sync.Mutex
	nextID    uint32
	passes    []*pass.Record
	resources []handle.Handle
	seen      map[handle.Handle]bool
	queueOf   map[uint32]string
	submitted bool
}

// Number returns this frame's monotonically increasing sequence number.
func (f *Frame) Number() uint64 { return f.number }

func (f *Frame) addPass(r *pass.Record) *pass.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes = append(f.passes, r)
	f.queueOf[r.ID()] = r.Queue()
	return r
}

func (f *Frame) nextPassID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

// AddDraw declares a Draw pass on queueName, with target describing the
// render-target attachments (load/store/clear actions) it renders into —
// used by dependency analysis to decide whether this pass can fuse into
// the same render pass as an adjacent Draw pass. target may be nil. The
// execute callback does not run until Submit.
func (f *Frame) AddDraw(name, queueName string, target *hal.RenderPassDescriptor, execute func(*pass.DrawEncoder) error) *pass.Record {
	return f.addPass(pass.NewDraw(f.nextPassID(), name, queueName, f.tracker, target, execute))
}

// AddCompute declares a Compute pass on queueName.
func (f *Frame) AddCompute(name, queueName string, execute func(*pass.ComputeEncoder) error) *pass.Record {
	return f.addPass(pass.NewCompute(f.nextPassID(), name, queueName, f.tracker, execute))
}

// AddBlit declares a Blit (copy) pass on queueName.
func (f *Frame) AddBlit(name, queueName string, execute func(*pass.BlitEncoder) error) *pass.Record {
	return f.addPass(pass.NewBlit(f.nextPassID(), name, queueName, f.tracker, execute))
}

// AddExternal declares an External pass on queueName: an escape hatch that
// gets raw hal.CommandEncoder access.
func (f *Frame) AddExternal(name, queueName string, execute func(*pass.ExternalEncoder) error) *pass.Record {
	return f.addPass(pass.NewExternal(f.nextPassID(), name, queueName, f.tracker, execute))
}

// AddCPU declares a CPU pass on queueName: host-side work with no GPU
// encoder, ordered purely by its declared resource usages (e.g. a readback
// that must wait for a persistent resource's last write to retire).
func (f *Frame) AddCPU(name, queueName string, execute func() error) *pass.Record {
	return f.addPass(pass.NewCPU(f.nextPassID(), name, queueName, f.tracker, execute))
}

// Use declares that p accesses h with the given access type and pipeline
// stages, and registers h as a resource this frame's dependency analysis
// must consider. p must still be Declared (i.e. Use must be called before
// Submit).
func (f *Frame) Use(p *pass.Record, h handle.Handle, access usage.AccessType, stages usage.StageMask) error {
	if err := p.Use(h, access, stages); err != nil {
		return err
	}
	f.mu.Lock()
	if !f.seen[h] {
		f.seen[h] = true
		f.resources = append(f.resources, h)
	}
	f.mu.Unlock()
	return nil
}

func (f *Frame) queueFor(passID uint32) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queueOf[passID]
}

// Submit flushes any pending GPU uploads, runs dependency analysis and
// frame compilation over every pass declared so far, then executes the
// compiled command stream and advances frame bookkeeping. It may only be
// called once per Frame.
func (f *Frame) Submit() error {
	f.mu.Lock()
	if f.submitted {
		f.mu.Unlock()
		return ErrReleased
	}
	f.submitted = true
	passes := f.passes
	resources := f.resources
	f.mu.Unlock()

	if err := f.graph.uploader.Flush(); err != nil {
		return fmt.Errorf("framegraph: flush uploads: %w", err)
	}

	for _, p := range passes {
		p.DeclareUsage()
	}

	edges := analyze.Analyze(f.tracker, resources, passes, f.queueFor)
	info := compile.Compile(passes, edges, f.cmdArena)

	if err := f.graph.executor.Execute(info); err != nil {
		return fmt.Errorf("framegraph: execute frame %d: %w", f.number, err)
	}
	if err := f.graph.executor.EndFrame(f.number); err != nil {
		return fmt.Errorf("framegraph: end frame %d: %w", f.number, err)
	}

	f.graph.usageArenas.Put(f.usageArena)
	f.graph.cmdArenas.Put(f.cmdArena)
	return nil
}
