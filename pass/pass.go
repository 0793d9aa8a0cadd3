// Package pass implements frame graph pass recording (spec.md §4.E): a
// declared set of resource usages plus an execute callback, carried
// through a small state machine from declaration to finalization.
//
// The state machine is reproduced nearly verbatim from the teacher's
// CommandEncoderStatus (core/command.go), which stores an atomic.Int32
// status guarded by a mutex for the handful of operations (BeginRenderPass,
// EndRenderPass, Finish) that must check-then-transition atomically. Pass
// has three states instead of the teacher's five, since a frame graph pass
// only has a declare step, one execute step, and a terminal step — there
// is no separate "locked while a sub-pass is open" state because a Record
// IS the sub-pass.
package pass

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/usage"
)

// Kind identifies which of the frame graph's five pass shapes a Record is.
type Kind uint8

const (
	Draw Kind = iota
	Compute
	Blit
	External
	CPU
)

func (k Kind) String() string {
	switch k {
	case Draw:
		return "Draw"
	case Compute:
		return "Compute"
	case Blit:
		return "Blit"
	case External:
		return "External"
	case CPU:
		return "CPU"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Status is a pass record's lifecycle state.
type Status int32

const (
	// Declared: the pass has been created and is accumulating usage
	// declarations; Begin has not yet been called.
	Declared Status = iota
	// Recording: Begin has been called, the execute callback is running
	// (or about to run) against a live encoder.
	Recording
	// Finalized: Finalize has been called; every declared usage has been
	// flushed to the tracker.
	Finalized
)

func (s Status) String() string {
	switch s {
	case Declared:
		return "Declared"
	case Recording:
		return "Recording"
	case Finalized:
		return "Finalized"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// pendingUsage is a usage declaration awaiting the final command count,
// known only once the execute callback has finished emitting commands.
type pendingUsage struct {
	Handle handle.Handle
	Access usage.AccessType
	Stages usage.StageMask
}

// Record is one recorded pass: an identity, a declared set of resource
// usages, and an execute callback invoked once the frame compiler has
// opened an encoder for it.
type Record struct {
	id     uint32
	name   string
	kind   Kind
	queue  string
	status atomic.Int32
	mu     sync.Mutex

	tracker *usage.Tracker
	pending []pendingUsage
	commands uint32

	renderTarget *hal.RenderPassDescriptor

	drawExecute     func(*DrawEncoder) error
	computeExecute  func(*ComputeEncoder) error
	blitExecute     func(*BlitEncoder) error
	externalExecute func(*ExternalEncoder) error
	cpuExecute      func() error
}

func newRecord(id uint32, name string, kind Kind, queueName string, tracker *usage.Tracker) *Record {
	r := &Record{id: id, name: name, kind: kind, queue: queueName, tracker: tracker}
	r.status.Store(int32(Declared))
	return r
}

// NewDraw declares a Draw pass with the given render-pass execute body.
// target is the render-target descriptor (load/store/clear actions and
// attachment views) this pass declares for dependency analysis and
// encoder partitioning; it may be nil for a Draw pass that opens no
// render pass of its own (rare, but not disallowed). It is metadata only
// — the execute callback still opens its own render pass against the
// live encoder via DrawEncoder.BeginRenderPass, and should pass a
// descriptor consistent with target.
func NewDraw(id uint32, name, queueName string, tracker *usage.Tracker, target *hal.RenderPassDescriptor, execute func(*DrawEncoder) error) *Record {
	r := newRecord(id, name, Draw, queueName, tracker)
	r.renderTarget = target
	r.drawExecute = execute
	return r
}

// NewCompute declares a Compute pass.
func NewCompute(id uint32, name, queueName string, tracker *usage.Tracker, execute func(*ComputeEncoder) error) *Record {
	r := newRecord(id, name, Compute, queueName, tracker)
	r.computeExecute = execute
	return r
}

// NewBlit declares a Blit (copy) pass.
func NewBlit(id uint32, name, queueName string, tracker *usage.Tracker, execute func(*BlitEncoder) error) *Record {
	r := newRecord(id, name, Blit, queueName, tracker)
	r.blitExecute = execute
	return r
}

// NewExternal declares an External pass: an escape hatch that gets raw
// hal.CommandEncoder access for work the frame graph has no typed encoder
// for (e.g. calling into a third-party rendering library).
func NewExternal(id uint32, name, queueName string, tracker *usage.Tracker, execute func(*ExternalEncoder) error) *Record {
	r := newRecord(id, name, External, queueName, tracker)
	r.externalExecute = execute
	return r
}

// NewCPU declares a CPU pass: host-side work with no GPU encoder at all,
// ordered in the frame graph purely for its declared resource usages
// (e.g. reading back a persistent buffer once its wait frame completes).
func NewCPU(id uint32, name, queueName string, tracker *usage.Tracker, execute func() error) *Record {
	r := newRecord(id, name, CPU, queueName, tracker)
	r.cpuExecute = execute
	return r
}

// ID returns the pass's identity, stable for the lifetime of the frame.
func (r *Record) ID() uint32 { return r.id }

// Name returns the pass's debug label.
func (r *Record) Name() string { return r.name }

// Kind returns which of the five pass shapes this record is.
func (r *Record) Kind() Kind { return r.kind }

// Queue returns the name of the logical queue this pass is scheduled on.
func (r *Record) Queue() string { return r.queue }

// RenderTarget returns the render-target descriptor a Draw pass declared
// at construction, or nil for every other Kind (or a Draw pass that
// declared none).
func (r *Record) RenderTarget() *hal.RenderPassDescriptor { return r.renderTarget }

// Status returns the pass's current lifecycle state.
func (r *Record) Status() Status { return Status(r.status.Load()) }

// Use declares that this pass accesses h with the given access type and
// pipeline stages. It may only be called while the pass is Declared; the
// usage is not visible to the tracker until DeclareUsage or Finalize
// flushes it.
func (r *Record) Use(h handle.Handle, access usage.AccessType, stages usage.StageMask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status() != Declared {
		return fmt.Errorf("pass %q: Use called while status is %s, want %s", r.name, r.Status(), Declared)
	}
	r.pending = append(r.pending, pendingUsage{Handle: h, Access: access, Stages: stages})
	return nil
}

// Uses returns every usage declared so far, in declaration order.
func (r *Record) Uses() []struct {
	Handle handle.Handle
	Access usage.AccessType
	Stages usage.StageMask
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]struct {
		Handle handle.Handle
		Access usage.AccessType
		Stages usage.StageMask
	}, len(r.pending))
	for i, p := range r.pending {
		out[i] = struct {
			Handle handle.Handle
			Access usage.AccessType
			Stages usage.StageMask
		}(p)
	}
	return out
}

// nextCommand reserves the next command index, for the typed encoders to
// call so the usage history records a non-trivial command range.
func (r *Record) nextCommand() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.commands
	r.commands++
	return idx
}

// Begin transitions the pass from Declared to Recording and runs its
// execute callback against the typed encoder matching its Kind. encoder
// must be the hal encoder (or sub-encoder) appropriate for r.Kind(), or nil
// for a CPU pass.
func (r *Record) Begin(enc hal.CommandEncoder) error {
	if !r.status.CompareAndSwap(int32(Declared), int32(Recording)) {
		return fmt.Errorf("pass %q: Begin called while status is %s, want %s", r.name, r.Status(), Declared)
	}

	switch r.kind {
	case Draw:
		if r.drawExecute == nil {
			return nil
		}
		return r.drawExecute(&DrawEncoder{record: r, enc: enc})
	case Compute:
		if r.computeExecute == nil {
			return nil
		}
		return r.computeExecute(&ComputeEncoder{record: r, enc: enc})
	case Blit:
		if r.blitExecute == nil {
			return nil
		}
		return r.blitExecute(&BlitEncoder{record: r, enc: enc})
	case External:
		if r.externalExecute == nil {
			return nil
		}
		return r.externalExecute(&ExternalEncoder{record: r, enc: enc})
	case CPU:
		if r.cpuExecute == nil {
			return nil
		}
		return r.cpuExecute()
	default:
		return fmt.Errorf("pass %q: unknown kind %s", r.name, r.kind)
	}
}

// DeclareUsage flushes every usage declared so far into the tracker with a
// provisional [0,1) command range, without transitioning the pass's
// status. It lets the frame graph build a complete usage history — and
// run dependency analysis against it — before any pass's execute callback
// has run, since the real per-command range is only known after Begin
// records it. Usages flushed this way are cleared from pending, so a
// later Finalize (called once Begin has run against the real encoder)
// does not record them twice.
func (r *Record) DeclareUsage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		r.tracker.Record(p.Handle, usage.PassRef{ID: r.id, Name: r.name}, 0, 1, p.Access, p.Stages)
	}
	r.pending = nil
}

// Finalize transitions the pass from Recording to Finalized and flushes
// every declared usage into the tracker, spanning the whole pass's command
// range [0, commands).
func (r *Record) Finalize() error {
	if !r.status.CompareAndSwap(int32(Recording), int32(Finalized)) {
		return fmt.Errorf("pass %q: Finalize called while status is %s, want %s", r.name, r.Status(), Recording)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	end := r.commands
	if end == 0 {
		end = 1
	}
	for _, p := range r.pending {
		r.tracker.Record(p.Handle, usage.PassRef{ID: r.id, Name: r.name}, 0, end, p.Access, p.Stages)
	}
	return nil
}

// CommandCount returns how many commands were emitted by this pass's
// execute callback. Only meaningful after Finalize.
func (r *Record) CommandCount() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands
}

// RenderTargetsCompatible reports whether two render-target descriptors
// describe the same physical attachments, so the passes that declared
// them can share one subpass/render pass instead of each opening its own:
// same attachment count, same views (compared by interface identity, the
// only equality hal.TextureView offers), and identical load/store actions
// for every attachment a fused pass would otherwise have to re-declare.
// Either argument may be nil, in which case they are compatible only if
// both are nil.
func RenderTargetsCompatible(a, b *hal.RenderPassDescriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.ColorAttachments) != len(b.ColorAttachments) {
		return false
	}
	for i := range a.ColorAttachments {
		ca, cb := a.ColorAttachments[i], b.ColorAttachments[i]
		if ca.View != cb.View || ca.ResolveTarget != cb.ResolveTarget {
			return false
		}
		if ca.LoadOp != cb.LoadOp || ca.StoreOp != cb.StoreOp {
			return false
		}
	}
	da, db := a.DepthStencilAttachment, b.DepthStencilAttachment
	if (da == nil) != (db == nil) {
		return false
	}
	if da == nil {
		return true
	}
	return da.View == db.View &&
		da.DepthLoadOp == db.DepthLoadOp && da.DepthStoreOp == db.DepthStoreOp &&
		da.StencilLoadOp == db.StencilLoadOp && da.StencilStoreOp == db.StencilStoreOp &&
		da.DepthReadOnly == db.DepthReadOnly && da.StencilReadOnly == db.StencilReadOnly
}

// RenderPassGroup is a maximal run of consecutive, same-queue passes of
// one Kind that can share a single hal.CommandEncoder: for Draw passes,
// this is exactly the spec's subpass-merging rule ("adjacent draw passes
// with compatible render-target descriptors fuse into one render pass");
// for every other Kind it degenerates to "a run of that Kind on that
// queue," since only Draw passes carry a render target to compare.
type RenderPassGroup struct {
	Queue  string
	Kind   Kind
	Target *hal.RenderPassDescriptor
	Passes []*Record
}

// GroupRenderPasses partitions passes (in declaration order) into
// RenderPassGroup runs. A new group starts whenever the pass kind or
// queue changes, or — for two consecutive Draw passes on the same queue —
// whenever RenderTargetsCompatible reports the new pass's target isn't
// compatible with the group's. Callers needing a pass's subpass index
// within its fused render pass can take the position of p within the
// group containing it.
func GroupRenderPasses(passes []*Record) []RenderPassGroup {
	var groups []RenderPassGroup
	for _, p := range passes {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.Kind == p.Kind() && last.Queue == p.Queue() &&
				(p.Kind() != Draw || RenderTargetsCompatible(last.Target, p.RenderTarget())) {
				last.Passes = append(last.Passes, p)
				continue
			}
		}
		groups = append(groups, RenderPassGroup{Queue: p.Queue(), Kind: p.Kind(), Target: p.RenderTarget(), Passes: []*Record{p}})
	}
	return groups
}
