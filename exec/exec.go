// Package exec implements the frame graph executor (spec.md §4.I): it
// dispatches each compiled pass body through an encoder manager,
// interleaving the frame compiler's compacted resource-command stream
// (signal/wait/barrier) at the group boundaries the compiler attached them
// to, then submits each encoder group to its logical queue.
//
// The submit path is grounded on the teacher's queue.go Queue.Submit: a
// reserved fence value, hal.Queue.Submit, and a blocking hal.Device.Wait
// for synchronous retirement. Cross-queue CrossQueueSignalWait edges reuse
// the identical signal-then-wait pair, just against the producing queue's
// fence instead of the consumer's own. Frame-end bookkeeping — advancing
// the completion counter, cycling the registry's transient generation, and
// releasing the inflight semaphore — lives in EndFrame, mirroring how
// core/snatch.go confines the "safe to reclaim" decision to one place
// rather than scattering it across every resource's destructor.
package exec

import (
	"fmt"
	"sync"
	"time"

	"github.com/rhizomegfx/framegraph/analyze"
	"github.com/rhizomegfx/framegraph/compile"
	"github.com/rhizomegfx/framegraph/frame"
	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/registry"
)

// defaultWaitTimeout bounds how long each device fence wait blocks: the
// cross-queue waits in applyBefore and EndFrame's final waits.
const defaultWaitTimeout = 30 * time.Second

// BarrierResolver maps a same-queue Barrier edge to the concrete buffer and
// texture transitions a backend needs before the gated pass runs. Backends
// that need no explicit barriers (e.g. Metal, per hal/command.go's
// TransitionBuffers doc) can leave this nil; Executor then treats
// OpPipelineBarrier as a no-op, which is correct on those backends.
type BarrierResolver func(edge analyze.Edge) ([]hal.BufferBarrier, []hal.TextureBarrier)

// Executor dispatches one frame's compiled command stream against a HAL
// device and a set of named logical queues.
type Executor struct {
	device      hal.Device
	hub         *registry.Hub
	completion  *frame.Completion
	inflight    *frame.InflightSemaphore
	barriers    BarrierResolver
	waitTimeout time.Duration

	mu        sync.Mutex
	queues    map[string]hal.Queue
	timelines map[string]*frame.Queue
	fences    map[string]hal.Fence
}

// New creates an Executor. queues maps each logical queue name used by
// package pass/analyze/compile (e.g. "graphics", "compute") to the
// concrete hal.Queue that should carry its submissions; a single hal.Queue
// value may appear under multiple names for backends with one physical
// queue. hub and completion are cycled/advanced by EndFrame; inflight may
// be nil if the caller manages frame pacing itself.
func New(device hal.Device, queues map[string]hal.Queue, hub *registry.Hub, completion *frame.Completion, inflight *frame.InflightSemaphore) *Executor {
	e := &Executor{
		device:      device,
		hub:         hub,
		completion:  completion,
		inflight:    inflight,
		waitTimeout: defaultWaitTimeout,
		queues:      make(map[string]hal.Queue, len(queues)),
		timelines:   make(map[string]*frame.Queue, len(queues)),
		fences:      make(map[string]hal.Fence, len(queues)),
	}
	for name, q := range queues {
		e.queues[name] = q
		e.timelines[name] = frame.NewQueue(name)
	}
	return e
}

// SetBarrierResolver installs the backend-specific barrier lowering used
// for OpPipelineBarrier commands. Optional.
func (e *Executor) SetBarrierResolver(r BarrierResolver) { e.barriers = r }

// Execute runs one frame's compiled groups in declaration order: for each
// group it opens a command encoder, applies the resource commands gated on
// that group, begins and finalizes every pass against the open encoder,
// then submits the finished command buffer to the group's queue.
//
// Groups run sequentially on the calling goroutine. This is sufficient for
// the mock backend and for single-queue graphs; a multi-queue backend that
// wants groups to run concurrently can call Execute once per queue's
// sub-slice of info.Groups from separate goroutines, since Executor's
// queue, timeline and fence maps are guarded by its mutex.
func (e *Executor) Execute(info compile.FrameCommandInfo) error {
	hal.Logger().Debug("execute frame", "groups", len(info.Groups))
	for i := range info.Groups {
		if err := e.executeGroup(&info.Groups[i]); err != nil {
			return fmt.Errorf("exec: group %d (queue %q): %w", i, info.Groups[i].Queue, err)
		}
	}
	return nil
}

func (e *Executor) executeGroup(g *compile.EncoderGroup) error {
	enc, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: g.Queue})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(g.Queue); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	hal.Logger().Debug("execute group", "queue", g.Queue, "passes", len(g.Passes), "gated_commands", len(g.Before))

	for _, cmd := range g.Before {
		if err := e.applyBefore(enc, cmd); err != nil {
			enc.DiscardEncoding()
			return err
		}
	}

	for _, p := range g.Passes {
		if err := p.Begin(enc); err != nil {
			enc.DiscardEncoding()
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
		if err := p.Finalize(); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
	}

	cb, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}

	q, fence, err := e.queueFor(g.Queue)
	if err != nil {
		return err
	}
	value := e.timelineFor(g.Queue).NextTimelineValue()
	if err := q.Submit([]hal.CommandBuffer{cb}, fence, value); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// applyBefore executes one gating resource command ahead of its group's
// passes.
func (e *Executor) applyBefore(enc hal.CommandEncoder, cmd compile.ResourceCommand) error {
	switch cmd.Op {
	case compile.OpPipelineBarrier:
		return e.applyBarrier(enc, cmd.Resource)
	case compile.OpSignalEvent:
		_, _, err := e.signal(cmd.Queue)
		return err
	case compile.OpWaitForEvents:
		for _, w := range cmd.WaitOn {
			fence, value, err := e.signal(w.Queue)
			if err != nil {
				return err
			}
			if _, err := e.device.Wait(fence, value, e.waitTimeout); err != nil {
				return fmt.Errorf("wait for queue %q: %w", w.Queue, err)
			}
			e.timelineFor(w.Queue).SignalCompleted(value)
		}
		return nil
	default:
		return fmt.Errorf("unknown resource op %d", cmd.Op)
	}
}

func (e *Executor) applyBarrier(enc hal.CommandEncoder, edge analyze.Edge) error {
	if e.barriers == nil {
		hal.Logger().Debug("barrier skipped: no BarrierResolver installed", "resource", edge.Resource)
		return nil
	}
	bufferBarriers, textureBarriers := e.barriers(edge)
	if len(bufferBarriers) > 0 {
		enc.TransitionBuffers(bufferBarriers)
	}
	if len(textureBarriers) > 0 {
		enc.TransitionTextures(textureBarriers)
	}
	return nil
}

// signal reserves the next timeline value on queueName and submits an
// empty command buffer carrying that queue's fence, so a consumer on
// another queue can wait for it.
func (e *Executor) signal(queueName string) (hal.Fence, uint64, error) {
	q, fence, err := e.queueFor(queueName)
	if err != nil {
		return nil, 0, err
	}
	value := e.timelineFor(queueName).NextTimelineValue()
	if err := q.Submit(nil, fence, value); err != nil {
		return nil, 0, fmt.Errorf("signal queue %q: %w", queueName, err)
	}
	return fence, value, nil
}

func (e *Executor) queueFor(name string) (hal.Queue, hal.Fence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queues[name]
	if !ok {
		return nil, nil, fmt.Errorf("no queue registered for %q", name)
	}
	fence, ok := e.fences[name]
	if !ok {
		f, err := e.device.CreateFence()
		if err != nil {
			return nil, nil, fmt.Errorf("create fence for queue %q: %w", name, err)
		}
		fence = f
		e.fences[name] = fence
	}
	return q, fence, nil
}

func (e *Executor) timelineFor(name string) *frame.Queue {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.timelines[name]
	if !ok {
		t = frame.NewQueue(name)
		e.timelines[name] = t
	}
	return t
}

// EndFrame finalizes frame bookkeeping once every group's submission has
// been issued: it blocks until frameNumber's last submitted fence value on
// every known queue has retired, advances the shared completion counter,
// cycles the registry's transient generation, and (if an inflight
// semaphore was supplied) releases the slot frameNumber occupied.
func (e *Executor) EndFrame(frameNumber uint64) error {
	e.mu.Lock()
	names := make([]string, 0, len(e.queues))
	for name := range e.queues {
		names = append(names, name)
	}
	e.mu.Unlock()

	for _, name := range names {
		q, fence, err := e.queueFor(name)
		_ = q
		if err != nil {
			return err
		}
		value := e.timelineFor(name).TimelineValue()
		if value == 0 {
			continue
		}
		ok, err := e.device.Wait(fence, value, e.waitTimeout)
		if err != nil {
			return fmt.Errorf("exec: EndFrame wait on queue %q: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("exec: EndFrame timed out waiting on queue %q", name)
		}
		e.timelineFor(name).SignalCompleted(value)
	}

	if e.completion != nil {
		e.completion.Advance(frameNumber)
	}
	if e.hub != nil {
		e.hub.CycleFrames()
		e.hub.Drain(frameNumber)
	}
	if e.inflight != nil {
		e.inflight.Release()
	}
	hal.Logger().Debug("end frame", "frame", frameNumber)
	return nil
}
