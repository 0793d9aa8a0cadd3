package framegraph

import (
	"fmt"
	"sync/atomic"

	"github.com/rhizomegfx/framegraph/compile"
	"github.com/rhizomegfx/framegraph/exec"
	"github.com/rhizomegfx/framegraph/frame"
	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/internal/arena"
	"github.com/rhizomegfx/framegraph/jobs"
	"github.com/rhizomegfx/framegraph/registry"
	"github.com/rhizomegfx/framegraph/resource"
	"github.com/rhizomegfx/framegraph/types"
	"github.com/rhizomegfx/framegraph/upload"
	"github.com/rhizomegfx/framegraph/usage"
)

const (
	usageArenaTag arena.Tag = "frame-usage"
	cmdArenaTag   arena.Tag = "frame-commands"
)

// DefaultMaxFramesInFlight bounds how many frames may be outstanding on
// the GPU at once when Config.MaxFramesInFlight is left at zero.
const DefaultMaxFramesInFlight = 2

// Config bootstraps a Graph from an already-opened HAL device and its
// logical queues, mirroring the teacher's Adapter.RequestDevice except the
// caller supplies an already-open hal.Device directly: this package owns
// the frame graph above the HAL, not backend selection below it.
type Config struct {
	// Device is the opened logical device every resource and command
	// encoder in this graph is created against.
	Device hal.Device

	// Queues maps each logical queue name used by AddDraw/AddCompute/etc.
	// (e.g. "graphics", "compute") to the concrete hal.Queue it submits
	// to. A single hal.Queue value may be registered under multiple names
	// for backends that expose only one physical queue.
	Queues map[string]hal.Queue

	// UploadQueue names which entry of Queues the resource uploader
	// submits its staging copies on. Defaults to Queues' only entry, or
	// an arbitrary one if there is more than one and this is unset.
	UploadQueue string

	// MaxFramesInFlight bounds concurrent outstanding frames. Defaults to
	// DefaultMaxFramesInFlight.
	MaxFramesInFlight int

	// MaxUploadBytes bounds the resource uploader's per-flush staging
	// budget. Defaults to upload.DefaultMaxUploadSize.
	MaxUploadBytes uint64

	// Workers sizes the async job pool. Defaults to jobs.DefaultWorkers.
	Workers int
}

// Graph is an open frame graph: a HAL device, its logical queues, the
// resource registry, and the compiler/executor/uploader/job-manager
// wiring a caller drives one BeginFrame/Submit cycle at a time through.
type Graph struct {
	device hal.Device
	queues map[string]hal.Queue

	hub        *registry.Hub
	completion *frame.Completion
	inflight   *frame.InflightSemaphore
	executor   *exec.Executor
	uploader   *upload.Uploader
	jobs       *jobs.Manager

	usageArenas *arena.Pool[usage.Record]
	cmdArenas   *arena.Pool[compile.ResourceCommand]

	frameCounter atomic.Uint64
}

// Open creates a Graph from cfg.
func Open(cfg Config) (*Graph, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("framegraph: Config.Device is nil")
	}
	if len(cfg.Queues) == 0 {
		return nil, fmt.Errorf("framegraph: Config.Queues is empty")
	}

	maxInFlight := cfg.MaxFramesInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxFramesInFlight
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload == 0 {
		maxUpload = upload.DefaultMaxUploadSize
	}

	uploadQueueName := cfg.UploadQueue
	if uploadQueueName == "" {
		for name := range cfg.Queues {
			uploadQueueName = name
			break
		}
	}
	uploadQueue, ok := cfg.Queues[uploadQueueName]
	if !ok {
		return nil, fmt.Errorf("framegraph: upload queue %q is not in Config.Queues", uploadQueueName)
	}

	hub := registry.NewHub()
	completion := frame.NewCompletion()
	inflight := frame.NewInflightSemaphore(maxInFlight)
	executor := exec.New(cfg.Device, cfg.Queues, hub, completion, inflight)

	uploader, err := upload.New(cfg.Device, uploadQueue, maxUpload)
	if err != nil {
		return nil, fmt.Errorf("framegraph: create uploader: %w", err)
	}

	return &Graph{
		device:     cfg.Device,
		queues:     cfg.Queues,
		hub:        hub,
		completion: completion,
		inflight:   inflight,
		executor:   executor,
		uploader:   uploader,
		jobs:       jobs.New(cfg.Workers),

		usageArenas: arena.NewPool[usage.Record](usageArenaTag),
		cmdArenas:   arena.NewPool[compile.ResourceCommand](cmdArenaTag),
	}, nil
}

// Hub returns the graph's resource registry.
func (g *Graph) Hub() *registry.Hub { return g.hub }

// Jobs returns the graph's job manager, for dispatching pass bodies onto
// worker goroutines or serializing calls through the main thread.
func (g *Graph) Jobs() *jobs.Manager { return g.jobs }

// Uploader returns the graph's GPU resource uploader.
func (g *Graph) Uploader() *upload.Uploader { return g.uploader }

// SetBarrierResolver installs the backend-specific barrier lowering the
// executor uses for OpPipelineBarrier commands. Optional; see
// exec.BarrierResolver.
func (g *Graph) SetBarrierResolver(r exec.BarrierResolver) { g.executor.SetBarrierResolver(r) }

// AllocateBuffer reserves a buffer handle in the registry.
func (g *Graph) AllocateBuffer(d types.BufferDescriptor, flags handle.Flags) *resource.Buffer {
	return resource.NewBuffer(g.hub, d, flags)
}

// AllocateTexture reserves a texture handle in the registry.
func (g *Graph) AllocateTexture(d types.TextureDescriptor, flags handle.Flags) *resource.Texture {
	return resource.NewTexture(g.hub, d, flags)
}

// AllocateArgumentBuffer reserves a logical argument-buffer handle.
func (g *Graph) AllocateArgumentBuffer(length uint32, label string, flags handle.Flags) *resource.ArgumentBuffer {
	return resource.NewArgumentBuffer(g.hub, length, label, flags)
}

// AllocateArgumentBufferArray reserves a logical array-of-argument-buffers
// handle.
func (g *Graph) AllocateArgumentBufferArray(length, count uint32, label string, flags handle.Flags) *resource.ArgumentBufferArray {
	return resource.NewArgumentBufferArray(g.hub, length, count, label, flags)
}

// BeginFrame acquires an inflight-frame slot and returns a new Frame ready
// to have passes declared against it. The caller must eventually call
// Submit on the returned Frame exactly once.
func (g *Graph) BeginFrame() *Frame {
	g.inflight.Acquire()
	number := g.frameCounter.Add(1)

	usageArena := g.usageArenas.Get()
	tracker := usage.NewTracker(g.hub, usageArena)

	return &Frame{
		graph:      g,
		number:     number,
		tracker:    tracker,
		usageArena: usageArena,
		cmdArena:   g.cmdArenas.Get(),
		queueOf:    make(map[uint32]string),
		seen:       make(map[handle.Handle]bool),
	}
}

// Release stops the graph's job manager. It does not wait for any
// in-flight frame to retire first; call this only after the last Frame
// returned by BeginFrame has been Submitted.
func (g *Graph) Release() {
	g.jobs.Close()
}
