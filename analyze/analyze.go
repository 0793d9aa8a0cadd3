// Package analyze implements the frame graph's dependency analyzer
// (spec.md §4.G): it walks each resource's ordered usage history and
// derives, for every consecutive pair of usages, whether they need a
// pipeline barrier, a cross-queue signal/wait event, or can be fused into
// the same subpass/scope.
//
// This generalizes the teacher's BufferTracker.Merge +
// StateTransition.NeedsBarrier (core/track/buffer.go), which compares
// exactly two states (the device tracker's current usage and one scope's
// usage) and emits at most one PendingTransition per buffer per submit.
// analyze.Analyze instead walks the *entire* per-frame history produced by
// usage.Tracker and emits one Edge per consecutive pair, since the
// compiler needs the full dependency graph across every pass touching a
// resource, not just the most recent transition.
//
// Beyond the teacher's two-state comparison, each Edge also carries the
// GPU-level access mask, pipeline-stage mask, and image layout its two
// usages imply. None of that vocabulary exists in the teacher's gputypes
// package (it only exposes WebGPU-level usage-flag enums); it is
// originated here, grounded on the render-pass attachment shape
// hal/descriptor.go's RenderPassDescriptor already describes, since that
// is exactly the information a backend needs to decide what a barrier or
// subpass dependency must actually transition.
package analyze

import (
	"fmt"

	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/pass"
	"github.com/rhizomegfx/framegraph/usage"
)

// EdgeKind classifies the relationship between two consecutive usages of
// the same resource.
type EdgeKind uint8

const (
	// Materialize marks a resource's first usage in the frame: the
	// compiler must ensure the backing hal resource exists before this
	// pass runs.
	Materialize EdgeKind = iota
	// Fused marks two consecutive read-only usages that never need a
	// barrier between them and can be merged into the same subpass scope
	// (spec.md's tiled-renderer subpass fusion).
	Fused
	// Barrier marks two usages on the same queue that need a pipeline
	// barrier (or, for a render pass, a subpass dependency) between them.
	Barrier
	// CrossQueueSignalWait marks two usages on different queues: the
	// producing queue must signal a timeline value the consuming queue
	// waits on before its pass runs.
	CrossQueueSignalWait
)

func (k EdgeKind) String() string {
	switch k {
	case Materialize:
		return "Materialize"
	case Fused:
		return "Fused"
	case Barrier:
		return "Barrier"
	case CrossQueueSignalWait:
		return "CrossQueueSignalWait"
	default:
		return fmt.Sprintf("EdgeKind(%d)", uint8(k))
	}
}

// AccessMask is the set of GPU memory-access kinds a usage performs,
// derived from a usage.AccessType/usage.StageMask pair the way a backend
// would need to express it in a pipeline barrier or subpass dependency.
type AccessMask uint32

const (
	AccessNone AccessMask = 0

	AccessShaderRead                  AccessMask = 1 << 0
	AccessShaderWrite                 AccessMask = 1 << 1
	AccessColorAttachmentRead         AccessMask = 1 << 2
	AccessColorAttachmentWrite        AccessMask = 1 << 3
	AccessDepthStencilAttachmentRead  AccessMask = 1 << 4
	AccessDepthStencilAttachmentWrite AccessMask = 1 << 5
	AccessTransferRead                AccessMask = 1 << 6
	AccessTransferWrite               AccessMask = 1 << 7
	AccessVertexAttributeRead         AccessMask = 1 << 8
	AccessIndexRead                   AccessMask = 1 << 9
	AccessUniformRead                 AccessMask = 1 << 10
	AccessIndirectCommandRead         AccessMask = 1 << 11
	AccessInputAttachmentRead         AccessMask = 1 << 12
	AccessHostRead                    AccessMask = 1 << 13
	AccessHostWrite                   AccessMask = 1 << 14
)

// PipelineStageMask is the set of pipeline stages a usage executes in.
// Distinct from usage.StageMask: usage.StageMask records where a pass
// *declared* its access happens (vertex/fragment/compute/blit/host,
// chosen by the caller), while PipelineStageMask is what a barrier needs
// to synchronize against, which for render-target, input-attachment, blit
// and unused accesses is fixed by the access type regardless of the
// declared shader stage.
type PipelineStageMask uint32

const (
	StageNone PipelineStageMask = 0

	StageVertex                 PipelineStageMask = 1 << 0
	StageFragment               PipelineStageMask = 1 << 1
	StageCompute                PipelineStageMask = 1 << 2
	StageTransfer               PipelineStageMask = 1 << 3
	StageColorAttachmentOutput  PipelineStageMask = 1 << 4
	StageDepthStencilAttachment PipelineStageMask = 1 << 5
	StageHost                   PipelineStageMask = 1 << 6
)

// ImageLayout is a texture's GPU-side memory layout at one point in its
// usage history.
type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachmentOptimal
	LayoutDepthStencilAttachmentOptimal
	LayoutDepthStencilReadOnlyOptimal
	LayoutShaderReadOnlyOptimal
	LayoutTransferSrcOptimal
	LayoutTransferDstOptimal
	LayoutPreinitialized
	LayoutPresentSrc
)

func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutGeneral:
		return "General"
	case LayoutColorAttachmentOptimal:
		return "ColorAttachmentOptimal"
	case LayoutDepthStencilAttachmentOptimal:
		return "DepthStencilAttachmentOptimal"
	case LayoutDepthStencilReadOnlyOptimal:
		return "DepthStencilReadOnlyOptimal"
	case LayoutShaderReadOnlyOptimal:
		return "ShaderReadOnlyOptimal"
	case LayoutTransferSrcOptimal:
		return "TransferSrcOptimal"
	case LayoutTransferDstOptimal:
		return "TransferDstOptimal"
	case LayoutPreinitialized:
		return "Preinitialized"
	case LayoutPresentSrc:
		return "PresentSrc"
	default:
		return fmt.Sprintf("ImageLayout(%d)", uint8(l))
	}
}

// BoundaryAttach places a same-queue, cross-render-pass Barrier edge
// relative to the render passes it straddles.
type BoundaryAttach uint8

const (
	// BoundaryNone applies to a barrier that touches no render pass at
	// either end.
	BoundaryNone BoundaryAttach = iota
	// BoundaryDestRenderPassStart attaches the barrier to the first
	// command of the render pass the destination usage belongs to.
	BoundaryDestRenderPassStart
	// BoundarySourceRenderPassEnd attaches the barrier to the last command
	// of the render pass the source usage belongs to, when the
	// destination usage is not itself inside a render pass.
	BoundarySourceRenderPassEnd
)

func (b BoundaryAttach) String() string {
	switch b {
	case BoundaryNone:
		return "None"
	case BoundaryDestRenderPassStart:
		return "DestRenderPassStart"
	case BoundarySourceRenderPassEnd:
		return "SourceRenderPassEnd"
	default:
		return fmt.Sprintf("BoundaryAttach(%d)", uint8(b))
	}
}

// Edge is one derived dependency between two usages of the same resource,
// or (for Materialize) a synthetic dependency on the resource's first use.
type Edge struct {
	Resource handle.Handle
	Kind     EdgeKind

	// From is the zero value for a Materialize edge.
	From usage.Record
	To   usage.Record

	FromQueue string
	ToQueue   string

	// IsTexture reports whether Resource is a texture, the precondition
	// for SrcLayout/DstLayout to carry anything but LayoutUndefined.
	IsTexture bool

	SrcAccess AccessMask
	DstAccess AccessMask
	SrcStage  PipelineStageMask
	DstStage  PipelineStageMask
	SrcLayout ImageLayout
	DstLayout ImageLayout

	// SrcSubpass/DstSubpass are the usage's position within its fused
	// render pass, or -1 if the usage's pass is not part of one.
	SrcSubpass int
	DstSubpass int

	// SubpassDependency is true when From and To belong to the same fused
	// render pass: the dependency is expressed as a subpass dependency
	// rather than a standalone pipeline barrier.
	SubpassDependency bool

	// GeneralBarrierInSubpass marks the SrcSubpass == DstSubpass case
	// within a same-render-pass dependency (e.g. two storage-image writes
	// folded into one fused render pass): a general execution/memory
	// barrier rather than a layout transition, so DstLayout is coerced to
	// equal SrcLayout.
	GeneralBarrierInSubpass bool

	// Boundary places a same-queue Barrier edge that crosses a
	// render-pass boundary without itself being a subpass dependency.
	Boundary BoundaryAttach
}

// QueueOf resolves which logical queue a pass runs on, supplied by the
// caller (package pass does not expose a lookup by PassRef alone, since
// usage.PassRef deliberately carries only an ID and Name to avoid an
// import cycle).
type QueueOf func(passID uint32) string

// rpAssignment records where a pass sits within the render-pass/subpass
// structure pass.GroupRenderPasses derived for the frame.
type rpAssignment struct {
	group   int
	subpass int
	inRP    bool
}

// assignRenderPasses partitions passes into fused render-pass groups
// (pass.GroupRenderPasses) and records each pass's group/subpass
// position, so classify can tell whether two usages share a render pass
// without recomputing the partition per resource.
func assignRenderPasses(passes []*pass.Record) map[uint32]rpAssignment {
	groups := pass.GroupRenderPasses(passes)
	out := make(map[uint32]rpAssignment, len(passes))
	for gi, g := range groups {
		inRP := g.Kind == pass.Draw
		for si, p := range g.Passes {
			out[p.ID()] = rpAssignment{group: gi, subpass: si, inRP: inRP}
		}
	}
	return out
}

func subpassOf(rp map[uint32]rpAssignment, passID uint32) int {
	if a, ok := rp[passID]; ok && a.inRP {
		return a.subpass
	}
	return -1
}

// Analyze walks the usage history of every handle in resources and
// derives the ordered list of edges needed to schedule the frame, per
// spec.md §4.G's pairwise dependency rule. passes is the frame's full,
// declaration-ordered pass list, used to determine which usages share a
// fused render pass (and therefore a subpass dependency) rather than a
// standalone barrier.
func Analyze(tracker *usage.Tracker, resources []handle.Handle, passes []*pass.Record, queueOf QueueOf) []Edge {
	rp := assignRenderPasses(passes)

	var edges []Edge
	for _, h := range resources {
		hist := tracker.History(h)
		if len(hist) == 0 {
			continue
		}
		isTexture := h.Type() == handle.TypeTexture
		isDepthStencil := textureIsDepthStencil(tracker, h, isTexture)

		first := *hist[0]
		dstAccess, dstStage, dstLayout := deriveAccessStageLayout(first.Access, first.Stages, isTexture, isDepthStencil)
		edges = append(edges, Edge{
			Resource:   h,
			Kind:       Materialize,
			To:         first,
			ToQueue:    queueOf(first.Pass.ID),
			IsTexture:  isTexture,
			DstAccess:  dstAccess,
			DstStage:   dstStage,
			DstLayout:  dstLayout,
			SrcSubpass: -1,
			DstSubpass: subpassOf(rp, first.Pass.ID),
		})

		for i := 1; i < len(hist); i++ {
			prev, next := *hist[i-1], *hist[i]
			edges = append(edges, classify(h, prev, next, isTexture, isDepthStencil, rp, queueOf))
		}
	}
	return edges
}

// textureIsDepthStencil resolves h's declared format through the
// tracker's hub to tell whether it carries a depth/stencil aspect; h that
// isn't a texture, or whose descriptor can't be found, is never treated
// as depth/stencil.
func textureIsDepthStencil(tracker *usage.Tracker, h handle.Handle, isTexture bool) bool {
	if !isTexture {
		return false
	}
	desc, _, ok := tracker.Hub().GetTexture(h)
	if !ok {
		return false
	}
	return desc.Format.IsDepthStencil()
}

// classify derives the Edge between two consecutive usages of the same
// resource, implementing spec.md §4.G step 3 (compute access/stage/layout
// from (accessType, stageMask, isDepthStencil)) and step 4 (placement):
// cross-queue usages always need a signal/wait; same-queue usages that
// don't conflict fuse; same-queue conflicting usages inside the same
// fused render pass become a subpass dependency (collapsing to a general
// barrier when src and dst share a subpass); same-queue conflicting
// usages that cross a render-pass boundary attach to whichever side sits
// inside one; everything else is a plain pipeline barrier.
func classify(h handle.Handle, prev, next usage.Record, isTexture, isDepthStencil bool, rp map[uint32]rpAssignment, queueOf QueueOf) Edge {
	fromQueue := queueOf(prev.Pass.ID)
	toQueue := queueOf(next.Pass.ID)

	srcAccess, srcStage, srcLayout := deriveAccessStageLayout(prev.Access, prev.Stages, isTexture, isDepthStencil)
	dstAccess, dstStage, dstLayout := deriveAccessStageLayout(next.Access, next.Stages, isTexture, isDepthStencil)

	e := Edge{
		Resource:   h,
		From:       prev,
		To:         next,
		FromQueue:  fromQueue,
		ToQueue:    toQueue,
		IsTexture:  isTexture,
		SrcAccess:  srcAccess,
		DstAccess:  dstAccess,
		SrcStage:   srcStage,
		DstStage:   dstStage,
		SrcLayout:  srcLayout,
		DstLayout:  dstLayout,
		SrcSubpass: subpassOf(rp, prev.Pass.ID),
		DstSubpass: subpassOf(rp, next.Pass.ID),
	}

	if fromQueue != toQueue {
		e.Kind = CrossQueueSignalWait
		return e
	}

	if !needsBarrier(prev.Access, next.Access) {
		e.Kind = Fused
		return e
	}

	srcRP := rp[prev.Pass.ID]
	dstRP := rp[next.Pass.ID]

	switch {
	case srcRP.inRP && dstRP.inRP && srcRP.group == dstRP.group:
		e.Kind = Barrier
		e.SubpassDependency = true
		if srcRP.subpass == dstRP.subpass {
			e.GeneralBarrierInSubpass = true
			e.DstLayout = e.SrcLayout
		}
	case srcRP.inRP && !dstRP.inRP:
		e.Kind = Barrier
		e.Boundary = BoundarySourceRenderPassEnd
	case dstRP.inRP:
		e.Kind = Barrier
		e.Boundary = BoundaryDestRenderPassStart
	default:
		e.Kind = Barrier
	}
	return e
}

// needsBarrier mirrors the teacher's StateTransition.NeedsBarrier: no
// barrier when the access is unchanged, and none when both sides are
// read-only.
func needsBarrier(from, to usage.AccessType) bool {
	if from == to {
		return false
	}
	if usage.IsReadOnly(from) && usage.IsReadOnly(to) {
		return false
	}
	return true
}

// deriveAccessStageLayout computes the GPU-level access mask, pipeline
// stage mask, and image layout a (usage.AccessType, usage.StageMask) pair
// implies, per spec.md §4.G step 3. Render-target accesses force the
// color-attachment-output/depth-stencil-attachment stage, input-attachment
// accesses the fragment stage, blit accesses the transfer stage, and unused
// render-target/argument-buffer accesses no stage, regardless of the
// declared usage.StageMask; every other access derives its stage from the
// declared mask directly.
func deriveAccessStageLayout(access usage.AccessType, stages usage.StageMask, isTexture, isDepthStencil bool) (AccessMask, PipelineStageMask, ImageLayout) {
	switch {
	case access&(usage.ReadWriteRenderTarget|usage.WriteOnlyRenderTarget) != 0:
		if isDepthStencil {
			am := AccessDepthStencilAttachmentWrite
			if access&usage.ReadWriteRenderTarget != 0 {
				am |= AccessDepthStencilAttachmentRead
			}
			return am, StageDepthStencilAttachment, LayoutDepthStencilAttachmentOptimal
		}
		am := AccessColorAttachmentWrite
		if access&usage.ReadWriteRenderTarget != 0 {
			am |= AccessColorAttachmentRead
		}
		return am, StageColorAttachmentOutput, LayoutColorAttachmentOptimal

	case access&usage.InputAttachmentRenderTarget != 0:
		if isDepthStencil {
			return AccessInputAttachmentRead, StageFragment, LayoutDepthStencilReadOnlyOptimal
		}
		return AccessInputAttachmentRead, StageFragment, LayoutShaderReadOnlyOptimal

	case access&usage.BlitSource != 0:
		layout := ImageLayout(LayoutUndefined)
		if isTexture {
			layout = LayoutTransferSrcOptimal
		}
		return AccessTransferRead, StageTransfer, layout

	case access&(usage.BlitDestination|usage.BlitSynchronisation) != 0:
		layout := ImageLayout(LayoutUndefined)
		if isTexture {
			layout = LayoutTransferDstOptimal
		}
		return AccessTransferWrite, StageTransfer, layout

	case access&(usage.UnusedRenderTarget|usage.UnusedArgumentBuffer) != 0:
		return AccessNone, StageNone, LayoutUndefined
	}

	var pm PipelineStageMask
	if stages&usage.StageVertex != 0 {
		pm |= StageVertex
	}
	if stages&usage.StageFragment != 0 {
		pm |= StageFragment
	}
	if stages&usage.StageCompute != 0 {
		pm |= StageCompute
	}
	if stages&usage.StageBlit != 0 {
		pm |= StageTransfer
	}
	if stages&usage.StageHost != 0 {
		pm |= StageHost
	}

	var am AccessMask
	switch {
	case access&usage.VertexBuffer != 0:
		am = AccessVertexAttributeRead
	case access&usage.IndexBuffer != 0:
		am = AccessIndexRead
	case access&usage.IndirectBuffer != 0:
		am = AccessIndirectCommandRead
	case access&usage.ConstantBuffer != 0:
		am = AccessUniformRead
	case access&usage.ReadWrite != 0:
		am = AccessShaderRead | AccessShaderWrite
	case access&usage.Write != 0:
		am = AccessShaderWrite
	default:
		am = AccessShaderRead
	}
	if stages&usage.StageHost != 0 {
		if usage.IsWrite(access) {
			am |= AccessHostWrite
		} else {
			am |= AccessHostRead
		}
	}

	layout := ImageLayout(LayoutUndefined)
	if isTexture {
		if usage.IsWrite(access) {
			layout = LayoutGeneral
		} else {
			layout = LayoutShaderReadOnlyOptimal
		}
	}
	return am, pm, layout
}

// FusionGroups partitions a resource's Fused-only run of edges into
// contiguous subpass groups: every maximal run of consecutive Fused edges
// collapses into one group that the compiler can schedule as a single
// subpass, per spec.md's tiled-renderer fusion note.
func FusionGroups(edges []Edge) [][]Edge {
	var groups [][]Edge
	var current []Edge
	for _, e := range edges {
		if e.Kind == Fused {
			current = append(current, e)
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
