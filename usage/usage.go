// Package usage implements per-resource usage tracking (spec.md §4.F): an
// ordered, arena-allocated linked history of every access a resource
// participates in within a frame, classified by AccessType.
//
// The teacher's BufferTracker (core/track/buffer.go) keeps only the
// *current* usage per buffer (BufferUses bitset) so it can compute the one
// pending transition needed before the next access. This package keeps the
// same AccessType vocabulary and the same IsReadOnly/compatibility
// classification idiom, but generalizes the tracker itself to retain the
// *entire* ordered history for the frame, since the dependency analyzer
// (package analyze) needs every consecutive pair of usages, not just the
// latest one.
package usage

import (
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/internal/arena"
	"github.com/rhizomegfx/framegraph/registry"
)

// AccessType classifies how a pass accesses a resource at one point in its
// usage history, mirroring the teacher's BufferUses bitset (core/track/buffer.go)
// but extended with the frame graph's render-target and argument-buffer
// specific access kinds.
type AccessType uint32

const (
	Read AccessType = 1 << iota
	Write
	ReadWrite
	ConstantBuffer
	BlitSource
	BlitDestination
	BlitSynchronisation
	VertexBuffer
	IndexBuffer
	IndirectBuffer
	Sampler
	InputAttachment
	ReadWriteRenderTarget
	WriteOnlyRenderTarget
	InputAttachmentRenderTarget
	UnusedRenderTarget
	UnusedArgumentBuffer
)

var accessNames = map[AccessType]string{
	Read:                        "Read",
	Write:                       "Write",
	ReadWrite:                   "ReadWrite",
	ConstantBuffer:              "ConstantBuffer",
	BlitSource:                  "BlitSource",
	BlitDestination:             "BlitDestination",
	BlitSynchronisation:         "BlitSynchronisation",
	VertexBuffer:                "VertexBuffer",
	IndexBuffer:                 "IndexBuffer",
	IndirectBuffer:              "IndirectBuffer",
	Sampler:                     "Sampler",
	InputAttachment:             "InputAttachment",
	ReadWriteRenderTarget:       "ReadWriteRenderTarget",
	WriteOnlyRenderTarget:       "WriteOnlyRenderTarget",
	InputAttachmentRenderTarget: "InputAttachmentRenderTarget",
	UnusedRenderTarget:          "UnusedRenderTarget",
	UnusedArgumentBuffer:        "UnusedArgumentBuffer",
}

func (a AccessType) String() string {
	if name, ok := accessNames[a]; ok {
		return name
	}
	return "AccessType(unknown)"
}

// readOnlySet is every access type that never mutates the resource's
// contents and therefore never conflicts with another read-only access.
const readOnlySet = Read | ConstantBuffer | BlitSource | VertexBuffer | IndexBuffer |
	IndirectBuffer | Sampler | InputAttachment | InputAttachmentRenderTarget |
	UnusedRenderTarget | UnusedArgumentBuffer

// writeSet is every access type that mutates the resource, wholly or
// partially.
const writeSet = Write | ReadWrite | BlitDestination | BlitSynchronisation |
	ReadWriteRenderTarget | WriteOnlyRenderTarget

// IsReadOnly reports whether a only reads the resource's current contents.
func IsReadOnly(a AccessType) bool { return a&readOnlySet != 0 && a&writeSet == 0 }

// IsWrite reports whether a may mutate the resource's contents.
func IsWrite(a AccessType) bool { return a&writeSet != 0 }

// IsCompatible reports whether two consecutive accesses can be merged into
// the same subpass/scope without an intervening barrier: true only when
// both are read-only, mirroring the teacher's StateTransition.NeedsBarrier
// check (no transition needed when neither side writes).
func IsCompatible(a, b AccessType) bool { return IsReadOnly(a) && IsReadOnly(b) }

// StageMask identifies which pipeline stage(s) an access happens in.
type StageMask uint32

const (
	StageVertex StageMask = 1 << iota
	StageFragment
	StageCompute
	StageBlit
	StageHost
)

// PassRef identifies the pass a usage record belongs to without the usage
// package importing package pass, which itself depends on usage for
// recording — keeping this as a plain value avoids an import cycle.
type PassRef struct {
	ID   uint32
	Name string
}

// Record is one node in a resource's ordered usage history.
type Record struct {
	Next         *Record
	Pass         PassRef
	CommandBegin uint32
	CommandEnd   uint32
	Access       AccessType
	Stages       StageMask
}

type history struct {
	head, tail *Record
	count      int
}

// Tracker records usage history for every resource touched during a frame,
// allocating Record nodes from a per-frame arena so the whole history can
// be freed as one unit at frame end instead of walking and freeing each
// linked list individually (spec.md §9, arena allocation strategy).
type Tracker struct {
	arena *arena.Arena[Record]
	hub   *registry.Hub
}

// NewTracker creates a usage tracker backed by hub's registries and
// allocating history nodes from a.
func NewTracker(hub *registry.Hub, a *arena.Arena[Record]) *Tracker {
	return &Tracker{arena: a, hub: hub}
}

// Record appends one usage to h's ordered history. It is called by the
// pass-recording API (package pass) once per resource reference declared in
// a pass.
func (t *Tracker) Record(h handle.Handle, pass PassRef, commandBegin, commandEnd uint32, access AccessType, stages StageMask) {
	node := t.arena.Push(Record{
		Pass:         pass,
		CommandBegin: commandBegin,
		CommandEnd:   commandEnd,
		Access:       access,
		Stages:       stages,
	})

	t.hub.MutateMeta(h, func(m *registry.Meta) {
		hi, ok := m.UsageHead.(*history)
		if !ok {
			hi = &history{}
			m.UsageHead = hi
		}
		if hi.tail == nil {
			hi.head = node
		} else {
			hi.tail.Next = node
		}
		hi.tail = node
		hi.count++
	})
}

// History returns the ordered usage records for h recorded so far this
// frame, oldest first.
func (t *Tracker) History(h handle.Handle) []*Record {
	meta, ok := metaOf(t.hub, h)
	if !ok {
		return nil
	}
	hi, ok := meta.UsageHead.(*history)
	if !ok {
		return nil
	}
	out := make([]*Record, 0, hi.count)
	for n := hi.head; n != nil; n = n.Next {
		out = append(out, n)
	}
	return out
}

// Clear drops h's usage history pointer (the nodes themselves are freed in
// bulk when the tracker's arena resets at frame end).
func (t *Tracker) Clear(h handle.Handle) {
	t.hub.MutateMeta(h, func(m *registry.Meta) { m.UsageHead = nil })
}

// Hub returns the registry hub backing this tracker, so dependency
// analysis (package analyze) can resolve a resource's declared descriptor
// (e.g. a texture's format, to tell whether it carries a depth/stencil
// aspect) without the frame graph threading a second hub reference
// alongside the tracker everywhere.
func (t *Tracker) Hub() *registry.Hub { return t.hub }

func metaOf(hub *registry.Hub, h handle.Handle) (registry.Meta, bool) {
	switch h.Type() {
	case handle.TypeBuffer:
		_, m, ok := hub.GetBuffer(h)
		return m, ok
	case handle.TypeTexture:
		_, m, ok := hub.GetTexture(h)
		return m, ok
	default:
		var found registry.Meta
		ok := false
		hub.MutateMeta(h, func(m *registry.Meta) { found = *m; ok = true })
		return found, ok
	}
}
