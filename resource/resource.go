package resource

import (
	"github.com/rhizomegfx/framegraph/hal"
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/registry"
	"github.com/rhizomegfx/framegraph/types"
)

// Buffer is the frame graph's handle-based facade over a buffer, carrying
// its registry descriptor and a lazily-materialized backing hal.Buffer.
type Buffer struct {
	Handle handle.Handle
	hub    *registry.Hub
	backing *Materializable[hal.Buffer]
}

// NewBuffer allocates a buffer in hub and returns its facade.
func NewBuffer(hub *registry.Hub, d types.BufferDescriptor, flags handle.Flags) *Buffer {
	return &Buffer{Handle: hub.AllocateBuffer(d, flags), hub: hub, backing: NewMaterializable[hal.Buffer]()}
}

// Descriptor returns the buffer's declared descriptor and registry metadata.
func (b *Buffer) Descriptor() (types.BufferDescriptor, registry.Meta, bool) {
	return b.hub.GetBuffer(b.Handle)
}

// Backing returns the buffer's materialized hal.Buffer, or nil if it has
// not been created yet.
func (b *Buffer) Backing() hal.Buffer {
	if v := b.backing.Get(); v != nil {
		return *v
	}
	return nil
}

// MaterializeBacking constructs the backing hal.Buffer exactly once, using
// create if it has not been materialized yet.
func (b *Buffer) MaterializeBacking(create func() hal.Buffer) hal.Buffer {
	return *b.backing.MaterializeWith(func() hal.Buffer {
		hal.Logger().Debug("materialize buffer", "handle", b.Handle)
		return create()
	})
}

// Slice describes a byte range of a Buffer, used when a pass declares a
// partial-buffer usage (spec.md §4.F, §4.C). It carries no access type.
type Slice struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

// Texture is the frame graph's handle-based facade over a texture.
type Texture struct {
	Handle  handle.Handle
	hub     *registry.Hub
	backing *Materializable[hal.Texture]
}

// NewTexture allocates a texture in hub and returns its facade.
func NewTexture(hub *registry.Hub, d types.TextureDescriptor, flags handle.Flags) *Texture {
	return &Texture{Handle: hub.AllocateTexture(d, flags), hub: hub, backing: NewMaterializable[hal.Texture]()}
}

// Descriptor returns the texture's declared descriptor and registry metadata.
func (t *Texture) Descriptor() (types.TextureDescriptor, registry.Meta, bool) {
	return t.hub.GetTexture(t.Handle)
}

// Backing returns the texture's materialized hal.Texture, or nil.
func (t *Texture) Backing() hal.Texture {
	if v := t.backing.Get(); v != nil {
		return *v
	}
	return nil
}

// MaterializeBacking constructs the backing hal.Texture exactly once.
func (t *Texture) MaterializeBacking(create func() hal.Texture) hal.Texture {
	return *t.backing.MaterializeWith(func() hal.Texture {
		hal.Logger().Debug("materialize texture", "handle", t.Handle)
		return create()
	})
}

// ArgumentBuffer is the frame graph's facade over a logical descriptor-set
// argument buffer, whose byte contents are produced later by package argbuf.
type ArgumentBuffer struct {
	Handle  handle.Handle
	hub     *registry.Hub
	backing *Materializable[hal.Buffer]
}

// NewArgumentBuffer allocates an argument buffer in hub.
func NewArgumentBuffer(hub *registry.Hub, length uint32, label string, flags handle.Flags) *ArgumentBuffer {
	r := hub.TransientArgumentBuffers
	if flags.Contains(handle.Persistent) {
		r = hub.PersistentArgumentBuffers
	}
	idx := r.Allocate(registry.ArgumentBufferDescriptor{Label: label, Length: length}, flags)
	return &ArgumentBuffer{
		Handle:  handle.Encode(handle.TypeArgumentBuffer, flags, idx),
		hub:     hub,
		backing: NewMaterializable[hal.Buffer](),
	}
}

// Backing returns the argument buffer's materialized hal.Buffer, or nil.
func (a *ArgumentBuffer) Backing() hal.Buffer {
	if v := a.backing.Get(); v != nil {
		return *v
	}
	return nil
}

// MaterializeBacking constructs the backing hal.Buffer exactly once.
func (a *ArgumentBuffer) MaterializeBacking(create func() hal.Buffer) hal.Buffer {
	return *a.backing.MaterializeWith(func() hal.Buffer {
		hal.Logger().Debug("materialize argument buffer", "handle", a.Handle)
		return create()
	})
}

// ArgumentBufferArray is the frame graph's facade over a contiguous array
// of argument buffers, used for dynamically-indexed resource arrays.
type ArgumentBufferArray struct {
	Handle  handle.Handle
	hub     *registry.Hub
	backing *Materializable[hal.Buffer]
}

// NewArgumentBufferArray allocates an argument buffer array in hub.
func NewArgumentBufferArray(hub *registry.Hub, length uint32, count uint32, label string, flags handle.Flags) *ArgumentBufferArray {
	r := hub.TransientArgumentBufferArrays
	if flags.Contains(handle.Persistent) {
		r = hub.PersistentArgumentBufferArrays
	}
	idx := r.Allocate(registry.ArgumentBufferArrayDescriptor{Label: label, Length: length, Count: count}, flags)
	return &ArgumentBufferArray{
		Handle:  handle.Encode(handle.TypeArgumentBufferArray, flags, idx),
		hub:     hub,
		backing: NewMaterializable[hal.Buffer](),
	}
}

// Backing returns the array's materialized hal.Buffer, or nil.
func (a *ArgumentBufferArray) Backing() hal.Buffer {
	if v := a.backing.Get(); v != nil {
		return *v
	}
	return nil
}

// MaterializeBacking constructs the backing hal.Buffer exactly once.
func (a *ArgumentBufferArray) MaterializeBacking(create func() hal.Buffer) hal.Buffer {
	return *a.backing.MaterializeWith(func() hal.Buffer {
		hal.Logger().Debug("materialize argument buffer array", "handle", a.Handle)
		return create()
	})
}
