// Package handle implements the frame graph's opaque resource handle: a
// single 64-bit value encoding a resource's type, lifecycle flags, and its
// index into a chunked registry (registry.Chunked).
//
// The bit layout is a stability contract (spec.md §4.A) and must not change:
//
//	bits 48-55: resource type
//	bits 32-47: lifecycle flag bitset
//	bits  0-31: logical index (only the lower 29 bits are used)
//
// This mirrors the teacher's RawID (index:32 | epoch:32) in that it packs
// several small integers into one uint64 with typed accessors and a
// String() form, but repacks the fields to the spec's widths: a runtime
// type tag instead of a compile-time generic marker, and a flag bitset
// instead of an epoch, since the frame graph re-validates resources by
// chunk/slot bookkeeping in registry.Chunked rather than by epoch.
package handle

import "fmt"

// Handle is the frame graph's 64-bit opaque resource identifier.
type Handle uint64

// Invalid is the sentinel "all bits set" value denoting an invalid handle,
// per spec.md §3 ("the special value MAX denotes invalid").
const Invalid Handle = ^Handle(0)

// Type identifies the kind of resource a Handle refers to.
type Type uint8

// Resource type tags, encoded into bits 48-55 of a Handle.
const (
	TypeBuffer Type = iota
	TypeTexture
	TypeSampler
	TypeThreadgroupMemory
	TypeArgumentBuffer
	TypeArgumentBufferArray
	TypeImageblockData
	TypeImageblock

	typeCount
)

// String renders the type tag for diagnostics.
func (t Type) String() string {
	switch t {
	case TypeBuffer:
		return "Buffer"
	case TypeTexture:
		return "Texture"
	case TypeSampler:
		return "Sampler"
	case TypeThreadgroupMemory:
		return "ThreadgroupMemory"
	case TypeArgumentBuffer:
		return "ArgumentBuffer"
	case TypeArgumentBufferArray:
		return "ArgumentBufferArray"
	case TypeImageblockData:
		return "ImageblockData"
	case TypeImageblock:
		return "Imageblock"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known resource type tags.
func (t Type) Valid() bool { return t < typeCount }

// Flags is the lifecycle bitset carried in bits 32-47 of a Handle.
type Flags uint16

const (
	// Persistent marks a resource as living across frames; it is allocated
	// from the persistent registry and must declare a non-empty usage hint.
	Persistent Flags = 1 << iota
	// WindowHandle marks a resource as backing a swapchain image; it must be
	// disposed every frame even though it is persistent-like.
	WindowHandle
	// HistoryBuffer marks a resource retained for N frames, where a
	// frame-N read observes the frame-(N-1) write.
	HistoryBuffer
	// ExternalOwnership marks a resource whose backing memory is registered
	// by the application; the core never frees it.
	ExternalOwnership
	// ImmutableOnceInitialised marks a resource that rejects writes once it
	// has been written to for the first time.
	ImmutableOnceInitialised
	// ResourceView marks a transient-only view into another resource.
	ResourceView
)

// Contains reports whether all bits of other are set in f.
func (f Flags) Contains(other Flags) bool { return f&other == other }

const (
	indexBits  = 32
	indexMask  = (1 << 29) - 1 // lower 29 of the 32 index bits are significant
	flagsShift = indexBits
	flagsMask  = 0xFFFF
	typeShift  = flagsShift + 16
	typeMask   = 0xFF
)

// Encode packs a type tag, flag bitset, and logical index into a Handle.
// Only the lower 29 bits of index are retained, per spec.md §3.
func Encode(t Type, f Flags, index uint32) Handle {
	idx := uint64(index) & indexMask
	return Handle(idx | uint64(f&flagsMask)<<flagsShift | uint64(t&typeMask)<<typeShift)
}

// Decode extracts the type tag, flag bitset, and logical index from h.
func Decode(h Handle) (t Type, f Flags, index uint32) {
	t = Type((h >> typeShift) & typeMask)
	f = Flags((h >> flagsShift) & flagsMask)
	index = uint32(h) & indexMask
	return
}

// Type returns h's resource type tag.
func (h Handle) Type() Type {
	return Type((h >> typeShift) & typeMask)
}

// Flags returns h's lifecycle flag bitset.
func (h Handle) Flags() Flags {
	return Flags((h >> flagsShift) & flagsMask)
}

// Index returns h's logical registry index.
func (h Handle) Index() uint32 {
	return uint32(h) & indexMask
}

// Valid reports whether h is not the Invalid sentinel and carries a known
// type tag.
func (h Handle) Valid() bool {
	return h != Invalid && h.Type().Valid()
}

// String renders h for diagnostics, e.g. "Handle(Texture,index=12,flags=0x1)".
func (h Handle) String() string {
	if h == Invalid {
		return "Handle(invalid)"
	}
	t, f, idx := Decode(h)
	return fmt.Sprintf("Handle(%s,index=%d,flags=0x%x)", t, idx, uint16(f))
}
