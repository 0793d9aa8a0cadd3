// Package argbuf implements argument-buffer encoding (spec.md §4.K): it
// turns a logical descriptor set — the stages that reference it and the
// resources bound at each logical slot — into the per-backend
// (ResourceBindingPath, BindingValue) pairs a pass's typed encoder records
// into an ArgumentBuffer.
//
// ReflectModule is grounded on the teacher's naga usage in hal/gles's
// shader.go and hal/metal's device.go (both compiled WGSL through
// naga.Parse → naga.Lower into a naga/ir.Module to read back
// ir.Module.EntryPoints for stage/workgroup information, e.g.
// extractWorkgroupSizes in hal/metal/device.go). That usage only reads
// entry-point stage and workgroup metadata, not per-binding resource
// descriptors — naga's public surface for reflecting individual resource
// bindings (set/binding indices, types) is not exercised anywhere in the
// example pack, so DescriptorSet.Resources here is supplied by the caller
// (typically authored alongside the shader, or produced by a future
// reflection pass) rather than parsed out of the module; ReflectModule
// contributes the Stages field.
package argbuf

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/usage"
)

// DefaultCompatibilityThreshold is the minimum number of identically
// shaped resources two descriptor sets must share to be considered
// compatible for reuse, per spec.md §4.K's Open Question resolution.
const DefaultCompatibilityThreshold = 2

// ResourceType identifies the kind of resource bound at a descriptor slot.
type ResourceType uint8

const (
	ResourceBuffer ResourceType = iota
	ResourceTexture
	ResourceSampler
	ResourceStorageImage
)

// ViewType identifies how a texture resource is viewed at a binding slot.
type ViewType uint8

const (
	ViewNone ViewType = iota
	View1D
	View2D
	View3D
	ViewCube
	View2DArray
)

// PlatformBindings carries the per-GPU-family Metal index overrides a
// resource may need: Apple-silicon Metal GPUs assign argument-buffer
// indices differently from macOS/Intel Metal GPUs for some resource
// kinds.
type PlatformBindings struct {
	MacOSMetalIndex        *uint32
	AppleSiliconMetalIndex *uint32
}

// ResourceBinding is one logical slot in a descriptor set.
type ResourceBinding struct {
	Binding     uint32
	ArrayLength uint32
	Type        ResourceType
	ViewType    ViewType
	Platform    PlatformBindings
	Name        string
}

// sameShape reports whether two bindings match on (binding, arrayLength,
// name, type) — the fields spec.md §4.K's compatibility heuristic compares.
func sameShape(a, b ResourceBinding) bool {
	return a.Binding == b.Binding && a.ArrayLength == b.ArrayLength &&
		a.Name == b.Name && a.Type == b.Type
}

// DescriptorSet is the logical, backend-independent shape of a bind group:
// which stages reference it and which resources it binds.
type DescriptorSet struct {
	Stages    usage.StageMask
	Resources []ResourceBinding
}

// Compatible reports whether a and b share at least threshold resources of
// identical shape, the reuse heuristic spec.md §4.K describes for
// deciding when two passes' descriptor sets can share one ArgumentBuffer.
func Compatible(a, b DescriptorSet, threshold int) bool {
	shared := 0
	for _, ra := range a.Resources {
		for _, rb := range b.Resources {
			if sameShape(ra, rb) {
				shared++
				break
			}
		}
	}
	return shared >= threshold
}

// VulkanBindingPath is the Vulkan shape of a resource binding path:
// descriptor set index, binding index, and array index within that
// binding.
type VulkanBindingPath struct {
	Set        uint32
	Binding    uint32
	ArrayIndex uint32
}

// MetalBindingPath is the Metal shape of a resource binding path: a
// descriptor-set-equivalent index, a flattened argument-buffer index, and
// the resource's type (Metal distinguishes buffer/texture/sampler
// argument tables).
type MetalBindingPath struct {
	DescriptorSet uint32
	Index         uint32
	Type          ResourceType
}

// BindingValue is the resource bound at a binding path.
type BindingValue struct {
	Resource handle.Handle
	Binding  ResourceBinding
}

// VulkanEncoding pairs one resource with its Vulkan binding path.
type VulkanEncoding struct {
	Path  VulkanBindingPath
	Value BindingValue
}

// MetalEncoding pairs one resource with its Metal binding path.
type MetalEncoding struct {
	Path  MetalBindingPath
	Value BindingValue
}

// EncodeVulkan lowers set into Vulkan (set, binding, arrayIndex) paths.
// bindings maps each ResourceBinding.Binding to the handle bound there;
// a binding with no entry is skipped (the teacher's unusedArgumentBuffer
// usage kind covers slots declared but never written).
func EncodeVulkan(setIndex uint32, set DescriptorSet, bindings map[uint32]handle.Handle) []VulkanEncoding {
	out := make([]VulkanEncoding, 0, len(set.Resources))
	for _, r := range set.Resources {
		h, ok := bindings[r.Binding]
		if !ok {
			continue
		}
		for arrayIndex := uint32(0); arrayIndex < arrayLen(r); arrayIndex++ {
			out = append(out, VulkanEncoding{
				Path:  VulkanBindingPath{Set: setIndex, Binding: r.Binding, ArrayIndex: arrayIndex},
				Value: BindingValue{Resource: h, Binding: r},
			})
		}
	}
	return out
}

// EncodeMetal lowers set into Metal (descriptorSet, index, type) paths,
// applying the per-GPU-family index override when one is present for
// appleSilicon. Storage images on Apple-silicon Metal bind directly on the
// encoder rather than through the argument buffer (spec.md §4.K); those
// are returned separately in direct rather than encoded.
func EncodeMetal(setIndex uint32, set DescriptorSet, bindings map[uint32]handle.Handle, appleSilicon bool) (encoded []MetalEncoding, direct []BindingValue) {
	for _, r := range set.Resources {
		h, ok := bindings[r.Binding]
		if !ok {
			continue
		}
		value := BindingValue{Resource: h, Binding: r}

		if appleSilicon && r.Type == ResourceStorageImage {
			direct = append(direct, value)
			continue
		}

		index := r.Binding
		if appleSilicon && r.Platform.AppleSiliconMetalIndex != nil {
			index = *r.Platform.AppleSiliconMetalIndex
		} else if !appleSilicon && r.Platform.MacOSMetalIndex != nil {
			index = *r.Platform.MacOSMetalIndex
		}

		encoded = append(encoded, MetalEncoding{
			Path:  MetalBindingPath{DescriptorSet: setIndex, Index: index, Type: r.Type},
			Value: value,
		})
	}
	return encoded, direct
}

func arrayLen(r ResourceBinding) uint32 {
	if r.ArrayLength == 0 {
		return 1
	}
	return r.ArrayLength
}

// EntryPoint is a shader entry point's stage and (for compute) workgroup
// size, reflected from a compiled naga IR module.
type EntryPoint struct {
	Name      string
	Stage     usage.StageMask
	Workgroup [3]uint32
}

// ReflectModule parses and lowers WGSL source through naga, the same path
// hal/gles and hal/metal use to cross-compile shaders, and returns its
// entry points' stage and workgroup metadata.
func ReflectModule(wgsl string) ([]EntryPoint, error) {
	ast, err := naga.Parse(wgsl)
	if err != nil {
		return nil, fmt.Errorf("argbuf: WGSL parse error: %w", err)
	}
	module, err := naga.Lower(ast)
	if err != nil {
		return nil, fmt.Errorf("argbuf: WGSL lower error: %w", err)
	}
	out := make([]EntryPoint, 0, len(module.EntryPoints))
	for _, ep := range module.EntryPoints {
		out = append(out, EntryPoint{Name: ep.Name, Stage: stageOf(ep.Stage), Workgroup: ep.Workgroup})
	}
	return out, nil
}

// StagesOf unions the stage mask of every entry point in eps, for building
// a DescriptorSet's Stages field from a reflected module.
func StagesOf(eps []EntryPoint) usage.StageMask {
	var mask usage.StageMask
	for _, ep := range eps {
		mask |= ep.Stage
	}
	return mask
}

func stageOf(s ir.Stage) usage.StageMask {
	switch s {
	case ir.StageVertex:
		return usage.StageVertex
	case ir.StageFragment:
		return usage.StageFragment
	case ir.StageCompute:
		return usage.StageCompute
	default:
		return 0
	}
}
