package argbuf

import (
	"testing"

	"github.com/rhizomegfx/framegraph/handle"
	"github.com/rhizomegfx/framegraph/usage"
)

func someHandle(index uint32) handle.Handle {
	return handle.Encode(handle.TypeBuffer, 0, index)
}

func TestCompatibleRequiresThresholdSharedResources(t *testing.T) {
	a := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "camera", Type: ResourceBuffer},
		{Binding: 1, Name: "tex", Type: ResourceTexture},
	}}
	b := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "camera", Type: ResourceBuffer},
		{Binding: 1, Name: "tex", Type: ResourceTexture},
		{Binding: 2, Name: "extra", Type: ResourceSampler},
	}}
	if !Compatible(a, b, DefaultCompatibilityThreshold) {
		t.Fatal("expected sets sharing 2 identically shaped resources to be compatible")
	}

	c := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "camera", Type: ResourceBuffer},
	}}
	if Compatible(a, c, DefaultCompatibilityThreshold) {
		t.Fatal("expected sets sharing only 1 resource to be incompatible at threshold 2")
	}
}

func TestEncodeVulkanSkipsUnboundSlots(t *testing.T) {
	set := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "camera", Type: ResourceBuffer},
		{Binding: 1, Name: "unused", Type: ResourceTexture},
	}}
	bindings := map[uint32]handle.Handle{0: someHandle(1)}

	got := EncodeVulkan(2, set, bindings)
	if len(got) != 1 {
		t.Fatalf("expected 1 encoded binding, got %d", len(got))
	}
	if got[0].Path.Set != 2 || got[0].Path.Binding != 0 {
		t.Fatalf("unexpected path: %+v", got[0].Path)
	}
}

func TestEncodeVulkanExpandsArrayBindings(t *testing.T) {
	set := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "textures", Type: ResourceTexture, ArrayLength: 3},
	}}
	bindings := map[uint32]handle.Handle{0: someHandle(5)}

	got := EncodeVulkan(0, set, bindings)
	if len(got) != 3 {
		t.Fatalf("expected 3 array entries, got %d", len(got))
	}
	for i, enc := range got {
		if enc.Path.ArrayIndex != uint32(i) {
			t.Fatalf("entry %d: expected ArrayIndex %d, got %d", i, i, enc.Path.ArrayIndex)
		}
	}
}

func TestEncodeMetalAppleSiliconStorageImageBindsDirect(t *testing.T) {
	set := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "output", Type: ResourceStorageImage},
		{Binding: 1, Name: "camera", Type: ResourceBuffer},
	}}
	bindings := map[uint32]handle.Handle{
		0: someHandle(1),
		1: someHandle(2),
	}

	encoded, direct := EncodeMetal(0, set, bindings, true)
	if len(direct) != 1 || direct[0].Binding.Name != "output" {
		t.Fatalf("expected the storage image to bind direct, got %+v", direct)
	}
	if len(encoded) != 1 || encoded[0].Value.Binding.Name != "camera" {
		t.Fatalf("expected only the buffer to go through the argument buffer, got %+v", encoded)
	}
}

func TestEncodeMetalUsesPlatformIndexOverride(t *testing.T) {
	override := uint32(42)
	set := DescriptorSet{Resources: []ResourceBinding{
		{Binding: 0, Name: "camera", Type: ResourceBuffer, Platform: PlatformBindings{AppleSiliconMetalIndex: &override}},
	}}
	bindings := map[uint32]handle.Handle{0: someHandle(1)}

	encoded, _ := EncodeMetal(0, set, bindings, true)
	if len(encoded) != 1 || encoded[0].Path.Index != 42 {
		t.Fatalf("expected the Apple-silicon override index to be used, got %+v", encoded)
	}

	encodedMac, _ := EncodeMetal(0, set, bindings, false)
	if len(encodedMac) != 1 || encodedMac[0].Path.Index != 0 {
		t.Fatalf("expected the default binding index on macOS Metal, got %+v", encodedMac)
	}
}

func TestStagesOfUnionsEntryPointStages(t *testing.T) {
	eps := []EntryPoint{
		{Name: "vs_main", Stage: usage.StageVertex},
		{Name: "fs_main", Stage: usage.StageFragment},
	}
	got := StagesOf(eps)
	want := usage.StageVertex | usage.StageFragment
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
