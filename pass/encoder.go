package pass

import (
	"github.com/gogpu/gputypes"
	"github.com/rhizomegfx/framegraph/hal"
)

// DrawEncoder is the typed encoder handed to a Draw pass's execute
// callback. It wraps hal.CommandEncoder/hal.RenderPassEncoder, counting
// every recorded command so Finalize can attribute usage ranges
// correctly, mirroring the way the teacher's CoreCommandEncoder increments
// implicit state only while CommandEncoderStatusLocked.
type DrawEncoder struct {
	record *Record
	enc    hal.CommandEncoder
	rp     hal.RenderPassEncoder
}

// BeginRenderPass opens the render pass described by desc.
func (d *DrawEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) {
	d.record.nextCommand()
	d.rp = d.enc.BeginRenderPass(desc)
}

// EndRenderPass closes the currently open render pass.
func (d *DrawEncoder) EndRenderPass() {
	d.record.nextCommand()
	d.rp.End()
	d.rp = nil
}

func (d *DrawEncoder) SetPipeline(p hal.RenderPipeline) {
	d.record.nextCommand()
	d.rp.SetPipeline(p)
}

func (d *DrawEncoder) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	d.record.nextCommand()
	d.rp.SetBindGroup(index, group, offsets)
}

func (d *DrawEncoder) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	d.record.nextCommand()
	d.rp.SetVertexBuffer(slot, buffer, offset)
}

func (d *DrawEncoder) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	d.record.nextCommand()
	d.rp.SetIndexBuffer(buffer, format, offset)
}

func (d *DrawEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.record.nextCommand()
	d.rp.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *DrawEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	d.record.nextCommand()
	d.rp.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (d *DrawEncoder) DrawIndirect(buffer hal.Buffer, offset uint64) {
	d.record.nextCommand()
	d.rp.DrawIndirect(buffer, offset)
}

// ComputeEncoder is the typed encoder handed to a Compute pass's execute
// callback.
type ComputeEncoder struct {
	record *Record
	enc    hal.CommandEncoder
	cp     hal.ComputePassEncoder
}

func (c *ComputeEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) {
	c.record.nextCommand()
	c.cp = c.enc.BeginComputePass(desc)
}

func (c *ComputeEncoder) EndComputePass() {
	c.record.nextCommand()
	c.cp.End()
	c.cp = nil
}

func (c *ComputeEncoder) SetPipeline(p hal.ComputePipeline) {
	c.record.nextCommand()
	c.cp.SetPipeline(p)
}

func (c *ComputeEncoder) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	c.record.nextCommand()
	c.cp.SetBindGroup(index, group, offsets)
}

func (c *ComputeEncoder) Dispatch(x, y, z uint32) {
	c.record.nextCommand()
	c.cp.Dispatch(x, y, z)
}

func (c *ComputeEncoder) DispatchIndirect(buffer hal.Buffer, offset uint64) {
	c.record.nextCommand()
	c.cp.DispatchIndirect(buffer, offset)
}

// BlitEncoder is the typed encoder handed to a Blit pass's execute
// callback: copy and clear operations only, no pipeline state.
type BlitEncoder struct {
	record *Record
	enc    hal.CommandEncoder
}

func (b *BlitEncoder) ClearBuffer(buffer hal.Buffer, offset, size uint64) {
	b.record.nextCommand()
	b.enc.ClearBuffer(buffer, offset, size)
}

func (b *BlitEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	b.record.nextCommand()
	b.enc.CopyBufferToBuffer(src, dst, regions)
}

func (b *BlitEncoder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy) {
	b.record.nextCommand()
	b.enc.CopyBufferToTexture(src, dst, regions)
}

func (b *BlitEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	b.record.nextCommand()
	b.enc.CopyTextureToBuffer(src, dst, regions)
}

func (b *BlitEncoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	b.record.nextCommand()
	b.enc.CopyTextureToTexture(src, dst, regions)
}

// ExternalEncoder hands an External pass raw access to the underlying
// hal.CommandEncoder, for work no typed encoder models.
type ExternalEncoder struct {
	record *Record
	enc    hal.CommandEncoder
}

// Raw returns the underlying hal.CommandEncoder. Every call the caller
// makes through it should be paired with a Mark call so the usage history
// still attributes a meaningful command range.
func (e *ExternalEncoder) Raw() hal.CommandEncoder { return e.enc }

// Mark reserves a command index, for callers driving the raw encoder
// directly to keep command-range attribution meaningful.
func (e *ExternalEncoder) Mark() { e.record.nextCommand() }
