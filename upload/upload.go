// Package upload implements the GPU resource uploader (spec.md §4.J): a
// singleton, budget-driven staging-buffer scheduler that batches
// host-to-device copies and flushes synchronously whenever the batch would
// exceed a configurable byte budget.
//
// It owns its own inflight count of one frame — only one batch of staging
// buffers is ever outstanding, since Flush blocks until the GPU has
// consumed it before returning. This is a deliberate narrowing of the main
// frame graph's N-frames-in-flight model (package frame): staging buffer
// lifetime is short and host-visible, so there is nothing to gain from
// letting more than one batch be in flight, and a lot to lose in transient
// memory if callers could queue unbounded staging data.
package upload

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/rhizomegfx/framegraph/hal"
)

// DefaultMaxUploadSize is the uploader's byte budget when none is given to
// New, matching spec.md §4.J's default of 128 MiB.
const DefaultMaxUploadSize uint64 = 128 << 20

// defaultFlushTimeout bounds Flush's wait for the GPU to retire the
// batch's command buffer; it matches the executor's fence-wait timeout.
const defaultFlushTimeout = 30 * time.Second

// stagingCopy is one pending upload: a staging buffer already filled with
// host data, paired with the blit-pass copy that lands it on its target.
type stagingCopy struct {
	staging hal.Buffer
	length  uint64
	emit    func(enc hal.CommandEncoder)
}

// Uploader batches host-to-device copies behind a single byte budget,
// flushing synchronously whenever a new copy would exceed it.
type Uploader struct {
	device        hal.Device
	queue         hal.Queue
	maxUploadSize uint64

	mu      sync.Mutex
	pending []stagingCopy
	bytes   uint64
	fence   hal.Fence
	flushes uint64
}

// New creates an Uploader bound to device/queue. maxUploadSize of 0 selects
// DefaultMaxUploadSize.
func New(device hal.Device, queue hal.Queue, maxUploadSize uint64) (*Uploader, error) {
	if maxUploadSize == 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("upload: create fence: %w", err)
	}
	return &Uploader{device: device, queue: queue, maxUploadSize: maxUploadSize, fence: fence}, nil
}

// MaxUploadSize returns the uploader's configured byte budget.
func (u *Uploader) MaxUploadSize() uint64 { return u.maxUploadSize }

// PendingBytes returns the sum of staging-buffer lengths queued since the
// last Flush.
func (u *Uploader) PendingBytes() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bytes
}

// WriteBuffer uploads data to dst immediately without going through the
// staging-buffer batch, for targets with host-visible storage: the
// teacher's core/queue.go QueueWriteBuffer path (a convenience write with
// no explicit staging buffer). It does not count against the byte budget
// since no staging buffer is allocated.
func (u *Uploader) WriteBuffer(dst hal.Buffer, offset uint64, data []byte) {
	u.queue.WriteBuffer(dst, offset, data)
}

// WriteTexture uploads data to dst immediately without staging, mirroring
// core/queue.go's QueueWriteTexture convenience path.
func (u *Uploader) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) {
	u.queue.WriteTexture(dst, data, layout, size)
}

// AddUploadPassToBuffer stages data into a freshly created staging buffer
// and enqueues a blit-pass copy from it into dst at dstOffset. If the
// batch's pending bytes plus len(data) would exceed the byte budget, it
// flushes the current batch synchronously first.
func (u *Uploader) AddUploadPassToBuffer(data []byte, dst hal.Buffer, dstOffset uint64) error {
	length := uint64(len(data))
	staging, err := u.stage(length, data)
	if err != nil {
		return err
	}
	return u.enqueue(length, staging, func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(staging, dst, []hal.BufferCopy{{SrcOffset: 0, DstOffset: dstOffset, Size: length}})
	})
}

// AddUploadPassToTexture stages data into a freshly created staging buffer
// and enqueues a blit-pass copy from it into dst at the region described
// by base/layout/size — spec.md §4.J's
// (region, mipmap, slice, bytesPerRow, bytesPerImage) target addressing.
func (u *Uploader) AddUploadPassToTexture(data []byte, dst hal.Texture, base hal.ImageCopyTexture, layout hal.ImageDataLayout, size hal.Extent3D) error {
	length := uint64(len(data))
	staging, err := u.stage(length, data)
	if err != nil {
		return err
	}
	return u.enqueue(length, staging, func(enc hal.CommandEncoder) {
		enc.CopyBufferToTexture(staging, dst, []hal.BufferTextureCopy{{BufferLayout: layout, TextureBase: base, Size: size}})
	})
}

// stage creates a staging buffer sized for data and fills it through
// Queue.WriteBuffer rather than a mapped-memory pointer: the hal contract
// (grounded on hal/resource.go) has no portable mapped-range accessor —
// only backend-internal types (e.g. hal/mock's Buffer.data) keep one —
// so WriteBuffer's "copy into whatever representation this backend uses"
// convenience path is the one hal-level primitive every backend supports.
func (u *Uploader) stage(length uint64, data []byte) (hal.Buffer, error) {
	buf, err := u.device.CreateBuffer(&hal.BufferDescriptor{
		Label:            "upload-staging",
		Size:             length,
		Usage:            gputypes.BufferUsageCopySrc | gputypes.BufferUsageMapWrite,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: create staging buffer: %w", err)
	}
	if len(data) > 0 {
		u.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

// enqueue appends a prepared staging copy to the batch, flushing first if
// it would overflow the byte budget.
func (u *Uploader) enqueue(length uint64, staging hal.Buffer, emit func(hal.CommandEncoder)) error {
	u.mu.Lock()
	if u.bytes+length > u.maxUploadSize && len(u.pending) > 0 {
		u.mu.Unlock()
		if err := u.Flush(); err != nil {
			return err
		}
		u.mu.Lock()
	}
	u.pending = append(u.pending, stagingCopy{staging: staging, length: length, emit: emit})
	u.bytes += length
	u.mu.Unlock()
	return nil
}

// Flush records and submits every pending staging copy as one blit-pass
// command buffer, blocks until the GPU has retired it, destroys the
// staging buffers, and resets the batch. It is a no-op if nothing is
// pending.
func (u *Uploader) Flush() error {
	u.mu.Lock()
	batch := u.pending
	u.pending = nil
	u.bytes = 0
	u.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	hal.Logger().Debug("upload flush", "copies", len(batch))

	enc, err := u.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "upload-flush"})
	if err != nil {
		return fmt.Errorf("upload: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("upload-flush"); err != nil {
		return fmt.Errorf("upload: begin encoding: %w", err)
	}
	for _, c := range batch {
		c.emit(enc)
	}
	cb, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("upload: end encoding: %w", err)
	}

	u.mu.Lock()
	u.flushes++
	value := u.flushes
	u.mu.Unlock()

	if err := u.queue.Submit([]hal.CommandBuffer{cb}, u.fence, value); err != nil {
		return fmt.Errorf("upload: submit: %w", err)
	}
	if ok, err := u.device.Wait(u.fence, value, defaultFlushTimeout); err != nil {
		return fmt.Errorf("upload: wait: %w", err)
	} else if !ok {
		return fmt.Errorf("upload: flush timed out waiting for GPU")
	}

	for _, c := range batch {
		u.device.DestroyBuffer(c.staging)
	}
	return nil
}
