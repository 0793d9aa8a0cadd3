// Package frame implements cross-frame synchronization (spec.md §4.D):
// process-wide completion tracking with a real blocking wait, and
// per-queue submission timelines.
//
// The teacher's analogue is core/queue.go's Queue.OnSubmittedWorkDone,
// which registers a callback invoked from a polling Device.Poll loop
// rather than blocking the caller. The frame graph needs an actual
// blocking wait (CPU readback passes and the uploader's synchronous Flush
// both need to know a previous frame's GPU work has retired before
// touching its resources), so Completion generalizes that callback queue
// into a condition variable broadcast on every frame retirement.
package frame

import (
	"sync"
)

// Completion tracks the process-wide "last completed frame" counter and
// lets callers block until a given frame number has retired on the GPU.
type Completion struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
}

// NewCompletion creates a Completion starting at frame 0.
func NewCompletion() *Completion {
	c := &Completion{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Advance marks frameNumber (and everything before it) as completed and
// wakes any goroutine blocked in WaitForFrame. It is a no-op if
// frameNumber is not newer than the current value, since completion can
// only move forward.
func (c *Completion) Advance(frameNumber uint64) {
	c.mu.Lock()
	if frameNumber > c.completed {
		c.completed = frameNumber
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// Current returns the last frame number known to have completed.
func (c *Completion) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// WaitForFrame blocks the calling goroutine until frameNumber has
// completed. It returns immediately if the frame has already completed.
func (c *Completion) WaitForFrame(frameNumber uint64) {
	c.mu.Lock()
	for c.completed < frameNumber {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// Queue is a logical submission lane (e.g. graphics, compute, transfer)
// with its own monotonic submission timeline, analogous to the teacher's
// per-device Queue but without the WebGPU submission/mapping API surface
// around it — only the counter the frame graph's scheduler needs to order
// cross-queue signal/wait events (spec.md §4.G).
type Queue struct {
	mu        sync.Mutex
	name      string
	timeline  uint64
	completed uint64
}

// NewQueue creates a named queue with its timeline starting at 0.
func NewQueue(name string) *Queue {
	return &Queue{name: name}
}

// Name returns the queue's label.
func (q *Queue) Name() string { return q.name }

// NextTimelineValue reserves and returns the next submission index on this
// queue's timeline, to be signaled once that submission's GPU work
// completes.
func (q *Queue) NextTimelineValue() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timeline++
	return q.timeline
}

// TimelineValue returns the most recently reserved (not necessarily
// completed) timeline value.
func (q *Queue) TimelineValue() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.timeline
}

// SignalCompleted records that every submission up to and including value
// has retired on the GPU for this queue.
func (q *Queue) SignalCompleted(value uint64) {
	q.mu.Lock()
	if value > q.completed {
		q.completed = value
	}
	q.mu.Unlock()
}

// CompletedValue returns the highest timeline value known to have
// completed on this queue.
func (q *Queue) CompletedValue() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completed
}

// HasCompleted reports whether the submission at value has retired.
func (q *Queue) HasCompleted(value uint64) bool {
	return q.CompletedValue() >= value
}

// InflightSemaphore bounds the number of frames allowed to be in flight
// simultaneously (spec.md §5), generalizing the teacher's single
// OnSubmittedWorkDone callback into a counting semaphore the frame loop
// acquires before recording and releases on retirement.
type InflightSemaphore struct {
	ch chan struct{}
}

// NewInflightSemaphore creates a semaphore allowing up to maxInFlight
// frames to be recorded before the oldest one must retire.
func NewInflightSemaphore(maxInFlight int) *InflightSemaphore {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	s := &InflightSemaphore{ch: make(chan struct{}, maxInFlight)}
	for i := 0; i < maxInFlight; i++ {
		s.ch <- struct{}{}
	}
	return s
}

// Acquire blocks until a frame slot is available.
func (s *InflightSemaphore) Acquire() { <-s.ch }

// Release returns a frame slot, called once that frame's GPU work retires.
func (s *InflightSemaphore) Release() { s.ch <- struct{}{} }
