// Package jobs implements the frame graph's job-manager contract
// (spec.md §5/§6): `async(priority, body)` dispatches pass bodies onto a
// worker pool, `syncOnMainThread(body)` runs a closure on the one thread
// command-buffer submission must be serialized against.
//
// Grounded on the teacher's internal/thread package: Manager's main-thread
// half wraps a thread.Thread exactly the way internal/thread/renderloop.go's
// RenderLoop wraps one to get RunOnRenderThread{,Void,Async} — a single
// OS-thread-locked goroutine serializing calls through a channel. The
// async half generalizes that "one dedicated thread" model into a bounded
// pool of N worker goroutines, since spec.md §5 allows independent passes
// to run on separate encoders concurrently (something a single render
// thread cannot do), pulling from three priority-ordered channels instead
// of the renderloop's single unprioritized func channel.
package jobs

import (
	"sync"

	"github.com/rhizomegfx/framegraph/internal/thread"
)

// Priority orders queued work; workers always drain High before Normal
// before Low.
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// DefaultWorkers is the worker pool size Manager uses when New is given 0.
const DefaultWorkers = 4

// Manager is a bounded worker pool plus one dedicated main thread,
// satisfying the frame graph's job-manager contract.
type Manager struct {
	main *thread.Thread

	high   chan func()
	normal chan func()
	low    chan func()

	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a Manager with the given number of worker goroutines (0
// selects DefaultWorkers) and starts them, along with one dedicated main
// thread for SyncOnMainThread.
func New(workers int) *Manager {
	if workers < 1 {
		workers = DefaultWorkers
	}
	m := &Manager{
		main:   thread.New(),
		high:   make(chan func(), 64),
		normal: make(chan func(), 64),
		low:    make(chan func(), 64),
		quit:   make(chan struct{}),
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case f := <-m.high:
			f()
		default:
			select {
			case f := <-m.high:
				f()
			case f := <-m.normal:
				f()
			default:
				select {
				case f := <-m.high:
					f()
				case f := <-m.normal:
					f()
				case f := <-m.low:
					f()
				case <-m.quit:
					return
				}
			}
		}
	}
}

// Async enqueues body to run on a worker goroutine at the given priority.
// It returns immediately; body may run concurrently with the caller and
// with other Async bodies.
func (m *Manager) Async(priority Priority, body func()) {
	switch priority {
	case High:
		m.high <- body
	case Low:
		m.low <- body
	default:
		m.normal <- body
	}
}

// SyncOnMainThread runs body on the manager's single main thread and
// blocks until it completes, serializing it against every other
// SyncOnMainThread call — the guarantee command-buffer submission per
// queue relies on.
func (m *Manager) SyncOnMainThread(body func()) {
	m.main.CallVoid(body)
}

// Close stops every worker goroutine and the main thread. Pending Async
// work that has not yet been picked up is discarded.
func (m *Manager) Close() {
	m.quitOnce.Do(func() { close(m.quit) })
	m.wg.Wait()
	m.main.Stop()
}
