package frame

import (
	"sync"
	"testing"
	"time"
)

func TestCompletionWaitForFrameUnblocksOnAdvance(t *testing.T) {
	c := NewCompletion()
	done := make(chan struct{})

	go func() {
		c.WaitForFrame(3)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForFrame returned before frame 3 completed")
	case <-time.After(20 * time.Millisecond):
	}

	c.Advance(3)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForFrame did not unblock after Advance")
	}
}

func TestCompletionAdvanceNeverGoesBackwards(t *testing.T) {
	c := NewCompletion()
	c.Advance(5)
	c.Advance(2)
	if c.Current() != 5 {
		t.Fatalf("expected completion to stay at 5, got %d", c.Current())
	}
}

func TestCompletionWaitForAlreadyCompletedFrameReturnsImmediately(t *testing.T) {
	c := NewCompletion()
	c.Advance(10)
	doneCh := make(chan struct{})
	go func() {
		c.WaitForFrame(4)
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("WaitForFrame should return immediately for an already-completed frame")
	}
}

func TestQueueTimelineMonotonic(t *testing.T) {
	q := NewQueue("graphics")
	var got []uint64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := q.NextTimelineValue()
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if q.TimelineValue() != 50 {
		t.Fatalf("expected timeline to reach 50, got %d", q.TimelineValue())
	}
	seen := map[uint64]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("timeline value %d issued twice", v)
		}
		seen[v] = true
	}
}

func TestQueueHasCompleted(t *testing.T) {
	q := NewQueue("transfer")
	a := q.NextTimelineValue()
	b := q.NextTimelineValue()
	if q.HasCompleted(a) {
		t.Fatal("nothing should have completed yet")
	}
	q.SignalCompleted(a)
	if !q.HasCompleted(a) {
		t.Fatal("expected value a to have completed")
	}
	if q.HasCompleted(b) {
		t.Fatal("value b should not have completed yet")
	}
}

func TestInflightSemaphoreBounds(t *testing.T) {
	s := NewInflightSemaphore(2)
	s.Acquire()
	s.Acquire()

	acquired := make(chan struct{})
	go func() {
		s.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third Acquire should block while only 2 slots exist")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire should unblock after Release")
	}
}
