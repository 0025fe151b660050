package stepgen

import (
	"container/heap"
	"context"

	"golang.org/x/sync/semaphore"

	"motioncore/motion"
)

type eventHeap []motion.StepEvent

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool   { return h[i].TAbsNs < h[j].TAbsNs }
func (h eventHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{})  { *h = append(*h, x.(motion.StepEvent)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Horizon is a bounded, time-ordered buffer between the step generator and
// the transport task, implementing the credit-based backpressure of spec §6:
// Push blocks until a downstream credit is available (or ctx is cancelled),
// Pop hands back the earliest event and releases one credit.
type Horizon struct {
	sem *semaphore.Weighted
	h   eventHeap
}

// NewHorizon builds a Horizon that admits at most capacity events before
// Push starts blocking.
func NewHorizon(capacity int64) *Horizon {
	return &Horizon{sem: semaphore.NewWeighted(capacity)}
}

// Push blocks until either a credit is free or ctx is done, in which case
// it returns ctx.Err() unchanged.
func (b *Horizon) Push(ctx context.Context, ev motion.StepEvent) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	heap.Push(&b.h, ev)
	return nil
}

// Pop removes and returns the earliest-timestamped event, releasing its
// credit back to any blocked Push. The second return is false if empty.
func (b *Horizon) Pop() (motion.StepEvent, bool) {
	if b.h.Len() == 0 {
		return motion.StepEvent{}, false
	}
	ev := heap.Pop(&b.h).(motion.StepEvent)
	b.sem.Release(1)
	return ev, true
}

// Len reports how many events are currently buffered.
func (b *Horizon) Len() int { return b.h.Len() }
