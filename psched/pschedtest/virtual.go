// Package pschedtest contains a deterministic, virtual-time
// implementation of [psched.Scheduler] for tests.
package pschedtest

import (
	"container/heap"
	"time"

	"github.com/gordian-engine/pantry/psched"
)

// Epoch is the starting time of every [Virtual] scheduler.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Virtual is a [psched.Scheduler] whose clock only moves
// when the test calls [*Virtual.Advance].
//
// Timers due at the same instant run in the order they were scheduled.
// Virtual is not safe for concurrent use;
// the test goroutine is the scheduler's logical thread.
type Virtual struct {
	now time.Time

	// Monotonic counter to break ties between timers due at the same instant.
	seq uint64

	timers timerHeap
}

// NewVirtual returns a Virtual scheduler positioned at [Epoch].
func NewVirtual() *Virtual {
	return &Virtual{now: Epoch}
}

func (v *Virtual) Now() time.Time {
	return v.now
}

// Elapsed returns the virtual time elapsed since [Epoch].
func (v *Virtual) Elapsed() time.Duration {
	return v.now.Sub(Epoch)
}

func (v *Virtual) AfterFunc(d time.Duration, fn func()) psched.Timer {
	if d < 0 {
		d = 0
	}

	t := &virtualTimer{
		when: v.now.Add(d),
		seq:  v.seq,
		fn:   fn,
		idx:  -1,
	}
	v.seq++

	heap.Push(&v.timers, t)
	t.v = v
	return t
}

// Advance moves the clock forward by d,
// running every timer due at or before the new time, in order.
// Timers scheduled by those callbacks also run
// if they fall due within the window.
func (v *Virtual) Advance(d time.Duration) {
	v.AdvanceTo(v.now.Add(d))
}

// AdvanceTo is like [*Virtual.Advance] but takes an absolute target time.
// It panics if the target is in the past.
func (v *Virtual) AdvanceTo(target time.Time) {
	if target.Before(v.now) {
		panic("BUG: cannot move virtual clock backwards")
	}

	for len(v.timers) > 0 && !v.timers[0].when.After(target) {
		t := heap.Pop(&v.timers).(*virtualTimer)
		v.now = t.when
		t.fired = true
		t.fn()
	}

	v.now = target
}

// AdvanceToElapsed moves the clock to Epoch+elapsed.
func (v *Virtual) AdvanceToElapsed(elapsed time.Duration) {
	v.AdvanceTo(Epoch.Add(elapsed))
}

// Pending returns the number of timers not yet run or stopped.
func (v *Virtual) Pending() int {
	return len(v.timers)
}

type virtualTimer struct {
	v *Virtual

	when time.Time
	seq  uint64
	fn   func()

	// Index in the heap, or -1 when not in the heap.
	idx   int
	fired bool
}

func (t *virtualTimer) Stop() bool {
	if t.fired || t.idx < 0 {
		return false
	}
	heap.Remove(&t.v.timers, t.idx)
	return true
}

type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.idx = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.idx = -1
	*h = old[:n-1]
	return t
}
