// Package psched contains the [Scheduler] abstraction
// that the single-threaded stream core runs against,
// and [Queue], the real-time implementation.
//
// The core never blocks.
// Every suspension point (waiting for a period to elapse)
// is a callback registered with [Scheduler.AfterFunc],
// and every callback runs on one goroutine owned by the caller.
// See the pschedtest package for a virtual-time implementation.
package psched

import (
	"sync/atomic"
	"time"
)

// Scheduler schedules callbacks on a single logical thread.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// AfterFunc arranges for fn to be called
	// on the scheduler's goroutine after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending callback returned from [Scheduler.AfterFunc].
type Timer interface {
	// Stop prevents the callback from running.
	// It reports whether the call stopped the timer,
	// returning false if the callback already ran or the timer was already stopped.
	Stop() bool
}

// Queue is a real-time [Scheduler].
//
// Timers run on a background timer goroutine only long enough
// to hand their callback to the Queue.
// The owner must drain [*Queue.Ready] from exactly one goroutine
// and call each received function;
// that goroutine is the scheduler's logical thread.
type Queue struct {
	ready chan func()
	done  <-chan struct{}
}

// NewQueue returns a Queue.
// Once done is closed, callbacks whose timers elapse are discarded.
func NewQueue(done <-chan struct{}) *Queue {
	return &Queue{
		ready: make(chan func()),
		done:  done,
	}
}

// Ready returns the channel of callbacks that are due.
func (q *Queue) Ready() <-chan func() {
	return q.ready
}

func (q *Queue) Now() time.Time {
	return time.Now()
}

func (q *Queue) AfterFunc(d time.Duration, fn func()) Timer {
	qt := &queueTimer{}

	run := func() {
		// Stop may have been called after the timer elapsed
		// but before the owner received this function.
		if !qt.state.CompareAndSwap(timerPending, timerRan) {
			return
		}
		fn()
	}

	qt.t = time.AfterFunc(d, func() {
		select {
		case q.ready <- run:
		case <-q.done:
		}
	})

	return qt
}

const (
	timerPending int32 = iota
	timerRan
	timerStopped
)

type queueTimer struct {
	t     *time.Timer
	state atomic.Int32
}

func (qt *queueTimer) Stop() bool {
	qt.t.Stop()
	return qt.state.CompareAndSwap(timerPending, timerStopped)
}
