package pantry

import (
	"context"
	"log/slog"

	"github.com/gordian-engine/pantry/psched"
)

// Host runs a [Coordinator] on its own goroutine,
// with a real-time [psched.Queue] as the scheduler.
//
// The host's context is the owning context of the coordinator:
// cancelling it tears the coordinator down exactly once
// and stops the main loop.
type Host struct {
	log *slog.Logger

	c *Coordinator
	q *psched.Queue

	switchRequests   chan struct{}
	stopRequests     chan struct{}
	snapshotRequests chan chan Snapshot

	// Written by the main loop before done is closed.
	final Snapshot

	done chan struct{}
}

// NewHost validates cfg, starts the main loop goroutine,
// and starts the coordinator on it.
//
// The returned error, if any, is the same as from [NewCoordinator],
// and no goroutine is started in that case.
func NewHost(ctx context.Context, log *slog.Logger, cfg Config) (*Host, error) {
	done := make(chan struct{})
	q := psched.NewQueue(done)

	c, err := NewCoordinator(log, q, cfg)
	if err != nil {
		return nil, err
	}

	h := &Host{
		log: log,

		c: c,
		q: q,

		switchRequests:   make(chan struct{}),
		stopRequests:     make(chan struct{}),
		snapshotRequests: make(chan chan Snapshot),

		done: done,
	}

	go h.mainLoop(ctx)

	return h, nil
}

func (h *Host) mainLoop(ctx context.Context) {
	defer close(h.done)

	h.c.OnStart()

	for {
		select {
		case <-ctx.Done():
			h.log.Info(
				"Stopping due to context cancellation",
				"cause", context.Cause(ctx),
			)
			h.c.OnTeardown()
			h.final = h.c.Snapshot()
			return

		case fn := <-h.q.Ready():
			fn()

		case <-h.switchRequests:
			h.c.RequestSwitch()

		case <-h.stopRequests:
			h.c.RequestStop()

		case resp := <-h.snapshotRequests:
			// Response channel is buffered.
			resp <- h.c.Snapshot()
		}
	}
}

// Switch requests the pantry switch.
// Repeated calls are accepted and ignored by the coordinator.
func (h *Host) Switch(ctx context.Context) error {
	return h.send(ctx, h.switchRequests)
}

// Stop requests that the factory stop.
// Repeated calls are accepted and ignored by the coordinator.
func (h *Host) Stop(ctx context.Context) error {
	return h.send(ctx, h.stopRequests)
}

func (h *Host) send(ctx context.Context, ch chan<- struct{}) error {
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-h.done:
		return ErrHostStopped
	case ch <- struct{}{}:
		return nil
	}
}

// Snapshot returns the coordinator's current observable state.
func (h *Host) Snapshot(ctx context.Context) (Snapshot, error) {
	resp := make(chan Snapshot, 1)

	select {
	case <-ctx.Done():
		return Snapshot{}, context.Cause(ctx)
	case <-h.done:
		return Snapshot{}, ErrHostStopped
	case h.snapshotRequests <- resp:
		// Okay.
	}

	select {
	case <-ctx.Done():
		return Snapshot{}, context.Cause(ctx)
	case s := <-resp:
		return s, nil
	}
}

// Wait blocks until the main loop has exited,
// which happens after the host's context is cancelled.
func (h *Host) Wait() {
	<-h.done
}

// Done returns a channel that is closed when the main loop has exited.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Final returns the state captured right after teardown.
// It must only be called after [*Host.Wait] returns.
func (h *Host) Final() Snapshot {
	select {
	case <-h.done:
		return h.final
	default:
		panic("BUG: Host.Final called before main loop exited")
	}
}
