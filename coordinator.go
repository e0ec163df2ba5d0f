package pantry

import (
	"log/slog"
	"math/rand/v2"

	"github.com/gordian-engine/pantry/internal/ptrace"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/pnotify"
	"github.com/gordian-engine/pantry/ppubsub"
	"github.com/gordian-engine/pantry/psched"
	"github.com/gordian-engine/pantry/pstream"
)

// Coordinator owns the factory, both pantries,
// and the three one-shot signals that control them:
//
//   - stop-source terminates the factory.
//   - switch-gate terminates the left pantry and opens the right pantry.
//   - teardown terminates everything.
//
// Coordinator is single-threaded.
// Every method, and every scheduler callback, must run on the same goroutine.
// Use [Host] to drive a Coordinator from multiple goroutines.
type Coordinator struct {
	log   *slog.Logger
	sched psched.Scheduler

	metrics *pmetrics.Metrics
	events  *ppubsub.Stream[Event]

	stopSource *pnotify.Notifier
	switchGate *pnotify.Notifier
	teardown   *pnotify.Notifier

	source *pstream.Source
	left   *pstream.Consumer
	right  *pstream.Consumer

	started  bool
	tornDown bool

	current    pitem.Kind
	hasCurrent bool

	sourceStopped bool
	leftCompleted bool
	rightIgnoring bool
}

// Snapshot is a copy of the coordinator's observable state.
type Snapshot struct {
	// The most recently generated kind.
	// Only meaningful if HasCurrent is true.
	Current    pitem.Kind
	HasCurrent bool

	// Number of kinds generated so far.
	Generated uint64

	Left  []pitem.Item
	Right []pitem.Item

	SourceStopped bool
	LeftCompleted bool
	RightIgnoring bool
}

// NewCoordinator validates cfg and returns a Coordinator
// with its signals and streams constructed and wired, but not started.
// Generation begins at [*Coordinator.OnStart].
//
// The returned error, if any, joins one [InvalidConfigError] per problem.
func NewCoordinator(log *slog.Logger, sched psched.Scheduler, cfg Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	pick := cfg.Pick
	if pick == nil {
		var err error
		pick, err = pitem.RandomPicker(cfg.Kinds, r)
		if err != nil {
			// Unreachable since the kinds were validated.
			panic(err)
		}
	}

	c := &Coordinator{
		log:   log,
		sched: sched,

		metrics: cfg.Metrics,
		events:  cfg.Events,

		stopSource: pnotify.New("stop-source"),
		switchGate: pnotify.New("switch-gate"),
		teardown:   pnotify.New("teardown"),

		rightIgnoring: true,
	}

	for _, n := range []*pnotify.Notifier{c.stopSource, c.switchGate, c.teardown} {
		n.OnFire(func() {
			c.log.Debug("Signal fired", "signal", n.Name())
			c.metrics.SignalFired(n.Name())
		})
	}

	// Construction order matters:
	// observers of a shared signal run in registration order,
	// so at teardown the source closes before either pantry completes.
	c.source = pstream.NewSource(log.With("stream", "source"), sched, pstream.SourceConfig{
		Period:      cfg.Period,
		Pick:        pick,
		Terminators: []*pnotify.Notifier{c.stopSource, c.teardown},
		OnCurrent:   c.onCurrent,
		Metrics:     cfg.Metrics,
		Tracer:      ptrace.TracerFrom(cfg.TracerProvider),
	})

	// Each pantry gets an independent placement source,
	// derived deterministically from the configured one.
	c.left = pstream.NewConsumer(log.With("stream", "left"), c.source, pstream.ConsumerConfig{
		Name:        "left",
		Terminators: []*pnotify.Notifier{c.switchGate, c.teardown},
		Placement:   cfg.Placement,
		Rand:        rand.New(rand.NewPCG(r.Uint64(), r.Uint64())),
		Metrics:     cfg.Metrics,
	})
	c.right = pstream.NewConsumer(log.With("stream", "right"), c.source, pstream.ConsumerConfig{
		Name:        "right",
		Gate:        c.switchGate,
		Terminators: []*pnotify.Notifier{c.teardown},
		Placement:   cfg.Placement,
		Rand:        rand.New(rand.NewPCG(r.Uint64(), r.Uint64())),
		Metrics:     cfg.Metrics,
	})

	c.source.OnComplete(c.onSourceComplete)
	c.left.OnComplete(c.onLeftComplete)
	c.right.OnComplete(c.onRightComplete)

	c.left.OnItem(func(it pitem.Item) { c.publishLanded(SideLeft, it) })
	c.right.OnItem(func(it pitem.Item) { c.publishLanded(SideRight, it) })

	return c, nil
}

// OnStart starts the factory and subscribes both pantries.
// Calling OnStart again, or after teardown, has no effect.
func (c *Coordinator) OnStart() {
	if c.started || c.tornDown {
		c.log.Debug("Ignoring start", "started", c.started, "torn_down", c.tornDown)
		return
	}
	c.started = true

	c.source.Start()
	c.left.Start()
	c.right.Start()

	c.log.Info("Started")
}

// RequestSwitch fires the switch-gate signal:
// the left pantry completes and the right pantry begins accepting items
// generated from now on.
// Only the first call has any effect, and no call has effect after teardown.
func (c *Coordinator) RequestSwitch() {
	if c.tornDown {
		c.log.Debug("Ignoring switch request after teardown")
		return
	}
	if !c.switchGate.Fire() {
		c.log.Debug("Ignoring repeated switch request")
		return
	}

	c.rightIgnoring = false
	c.publish(Event{Kind: EventGateOpened})
}

// RequestStop fires the stop-source signal, stopping the factory.
// Only the first call has any effect, and no call has effect after teardown.
func (c *Coordinator) RequestStop() {
	if c.tornDown {
		c.log.Debug("Ignoring stop request after teardown")
		return
	}
	if !c.stopSource.Fire() {
		c.log.Debug("Ignoring repeated stop request")
	}
}

// OnTeardown fires the teardown signal,
// completing every stream that has not already completed.
// It must be called when the owning context is destroyed.
// Only the first call has any effect.
func (c *Coordinator) OnTeardown() {
	if c.tornDown {
		c.log.Debug("Ignoring repeated teardown")
		return
	}
	c.tornDown = true

	c.teardown.Fire()

	c.publish(Event{Kind: EventTornDown})
	c.log.Info(
		"Torn down",
		"generated", c.source.NextSeq(),
		"left_items", c.left.Len(),
		"right_items", c.right.Len(),
	)
}

// Snapshot returns a copy of the current observable state.
func (c *Coordinator) Snapshot() Snapshot {
	return Snapshot{
		Current:    c.current,
		HasCurrent: c.hasCurrent,
		Generated:  c.source.NextSeq(),

		Left:  c.left.Items(),
		Right: c.right.Items(),

		SourceStopped: c.sourceStopped,
		LeftCompleted: c.leftCompleted,
		RightIgnoring: c.rightIgnoring,
	}
}

// Current returns the most recently generated kind,
// and false if nothing has been generated yet.
func (c *Coordinator) Current() (pitem.Kind, bool) {
	return c.current, c.hasCurrent
}

// LeftItems returns a copy of the left pantry.
func (c *Coordinator) LeftItems() []pitem.Item {
	return c.left.Items()
}

// RightItems returns a copy of the right pantry.
func (c *Coordinator) RightItems() []pitem.Item {
	return c.right.Items()
}

func (c *Coordinator) SourceStopped() bool { return c.sourceStopped }
func (c *Coordinator) LeftCompleted() bool { return c.leftCompleted }
func (c *Coordinator) RightIgnoring() bool { return c.rightIgnoring }

func (c *Coordinator) onCurrent(t pstream.Tick) {
	c.current = t.Kind
	c.hasCurrent = true

	c.publish(Event{
		Kind: EventGenerated,
		Item: pitem.Item{
			Kind:        t.Kind,
			Seq:         t.Seq,
			GeneratedAt: t.GeneratedAt,
		},
	})
}

func (c *Coordinator) onSourceComplete() {
	c.sourceStopped = true
	c.publish(Event{Kind: EventSourceStopped})
}

func (c *Coordinator) onLeftComplete() {
	c.leftCompleted = true
	c.publish(Event{Kind: EventLeftCompleted})
}

func (c *Coordinator) onRightComplete() {
	c.rightIgnoring = true
	c.publish(Event{Kind: EventRightCompleted})
}

func (c *Coordinator) publishLanded(side Side, it pitem.Item) {
	c.publish(Event{
		Kind: EventLanded,
		Side: side,
		Item: it,
	})
}

func (c *Coordinator) publish(e Event) {
	if c.events == nil {
		return
	}

	e.At = c.sched.Now()
	c.events.Publish(e)
	c.events = c.events.Next
}

