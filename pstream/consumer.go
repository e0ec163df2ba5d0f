package pstream

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/pnotify"
)

// ConsumerConfig is the configuration for [NewConsumer].
type ConsumerConfig struct {
	// Used for logging and metric labels.
	Name string

	// If set, the consumer discards every tick
	// generated before the gate fires.
	// A nil gate means the consumer accepts ticks from the start.
	Gate *pnotify.Notifier

	// The consumer completes when the first of these fires.
	Terminators []*pnotify.Notifier

	// How to place each item the consumer creates.
	Placement pitem.Placement

	// Randomness for placement.
	Rand *rand.Rand

	// Optional.
	Metrics *pmetrics.Metrics
}

// Consumer derives owned [pitem.Item] values from a [Source]
// and appends them to an ordered collection.
//
// Consumer is not safe for concurrent use;
// every method must be called on the scheduler's goroutine.
type Consumer struct {
	log *slog.Logger
	src *Source

	name      string
	placement pitem.Placement
	rand      *rand.Rand
	metrics   *pmetrics.Metrics

	gate       *pnotify.Notifier
	terminator *pnotify.Notifier

	started   bool
	completed bool

	// Only meaningful when gate is set.
	gateOpen bool
	// Ticks with a lower sequence number were generated
	// before the gate opened, and are discarded.
	cutoff uint64

	items     []pitem.Item
	accepted  *bitset.BitSet
	discarded uint64

	unsubscribe func()
	stopGate    func()

	itemHooks   []func(pitem.Item)
	completions []func()
}

// NewConsumer returns a Consumer reading from src.
// It begins observing its terminators and gate immediately,
// but does not subscribe to src until [*Consumer.Start].
func NewConsumer(log *slog.Logger, src *Source, cfg ConsumerConfig) *Consumer {
	if cfg.Placement == nil {
		panic(errors.New("BUG: ConsumerConfig.Placement must not be nil"))
	}
	if cfg.Rand == nil {
		panic(errors.New("BUG: ConsumerConfig.Rand must not be nil"))
	}

	c := &Consumer{
		log: log,
		src: src,

		name:      cfg.Name,
		placement: cfg.Placement,
		rand:      cfg.Rand,
		metrics:   cfg.Metrics,

		gate:       cfg.Gate,
		terminator: pnotify.Any(cfg.Name+"-terminators", cfg.Terminators...),

		accepted: bitset.New(64),

		unsubscribe: func() {},
		stopGate:    func() {},
	}

	if c.terminator.Fired() {
		c.log.Debug("Terminator fired before start; completing immediately")
		c.complete()
		return c
	}
	c.terminator.OnFire(c.complete)

	if c.gate != nil {
		if c.gate.Fired() {
			// The gate fired before this consumer existed,
			// so every tick it will be delivered is acceptable.
			c.gateOpen = true
		} else {
			c.stopGate = c.gate.OnFire(c.openGate)
		}
	}

	return c
}

// Start subscribes to the source.
// Starting a completed consumer, or starting more than once, has no effect.
//
// Terminators and the gate are observed from construction,
// so a consumer may complete or open its gate before Start.
func (c *Consumer) Start() {
	if c.started || c.completed {
		return
	}
	c.started = true

	c.unsubscribe = c.src.Subscribe(c)
}

// Observe implements [Observer].
func (c *Consumer) Observe(t Tick) {
	if c.completed {
		return
	}

	if c.gate != nil && (!c.gateOpen || t.Seq < c.cutoff) {
		c.discarded++
		c.metrics.TickDiscarded(c.name)
		return
	}

	item := pitem.NewItem(t.Kind, c.placement, c.rand, t.Seq, t.GeneratedAt)
	c.items = append(c.items, item)
	c.accepted.Set(uint(t.Seq))
	c.metrics.ItemAppended(c.name)

	for _, fn := range c.itemHooks {
		fn(item)
	}
}

func (c *Consumer) openGate() {
	if c.completed {
		return
	}

	c.gateOpen = true
	c.cutoff = c.src.NextSeq()

	c.log.Debug("Gate opened", "cutoff_seq", c.cutoff)
}

func (c *Consumer) complete() {
	if c.completed {
		return
	}
	c.completed = true

	c.unsubscribe()
	c.stopGate()

	c.log.Debug("Consumer completed", "items", len(c.items), "discarded", c.discarded)
	c.metrics.StreamCompleted(c.name)

	cs := c.completions
	c.completions = nil
	for _, fn := range cs {
		fn()
	}
}

// OnItem registers fn to be called with every item
// appended to the collection.
func (c *Consumer) OnItem(fn func(pitem.Item)) {
	c.itemHooks = append(c.itemHooks, fn)
}

// OnComplete registers fn to be called once when the consumer completes.
// If the consumer has already completed, fn is called immediately.
func (c *Consumer) OnComplete(fn func()) {
	if c.completed {
		fn()
		return
	}
	c.completions = append(c.completions, fn)
}

// Name returns the configured name.
func (c *Consumer) Name() string {
	return c.name
}

// Items returns a copy of the collection, in arrival order.
func (c *Consumer) Items() []pitem.Item {
	return slices.Clone(c.items)
}

// Len returns the size of the collection.
func (c *Consumer) Len() int {
	return len(c.items)
}

// Accepted returns a copy of the set of tick sequence numbers
// that became items in this consumer.
func (c *Consumer) Accepted() *bitset.BitSet {
	return c.accepted.Clone()
}

// Discarded returns how many delivered ticks were ignored
// because the gate was closed for them.
func (c *Consumer) Discarded() uint64 {
	return c.discarded
}

// Ignoring reports whether the consumer would currently discard a new tick,
// either because it is gated and the gate has not opened,
// or because it has completed.
func (c *Consumer) Ignoring() bool {
	return c.completed || (c.gate != nil && !c.gateOpen)
}

// Completed reports whether a terminator has ended the consumer.
func (c *Consumer) Completed() bool {
	return c.completed
}
