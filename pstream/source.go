package pstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordian-engine/pantry/internal/ptrace"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/pnotify"
	"github.com/gordian-engine/pantry/psched"
)

// Tick is a single value produced by a [Source].
type Tick struct {
	// Zero-based, strictly increasing per source.
	Seq uint64

	Kind pitem.Kind

	// The scheduler time at which the kind was picked.
	GeneratedAt time.Time
}

// Observer receives the ticks multicast by a [Source].
type Observer interface {
	Observe(Tick)
}

// ObserverFunc adapts a plain function to [Observer].
type ObserverFunc func(Tick)

func (f ObserverFunc) Observe(t Tick) { f(t) }

// SourceConfig is the configuration for [NewSource].
type SourceConfig struct {
	// How often to generate a new tick.
	// Each tick is also held back for one more period before delivery.
	Period time.Duration

	// Called exactly once per tick to choose its kind.
	Pick pitem.Picker

	// The source closes when the first of these fires.
	Terminators []*pnotify.Notifier

	// Called at generation time, before the delivery delay.
	// Optional.
	OnCurrent func(Tick)

	// Optional.
	Metrics *pmetrics.Metrics

	// Optional; defaults to a no-op tracer.
	Tracer ptrace.Tracer
}

// errClosedInFlight is recorded on the span of a tick
// that was generated but never delivered.
var errClosedInFlight = errors.New("source closed before delivery")

// Source is a multicast stream of [Tick] values.
//
// A single generation pipeline runs per Source:
// on every period it picks a kind, publishes it through OnCurrent,
// and after one more period delivers the identical Tick
// to every subscribed [Observer], in subscription order.
// The number of observers never affects how often Pick is called.
//
// Generation starts eagerly on [*Source.Start],
// whether or not any observers have subscribed.
//
// Source is not safe for concurrent use;
// every method must be called on the scheduler's goroutine.
type Source struct {
	log   *slog.Logger
	sched psched.Scheduler

	period    time.Duration
	pick      pitem.Picker
	onCurrent func(Tick)

	metrics *pmetrics.Metrics
	tracer  ptrace.Tracer

	terminator *pnotify.Notifier

	started bool
	closed  bool

	startedAt time.Time
	nextSeq   uint64

	tickTimer psched.Timer

	// Ticks that have been generated but not yet delivered.
	inFlight map[uint64]inFlightTick

	subs        []*subscription
	completions []func()
}

type inFlightTick struct {
	Timer psched.Timer
	Span  ptrace.Span
}

type subscription struct {
	o      Observer
	active bool
}

// NewSource returns a Source that has not yet started generating.
// It panics if cfg has a non-positive period or a nil picker;
// callers are expected to validate user configuration first.
func NewSource(log *slog.Logger, sched psched.Scheduler, cfg SourceConfig) *Source {
	if cfg.Period <= 0 {
		panic(fmt.Errorf("BUG: SourceConfig.Period must be positive (got %s)", cfg.Period))
	}
	if cfg.Pick == nil {
		panic(errors.New("BUG: SourceConfig.Pick must not be nil"))
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = ptrace.TracerFrom(nil)
	}

	s := &Source{
		log:   log,
		sched: sched,

		period:    cfg.Period,
		pick:      cfg.Pick,
		onCurrent: cfg.OnCurrent,

		metrics: cfg.Metrics,
		tracer:  tracer,

		terminator: pnotify.Any("source-terminators", cfg.Terminators...),

		inFlight: make(map[uint64]inFlightTick),
	}

	if s.terminator.Fired() {
		s.log.Debug("Terminator fired before start; closing immediately")
		s.close()
	} else {
		s.terminator.OnFire(s.close)
	}

	return s
}

// Start begins generation.
// Starting a closed source, or starting more than once, has no effect.
//
// The source closes as soon as a terminator fires,
// even if Start was never called.
func (s *Source) Start() {
	if s.started || s.closed {
		return
	}
	s.started = true

	s.startedAt = s.sched.Now()
	s.tickTimer = s.sched.AfterFunc(s.period, s.tick)

	s.log.Debug("Started generating", "period", s.period)
}

// Subscribe adds o to the set of observers.
// o receives every tick delivered after this call,
// until the returned unsubscribe function is called or the source closes.
// Subscribing to a closed source is allowed, but o never receives anything.
func (s *Source) Subscribe(o Observer) (unsubscribe func()) {
	if s.closed {
		return func() {}
	}

	sub := &subscription{o: o, active: true}
	s.subs = append(s.subs, sub)

	return func() {
		sub.active = false
	}
}

// OnComplete registers fn to be called once when the source closes.
// If the source is already closed, fn is called immediately.
func (s *Source) OnComplete(fn func()) {
	if s.closed {
		fn()
		return
	}
	s.completions = append(s.completions, fn)
}

// Closed reports whether the source has stopped permanently.
func (s *Source) Closed() bool {
	return s.closed
}

// NextSeq returns the sequence number the next generated tick will have.
// Equivalently, it is the number of ticks generated so far.
func (s *Source) NextSeq() uint64 {
	return s.nextSeq
}

func (s *Source) tick() {
	t := Tick{
		Seq:         s.nextSeq,
		Kind:        s.pick(),
		GeneratedAt: s.sched.Now(),
	}
	s.nextSeq++

	s.metrics.TickGenerated()

	_, span := s.tracer.Start(
		context.Background(), "pantry.tick",
		ptrace.WithAttributes(
			ptrace.TickSeqAttr(t.Seq),
			ptrace.KindAttr(string(t.Kind)),
		),
	)

	if s.onCurrent != nil {
		s.onCurrent(t)
	}

	// The current-item hook may have closed us,
	// for instance if an observer of the hook fired a terminator.
	if s.closed {
		span.End()
		return
	}

	// Schedule the delivery before the next tick,
	// so that a delivery and a generation due at the same instant
	// are always ordered delivery first.
	s.inFlight[t.Seq] = inFlightTick{
		Timer: s.sched.AfterFunc(s.period, func() { s.deliver(t) }),
		Span:  span,
	}

	// Schedule against the start time rather than now,
	// so that periods do not drift.
	due := s.startedAt.Add(time.Duration(s.nextSeq+1) * s.period)
	s.tickTimer = s.sched.AfterFunc(due.Sub(s.sched.Now()), s.tick)
}

func (s *Source) deliver(t Tick) {
	f := s.inFlight[t.Seq]
	delete(s.inFlight, t.Seq)

	s.metrics.TickDelivered()

	// Observers subscribed during delivery do not see this tick.
	subs := s.subs
	n := 0
	for _, sub := range subs {
		if s.closed {
			break
		}
		if !sub.active {
			continue
		}
		sub.o.Observe(t)
		n++
	}

	f.Span.SetAttributes(ptrace.SubscribersAttr(n))
	f.Span.End()

	s.compactSubscriptions()
}

func (s *Source) compactSubscriptions() {
	live := s.subs[:0]
	for _, sub := range s.subs {
		if sub.active {
			live = append(live, sub)
		}
	}
	clear(s.subs[len(live):])
	s.subs = live
}

func (s *Source) close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.tickTimer != nil {
		s.tickTimer.Stop()
	}

	dropped := len(s.inFlight)
	for seq, f := range s.inFlight {
		f.Timer.Stop()
		ptrace.SpanError(f.Span, errClosedInFlight)
		f.Span.End()
		delete(s.inFlight, seq)
	}
	s.metrics.TicksDropped(dropped)

	for _, sub := range s.subs {
		sub.active = false
	}
	s.subs = nil

	s.log.Debug("Source closed", "generated", s.nextSeq, "dropped", dropped)
	s.metrics.StreamCompleted("source")

	cs := s.completions
	s.completions = nil
	for _, fn := range cs {
		fn()
	}
}
