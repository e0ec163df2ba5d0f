// Package pantrytest contains helpers for testing
// code built on a [pantry.Coordinator].
package pantrytest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/gordian-engine/pantry"
	"github.com/gordian-engine/pantry/internal/ptest"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/ppubsub"
	"github.com/gordian-engine/pantry/psched/pschedtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// Fixture is a Coordinator running on a virtual clock,
// with an event stream and an isolated metrics registry.
type Fixture struct {
	Log *slog.Logger

	V *pschedtest.Virtual

	Coordinator *pantry.Coordinator

	Registry *prometheus.Registry

	// Next unread event.
	events *ppubsub.Stream[pantry.Event]
}

// NewFixture returns a Fixture for the given config.
// Unset fields get test-friendly defaults:
// a 500ms period, kinds A and B picked in rotation,
// uniform placement over [0, 100), and randomness seeded by the test name.
// Metrics and Events are always replaced by the fixture's own.
//
// NewFixture calls t.Fatal if the coordinator cannot be created.
func NewFixture(t *testing.T, cfg pantry.Config) *Fixture {
	t.Helper()

	if cfg.Period == 0 {
		cfg.Period = 500 * time.Millisecond
	}
	if cfg.Kinds == nil {
		cfg.Kinds = []pitem.Kind{"A", "B"}
	}
	if cfg.Placement == nil {
		cfg.Placement = pitem.Uniform{Max: 100}
	}
	if cfg.Pick == nil {
		pick, err := pitem.CyclePicker(cfg.Kinds)
		require.NoError(t, err)
		cfg.Pick = pick
	}
	if cfg.Rand == nil {
		cfg.Rand = ptest.RandForTest(t)
	}

	reg := prometheus.NewPedanticRegistry()
	cfg.Metrics = pmetrics.New(pmetrics.Config{Registry: reg})

	head := ppubsub.NewStream[pantry.Event]()
	cfg.Events = head

	log := ptest.NewLogger(t)
	v := pschedtest.NewVirtual()

	c, err := pantry.NewCoordinator(log, v, cfg)
	require.NoError(t, err)

	return &Fixture{
		Log: log,

		V: v,

		Coordinator: c,

		Registry: reg,

		events: head,
	}
}

// At advances the virtual clock to the given offset from the fixture's start.
func (f *Fixture) At(elapsed time.Duration) {
	f.V.AdvanceToElapsed(elapsed)
}

// Events returns every event published since the previous call.
func (f *Fixture) Events() []pantry.Event {
	es, next := ppubsub.Drain(f.events)
	f.events = next
	return es
}

// EventKinds is like [*Fixture.Events] but only returns the kinds.
func (f *Fixture) EventKinds() []pantry.EventKind {
	es := f.Events()
	out := make([]pantry.EventKind, len(es))
	for i, e := range es {
		out[i] = e.Kind
	}
	return out
}

// Seqs returns the source sequence numbers of items.
func Seqs(items []pitem.Item) []uint64 {
	out := make([]uint64, len(items))
	for i, it := range items {
		out[i] = it.Seq
	}
	return out
}
