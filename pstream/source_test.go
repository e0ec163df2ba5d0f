package pstream_test

import (
	"testing"
	"time"

	"github.com/gordian-engine/pantry/internal/ptest"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pnotify"
	"github.com/gordian-engine/pantry/psched/pschedtest"
	"github.com/gordian-engine/pantry/pstream"
	"github.com/stretchr/testify/require"
)

const (
	ms     = time.Millisecond
	period = 500 * ms
)

// countingPicker cycles through A, B, C and counts its calls.
type countingPicker struct {
	calls int
}

func (p *countingPicker) Pick() pitem.Kind {
	k := []pitem.Kind{"A", "B", "C"}[p.calls%3]
	p.calls++
	return k
}

type recorder struct {
	v     *pschedtest.Virtual
	ticks []pstream.Tick
	at    []time.Duration
}

func (r *recorder) Observe(t pstream.Tick) {
	r.ticks = append(r.ticks, t)
	r.at = append(r.at, r.v.Elapsed())
}

func TestSource_multicastGeneratesOnce(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker
	stop := pnotify.New("stop")

	var current []pitem.Kind
	src := pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{
		Period:      period,
		Pick:        p.Pick,
		Terminators: []*pnotify.Notifier{stop},
		OnCurrent: func(tk pstream.Tick) {
			current = append(current, tk.Kind)
		},
	})

	rs := make([]*recorder, 3)
	for i := range rs {
		rs[i] = &recorder{v: v}
		src.Subscribe(rs[i])
	}
	src.Start()

	v.Advance(10 * period)

	// Ticks generated at 1P..10P; delivered at 2P..10P.
	require.Equal(t, 10, p.calls)
	require.Len(t, current, 10)
	require.Equal(t, uint64(10), src.NextSeq())

	for _, r := range rs {
		require.Len(t, r.ticks, 9)
		require.Equal(t, rs[0].ticks, r.ticks)
		require.Equal(t, rs[0].at, r.at)
	}

	for i, tk := range rs[0].ticks {
		require.Equal(t, uint64(i), tk.Seq)
		require.Equal(t, current[i], tk.Kind)
		require.Equal(t, time.Duration(i+1)*period, tk.GeneratedAt.Sub(pschedtest.Epoch))
		// Delivery lags generation by one more period.
		require.Equal(t, time.Duration(i+2)*period, rs[0].at[i])
	}
}

func TestSource_generatesWithoutSubscribers(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker

	src := pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{
		Period: period,
		Pick:   p.Pick,
	})
	src.Start()

	v.Advance(3 * period)
	require.Equal(t, 3, p.calls)
}

func TestSource_terminatorDropsInFlight(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker
	stop := pnotify.New("stop")
	teardown := pnotify.New("teardown")

	src := pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{
		Period:      period,
		Pick:        p.Pick,
		Terminators: []*pnotify.Notifier{stop, teardown},
	})

	completions := 0
	src.OnComplete(func() { completions++ })

	r := &recorder{v: v}
	src.Subscribe(r)
	src.Start()

	// Tick 0 generated at 1P, delivered at 2P.
	// Tick 1 generated at 2P, still in flight at 2.5P.
	v.Advance(5 * period / 2)
	require.Len(t, r.ticks, 1)

	require.True(t, stop.Fire())
	require.True(t, src.Closed())
	require.Equal(t, 1, completions)

	v.Advance(10 * period)
	require.Len(t, r.ticks, 1)
	require.Equal(t, 2, p.calls)
	require.Zero(t, v.Pending())

	// The other terminator firing afterwards has no further effect.
	teardown.Fire()
	require.Equal(t, 1, completions)

	// Late completion observers are told immediately.
	late := false
	src.OnComplete(func() { late = true })
	require.True(t, late)
}

func TestSource_terminatorFiredBeforeStart(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker
	stop := pnotify.New("stop")
	stop.Fire()

	src := pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{
		Period:      period,
		Pick:        p.Pick,
		Terminators: []*pnotify.Notifier{stop},
	})

	completed := false
	src.OnComplete(func() { completed = true })
	src.Start()

	require.True(t, completed)
	v.Advance(5 * period)
	require.Zero(t, p.calls)
}

func TestSource_unsubscribe(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker

	src := pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{
		Period: period,
		Pick:   p.Pick,
	})

	a := &recorder{v: v}
	b := &recorder{v: v}
	unsubA := src.Subscribe(a)
	src.Subscribe(b)
	src.Start()

	v.Advance(3 * period)
	unsubA()
	v.Advance(2 * period)

	require.Len(t, a.ticks, 2)
	require.Len(t, b.ticks, 4)
}

func TestNewSource_panicsOnBadConfig(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	var p countingPicker

	require.Panics(t, func() {
		pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{Pick: p.Pick})
	})
	require.Panics(t, func() {
		pstream.NewSource(ptest.NewLogger(t), v, pstream.SourceConfig{Period: period})
	})
}
