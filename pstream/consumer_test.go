package pstream_test

import (
	"testing"

	"github.com/gordian-engine/pantry/internal/ptest"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pnotify"
	"github.com/gordian-engine/pantry/psched/pschedtest"
	"github.com/gordian-engine/pantry/pstream"
	"github.com/stretchr/testify/require"
)

type consumerFixture struct {
	V      *pschedtest.Virtual
	Picker *countingPicker

	Gate     *pnotify.Notifier
	Teardown *pnotify.Notifier

	Source *pstream.Source
	Left   *pstream.Consumer
	Right  *pstream.Consumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()

	log := ptest.NewLogger(t)
	fx := &consumerFixture{
		V:      pschedtest.NewVirtual(),
		Picker: new(countingPicker),

		Gate:     pnotify.New("gate"),
		Teardown: pnotify.New("teardown"),
	}

	fx.Source = pstream.NewSource(log.With("stream", "source"), fx.V, pstream.SourceConfig{
		Period:      period,
		Pick:        fx.Picker.Pick,
		Terminators: []*pnotify.Notifier{fx.Teardown},
	})
	fx.Left = pstream.NewConsumer(log.With("stream", "left"), fx.Source, pstream.ConsumerConfig{
		Name:        "left",
		Terminators: []*pnotify.Notifier{fx.Gate, fx.Teardown},
		Placement:   pitem.Uniform{Max: 100},
		Rand:        ptest.RandForTest(t),
	})
	fx.Right = pstream.NewConsumer(log.With("stream", "right"), fx.Source, pstream.ConsumerConfig{
		Name:        "right",
		Gate:        fx.Gate,
		Terminators: []*pnotify.Notifier{fx.Teardown},
		Placement:   pitem.Polar{Radius: 10},
		Rand:        ptest.RandForTest(t),
	})

	return fx
}

func (fx *consumerFixture) Start() {
	fx.Source.Start()
	fx.Left.Start()
	fx.Right.Start()
}

func seqs(items []pitem.Item) []uint64 {
	out := make([]uint64, len(items))
	for i, it := range items {
		out[i] = it.Seq
	}
	return out
}

func TestConsumer_gateSplitsStream(t *testing.T) {
	t.Parallel()

	fx := newConsumerFixture(t)

	var leftDone, rightDone int
	fx.Left.OnComplete(func() { leftDone++ })
	fx.Right.OnComplete(func() { rightDone++ })

	fx.Start()
	require.True(t, fx.Right.Ignoring())
	require.False(t, fx.Left.Ignoring())

	// Ticks generated at 500, 1000, 1500...; delivered 500ms later.
	fx.V.AdvanceToElapsed(1200 * ms)
	require.Equal(t, []uint64{0}, seqs(fx.Left.Items()))
	require.Empty(t, fx.Right.Items())
	require.Equal(t, uint64(1), fx.Right.Discarded())

	fx.Gate.Fire()
	require.True(t, fx.Left.Completed())
	require.Equal(t, 1, leftDone)
	require.False(t, fx.Right.Ignoring())

	fx.V.AdvanceToElapsed(3000 * ms)

	// Left stopped growing at the gate.
	require.Equal(t, []uint64{0}, seqs(fx.Left.Items()))

	// Tick 1 was generated at 1000, before the gate, so it is discarded
	// even though it was delivered at 1500, after the gate.
	require.Equal(t, []uint64{2, 3, 4}, seqs(fx.Right.Items()))
	require.Equal(t, uint64(2), fx.Right.Discarded())

	for _, it := range fx.Right.Items() {
		require.False(t, it.GeneratedAt.Before(pschedtest.Epoch.Add(1200*ms)))
		require.True(t, pitem.Polar{Radius: 10}.Contains(it.X, it.Y))
	}

	acc := fx.Right.Accepted()
	require.Equal(t, uint(3), acc.Count())
	require.False(t, acc.Test(1))
	require.True(t, acc.Test(2))

	fx.Teardown.Fire()
	require.True(t, fx.Right.Completed())
	require.True(t, fx.Right.Ignoring())
	require.Equal(t, 1, rightDone)
	require.Equal(t, 1, leftDone)

	fx.V.AdvanceToElapsed(5000 * ms)
	require.Len(t, fx.Right.Items(), 3)
}

func TestConsumer_sourceCompletionDoesNotCompleteConsumer(t *testing.T) {
	t.Parallel()

	fx := newConsumerFixture(t)

	// A source with its own stop signal, shared by a fresh consumer.
	stop := pnotify.New("stop")
	src := pstream.NewSource(ptest.NewLogger(t), fx.V, pstream.SourceConfig{
		Period:      period,
		Pick:        fx.Picker.Pick,
		Terminators: []*pnotify.Notifier{stop, fx.Teardown},
	})
	c := pstream.NewConsumer(ptest.NewLogger(t), src, pstream.ConsumerConfig{
		Name:        "c",
		Terminators: []*pnotify.Notifier{fx.Teardown},
		Placement:   pitem.Uniform{Max: 1},
		Rand:        ptest.RandForTest(t),
	})
	src.Start()
	c.Start()

	fx.V.AdvanceToElapsed(1000 * ms)
	stop.Fire()
	require.True(t, src.Closed())
	require.False(t, c.Completed())

	fx.V.AdvanceToElapsed(5000 * ms)
	require.Len(t, c.Items(), 1)

	fx.Teardown.Fire()
	require.True(t, c.Completed())
}

func TestConsumer_itemHooks(t *testing.T) {
	t.Parallel()

	fx := newConsumerFixture(t)

	var hooked []pitem.Item
	fx.Left.OnItem(func(it pitem.Item) { hooked = append(hooked, it) })

	fx.Start()
	fx.V.AdvanceToElapsed(2000 * ms)

	require.Equal(t, fx.Left.Items(), hooked)
	require.Equal(t, 3, fx.Left.Len())
}

func TestConsumer_signalsFiredBeforeStart(t *testing.T) {
	t.Parallel()

	fx := newConsumerFixture(t)

	// Gate fired before any consumer started:
	// left is terminated immediately and right is open from the start.
	fx.Gate.Fire()

	leftDone := false
	fx.Left.OnComplete(func() { leftDone = true })

	fx.Start()
	require.True(t, leftDone)
	require.False(t, fx.Right.Ignoring())

	fx.V.AdvanceToElapsed(1500 * ms)
	require.Empty(t, fx.Left.Items())
	require.Equal(t, []uint64{0, 1}, seqs(fx.Right.Items()))
}

func TestConsumer_eachOwnsItsItems(t *testing.T) {
	t.Parallel()

	fx := newConsumerFixture(t)

	// A second ungated consumer on the same source sees the same kinds
	// but creates its own items.
	other := pstream.NewConsumer(ptest.NewLogger(t), fx.Source, pstream.ConsumerConfig{
		Name:        "other",
		Terminators: []*pnotify.Notifier{fx.Teardown},
		Placement:   pitem.Uniform{Max: 100},
		Rand:        ptest.RandForTest(t),
	})

	fx.Start()
	other.Start()

	fx.V.AdvanceToElapsed(1000 * ms)
	require.Equal(t, 2, fx.Picker.calls)

	left := fx.Left.Items()
	mine := other.Items()
	require.Len(t, mine, 1)
	require.Equal(t, left[0].Kind, mine[0].Kind)
	require.Equal(t, left[0].Seq, mine[0].Seq)

	// Mutating the returned copy does not affect the collection.
	mine[0].Kind = "mutated"
	require.NotEqual(t, pitem.Kind("mutated"), other.Items()[0].Kind)
}
