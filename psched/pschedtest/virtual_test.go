package pschedtest_test

import (
	"testing"
	"time"

	"github.com/gordian-engine/pantry/psched/pschedtest"
	"github.com/stretchr/testify/require"
)

func TestVirtual_Advance_runsInOrder(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()

	var got []string
	v.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })
	v.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	v.AfterFunc(20*time.Millisecond, func() { got = append(got, "c") })
	v.AfterFunc(30*time.Millisecond, func() { got = append(got, "d") })

	v.Advance(20 * time.Millisecond)
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Equal(t, 20*time.Millisecond, v.Elapsed())
	require.Equal(t, 1, v.Pending())

	v.Advance(time.Hour)
	require.Equal(t, []string{"a", "b", "c", "d"}, got)
	require.Zero(t, v.Pending())
}

func TestVirtual_Advance_runsNestedTimersInWindow(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()

	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, v.Elapsed())
		v.AfterFunc(10*time.Millisecond, tick)
	}
	v.AfterFunc(10*time.Millisecond, tick)

	v.Advance(35 * time.Millisecond)
	require.Equal(t, []time.Duration{
		10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond,
	}, at)
}

func TestVirtual_Stop(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()

	ran := false
	tm := v.AfterFunc(time.Second, func() { ran = true })
	other := v.AfterFunc(2*time.Second, func() {})

	require.True(t, tm.Stop())
	require.False(t, tm.Stop())

	v.Advance(3 * time.Second)
	require.False(t, ran)
	require.False(t, other.Stop())
}

func TestVirtual_AdvanceTo_panicsBackwards(t *testing.T) {
	t.Parallel()

	v := pschedtest.NewVirtual()
	v.Advance(time.Second)

	require.Panics(t, func() {
		v.AdvanceToElapsed(0)
	})
}
