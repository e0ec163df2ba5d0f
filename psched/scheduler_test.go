package psched_test

import (
	"testing"
	"time"

	"github.com/gordian-engine/pantry/internal/ptest"
	"github.com/gordian-engine/pantry/psched"
	"github.com/stretchr/testify/require"
)

func TestQueue_AfterFunc_deliversOnReady(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	defer close(done)

	q := psched.NewQueue(done)

	ran := false
	q.AfterFunc(time.Millisecond, func() { ran = true })

	fn := ptest.ReceiveSoon(t, q.Ready())
	fn()
	require.True(t, ran)
}

func TestQueue_Stop_afterElapsedButBeforeRun(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	defer close(done)

	q := psched.NewQueue(done)

	ran := false
	tm := q.AfterFunc(time.Millisecond, func() { ran = true })

	// The timer has elapsed and is blocked handing its callback over.
	fn := ptest.ReceiveSoon(t, q.Ready())

	require.True(t, tm.Stop())
	fn()
	require.False(t, ran)
	require.False(t, tm.Stop())
}

func TestQueue_Stop_beforeElapsed(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	defer close(done)

	q := psched.NewQueue(done)

	tm := q.AfterFunc(time.Hour, func() {})
	require.True(t, tm.Stop())
	ptest.NotSending(t, q.Ready())
}
