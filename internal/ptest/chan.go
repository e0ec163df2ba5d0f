package ptest

import (
	"testing"
	"time"
)

// ScheduleTimeout is how long the Soon helpers wait
// before failing the test.
const ScheduleTimeout = 500 * time.Millisecond

// ReceiveSoon receives from ch, failing the test
// if no value arrives within [ScheduleTimeout].
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(ScheduleTimeout):
		t.Fatalf("did not receive value within %s", ScheduleTimeout)
	}

	panic("unreachable")
}

// SendSoon sends v on ch, failing the test
// if the send does not complete within [ScheduleTimeout].
func SendSoon[T any](t *testing.T, ch chan<- T, v T) {
	t.Helper()

	select {
	case ch <- v:
	case <-time.After(ScheduleTimeout):
		t.Fatalf("could not send value within %s", ScheduleTimeout)
	}
}

// IsSending fails the test if ch is not immediately readable.
// It is intended for closed signal channels.
func IsSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
	default:
		t.Fatal("channel was not ready to receive")
	}
}

// NotSending fails the test if ch is immediately readable.
func NotSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel was unexpectedly ready to receive")
	default:
	}
}
