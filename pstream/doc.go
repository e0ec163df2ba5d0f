// Package pstream contains the multicast [Source]
// and the gated, terminable [Consumer] that reads from it.
//
// A Source generates one [Tick] per period
// and delivers it, one period later, to every subscribed [Observer].
// A Consumer is an Observer that turns delivered ticks into placed items.
// Both are stopped by one-shot [pnotify.Notifier] terminators,
// and a Consumer may additionally hold off until a gate Notifier fires.
//
// Everything in this package runs on the single logical thread
// of a [psched.Scheduler].
package pstream

