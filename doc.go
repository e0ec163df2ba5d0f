// Package pantry coordinates a shared food factory
// with the two pantries that fill up from it.
//
// A single multicast source (the factory) generates one item kind per period.
// The left pantry takes everything until the user switches pantries;
// the right pantry ignores everything until that switch,
// then takes everything until teardown.
// The user may also stop the factory early.
// Each of those user actions is a one-shot signal;
// see package pnotify.
//
// The [Coordinator] is the single-threaded core,
// driven by a [psched.Scheduler].
// The [Host] wraps a Coordinator in its own goroutine
// so that it can be driven safely from anywhere,
// and tears it down when its owning context is cancelled.
package pantry
