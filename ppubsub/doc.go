// Package ppubsub contains types for in-application
// publish-subscribe patterns.
//
// The [Stream] type specifically simplifies the pattern of
// a single publisher with many concurrent subscribers,
// who all need to observe the same sequence of values.
// The pantry coordinator publishes its lifecycle events on a Stream
// so that hosts and renderers on other goroutines can follow along.
package ppubsub
