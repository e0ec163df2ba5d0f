package ppubsub

import "context"

// Stream is a linked list of event-driven values.
// The list has a single writer and many readers.
// Readers can each consume the list at their own pace.
//
// If readers do not actively consume the list,
// the node they observe will never be garbage collected,
// which is a memory leak.
type Stream[T any] struct {
	Ready chan struct{}
	Next  *Stream[T]
	Val   T
}

// NewStream returns an initialized pubsub stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		Ready: make(chan struct{}),
	}
}

// Publish assigns s's value and initializes s.Next.
// Then s.Ready is closed, notifying any observers that
// s.Val can now be safely read.
//
// If Publish is called twice for the same s, Publish panics.
func (s *Stream[T]) Publish(t T) {
	s.Val = t
	s.Next = NewStream[T]()
	close(s.Ready)
}

// Collect reads values from s until the context is cancelled,
// calling fn for every value in publish order.
// It returns the node it stopped on,
// so that the caller may resume reading later.
//
// If fn returns false, Collect stops after that value.
func Collect[T any](ctx context.Context, s *Stream[T], fn func(T) bool) *Stream[T] {
	for {
		select {
		case <-ctx.Done():
			return s
		case <-s.Ready:
			v := s.Val
			s = s.Next
			if !fn(v) {
				return s
			}
		}
	}
}

// Drain returns every value already published from s onwards,
// without blocking, and the first unpublished node.
func Drain[T any](s *Stream[T]) ([]T, *Stream[T]) {
	var out []T
	for {
		select {
		case <-s.Ready:
			out = append(out, s.Val)
			s = s.Next
		default:
			return out, s
		}
	}
}
