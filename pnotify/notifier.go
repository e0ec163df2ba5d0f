// Package pnotify contains the one-shot [Notifier] signal.
//
// A Notifier carries no payload.
// It only reports that something happened, exactly once,
// to every observer registered before that moment.
// Streams in [github.com/gordian-engine/pantry/pstream]
// use Notifiers as gates and terminators.
//
// Notifiers are not safe for concurrent use.
// All calls are expected to happen on a single event loop goroutine;
// the [*Notifier.Done] channel is the only way
// to observe a Notifier from another goroutine.
package pnotify

// Notifier is a one-shot, multi-observer signal.
// It starts pending, and after the first call to [*Notifier.Fire]
// it is permanently closed.
type Notifier struct {
	name string

	fired bool
	done  chan struct{}

	// Observers in registration order.
	// Entries are set to nil when stopped,
	// so that stopping does not reorder the remaining observers.
	observers []*observer
}

type observer struct {
	fn func()
}

// New returns a pending Notifier.
// The name is only used for logging and metrics.
func New(name string) *Notifier {
	return &Notifier{
		name: name,
		done: make(chan struct{}),
	}
}

// Name returns the name given to [New].
func (n *Notifier) Name() string {
	return n.name
}

// Fired reports whether n has already fired.
func (n *Notifier) Fired() bool {
	return n.fired
}

// Done returns a channel that is closed when n fires.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// Fire closes n and synchronously invokes every registered observer,
// in registration order.
// Fire reports whether this call was the one that fired n;
// any later call is a no-op returning false.
//
// Observers registered while Fire is running are not invoked,
// because n is already closed by then.
func (n *Notifier) Fire() bool {
	if n.fired {
		return false
	}

	n.fired = true
	close(n.done)

	obs := n.observers
	n.observers = nil
	for _, o := range obs {
		if o.fn == nil {
			continue
		}
		fn := o.fn
		o.fn = nil
		fn()
	}

	return true
}

// OnFire registers fn to be called once when n fires.
// If n has already fired, fn is never called.
//
// The returned stop function deregisters fn.
// It is safe to call stop more than once, or after n fired.
func (n *Notifier) OnFire(fn func()) (stop func()) {
	if n.fired {
		return func() {}
	}

	o := &observer{fn: fn}
	n.observers = append(n.observers, o)

	return func() {
		o.fn = nil
	}
}

// Any returns a new Notifier that fires
// when the first of ns fires.
//
// If any of ns has already fired, the returned Notifier is already fired.
// If ns is empty, the returned Notifier never fires.
func Any(name string, ns ...*Notifier) *Notifier {
	merged := New(name)

	for _, n := range ns {
		if n.Fired() {
			merged.Fire()
			return merged
		}
	}

	stops := make([]func(), 0, len(ns))
	fire := func() {
		for _, s := range stops {
			s()
		}
		merged.Fire()
	}
	for _, n := range ns {
		stops = append(stops, n.OnFire(fire))
	}

	return merged
}
