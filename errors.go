package pantry

import "errors"

// InvalidConfigError is returned from [NewCoordinator] and [NewHost]
// for each unusable setting in a [Config].
// Multiple problems are reported together via [errors.Join].
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e InvalidConfigError) Error() string {
	return "invalid Config." + e.Field + ": " + e.Reason
}

// ErrHostStopped is returned from [*Host] methods
// once the host's main loop has exited.
var ErrHostStopped = errors.New("host stopped")
