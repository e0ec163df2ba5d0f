package pantry

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/gordian-engine/pantry/internal/ptrace"
	"github.com/gordian-engine/pantry/pitem"
	"github.com/gordian-engine/pantry/pmetrics"
	"github.com/gordian-engine/pantry/ppubsub"
)

// Config is the configuration for a [Coordinator].
type Config struct {
	// How often the factory produces an item.
	// Items land in a pantry one further period after production.
	Period time.Duration

	// The closed set of kinds the factory may produce.
	// Must not be empty.
	Kinds []pitem.Kind

	// How pantries place the items they receive.
	Placement pitem.Placement

	// Chooses the next kind.
	// If nil, kinds are chosen uniformly at random using Rand.
	Pick pitem.Picker

	// Randomness for kind choice and item placement.
	// If nil, a randomly seeded source is used.
	Rand *rand.Rand

	// Optional.
	Metrics *pmetrics.Metrics

	// Optional; a nil provider disables tracing.
	TracerProvider ptrace.TracerProvider

	// If set, the coordinator publishes every [Event] here.
	// The caller should hold on to the head of the stream
	// to read events from the start.
	Events *ppubsub.Stream[Event]
}

// validate returns every problem with c, joined.
func (c Config) validate() error {
	var errs error

	if c.Period <= 0 {
		errs = errors.Join(errs, InvalidConfigError{
			Field:  "Period",
			Reason: "must be positive (got " + c.Period.String() + ")",
		})
	}

	if err := pitem.ValidateKinds(c.Kinds); err != nil {
		errs = errors.Join(errs, InvalidConfigError{
			Field:  "Kinds",
			Reason: err.Error(),
		})
	}

	if c.Placement == nil {
		errs = errors.Join(errs, InvalidConfigError{
			Field:  "Placement",
			Reason: "must not be nil",
		})
	} else if err := c.Placement.Validate(); err != nil {
		errs = errors.Join(errs, InvalidConfigError{
			Field:  "Placement",
			Reason: err.Error(),
		})
	}

	return errs
}

// DefaultConfig returns the configuration of the original food factory:
// a one second period, the default kinds,
// and uniform placement over percentage offsets.
func DefaultConfig() Config {
	return Config{
		Period:    time.Second,
		Kinds:     pitem.DefaultKinds,
		Placement: pitem.Uniform{Max: 100},
	}
}
