// Package pitem contains the domain values produced by the food factory:
// the [Kind] of a product, and the placed [Item]
// that lands in a pantry.
package pitem

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Kind is the symbolic tag of an item.
type Kind string

// DefaultKinds is the set of kinds the factory produces
// when no other set is configured.
var DefaultKinds = []Kind{"🍪", "🍿", "🧁", "🥓", "🥞", "🍗"}

// Item is a single product, placed once at construction.
// Items are never mutated after [NewItem] returns.
type Item struct {
	Kind Kind

	// Offsets computed by the [Placement] in use.
	X, Y float64

	// The source tick this item was derived from.
	Seq         uint64
	GeneratedAt time.Time
}

// NewItem returns an Item of the given kind,
// placed by p using randomness from r.
func NewItem(kind Kind, p Placement, r *rand.Rand, seq uint64, generatedAt time.Time) Item {
	x, y := p.Place(r)
	return Item{
		Kind: kind,
		X:    x,
		Y:    y,

		Seq:         seq,
		GeneratedAt: generatedAt,
	}
}

// Placement computes the two spatial coordinates of a new item.
type Placement interface {
	// Place returns a new pair of coordinates drawn from r.
	Place(r *rand.Rand) (x, y float64)

	// Contains reports whether (x, y) is within the placement's bounds.
	Contains(x, y float64) bool

	// Validate reports an error if the placement parameters are unusable.
	Validate() error
}

// Uniform places items independently uniform in [0, Max) on both axes.
type Uniform struct {
	Max float64
}

func (u Uniform) Place(r *rand.Rand) (x, y float64) {
	return r.Float64() * u.Max, r.Float64() * u.Max
}

func (u Uniform) Contains(x, y float64) bool {
	return x >= 0 && x <= u.Max && y >= 0 && y <= u.Max
}

func (u Uniform) Validate() error {
	return validateBound("Max", u.Max)
}

func (u Uniform) String() string {
	return fmt.Sprintf("uniform(max=%g)", u.Max)
}

// Polar places items at a random angle in [0, 2π)
// and a random radius in [0, Radius],
// converted to Cartesian offsets from the origin.
type Polar struct {
	Radius float64
}

func (p Polar) Place(r *rand.Rand) (x, y float64) {
	theta := r.Float64() * 2 * math.Pi
	radius := r.Float64() * p.Radius
	return radius * math.Cos(theta), radius * math.Sin(theta)
}

func (p Polar) Contains(x, y float64) bool {
	// Allow for rounding in the trigonometric conversion.
	const epsilon = 1e-9
	return math.Hypot(x, y) <= p.Radius*(1+epsilon)
}

func (p Polar) Validate() error {
	return validateBound("Radius", p.Radius)
}

func (p Polar) String() string {
	return fmt.Sprintf("polar(radius=%g)", p.Radius)
}

func validateBound(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be finite (got %g)", name, v)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive (got %g)", name, v)
	}
	return nil
}

// ErrNoKinds is returned when a picker is requested for an empty kind set.
var ErrNoKinds = errors.New("kind set must not be empty")
