package pitem

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Picker chooses the kind of the next generated item.
type Picker func() Kind

// ValidateKinds reports an error if kinds is empty
// or contains an empty or duplicate kind.
func ValidateKinds(kinds []Kind) error {
	if len(kinds) == 0 {
		return ErrNoKinds
	}

	seen := make(map[Kind]struct{}, len(kinds))
	for i, k := range kinds {
		if k == "" {
			return fmt.Errorf("kind at index %d is empty", i)
		}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("kind %q is repeated", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// RandomPicker returns a Picker choosing uniformly from kinds.
// The kinds slice is copied.
func RandomPicker(kinds []Kind, r *rand.Rand) (Picker, error) {
	if err := ValidateKinds(kinds); err != nil {
		return nil, err
	}

	ks := slices.Clone(kinds)
	return func() Kind {
		return ks[r.IntN(len(ks))]
	}, nil
}

// CyclePicker returns a Picker that yields kinds in order, repeating.
func CyclePicker(kinds []Kind) (Picker, error) {
	if err := ValidateKinds(kinds); err != nil {
		return nil, err
	}

	ks := slices.Clone(kinds)
	i := 0
	return func() Kind {
		k := ks[i]
		i = (i + 1) % len(ks)
		return k
	}, nil
}
