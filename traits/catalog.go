package traits

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrEmptyCatalog is returned when a catalog holds no traits.
var ErrEmptyCatalog = errors.New("trait catalog is empty")

// Catalog is the ordered set of traits mutation can draw from.
type Catalog struct {
	traits []Trait
}

// NewCatalog builds a catalog from trait names, rejecting unknown and repeated names.
func NewCatalog(names []string) (Catalog, error) {
	if len(names) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}
	c := Catalog{traits: make([]Trait, 0, len(names))}
	seen := make(map[Trait]bool, len(names))
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			return Catalog{}, err
		}
		if seen[t] {
			return Catalog{}, fmt.Errorf("trait %q listed twice", n)
		}
		seen[t] = true
		c.traits = append(c.traits, t)
	}
	return c, nil
}

// DefaultCatalog returns the full fourteen-trait catalog.
func DefaultCatalog() Catalog {
	return Catalog{traits: All()}
}

// Len returns the number of traits in the catalog.
func (c Catalog) Len() int {
	return len(c.traits)
}

// Traits returns a copy of the catalog contents.
func (c Catalog) Traits() []Trait {
	out := make([]Trait, len(c.traits))
	copy(out, c.traits)
	return out
}

// Contains checks whether the catalog holds t.
func (c Catalog) Contains(t Trait) bool {
	for _, v := range c.traits {
		if v == t {
			return true
		}
	}
	return false
}

// PickNovel draws uniformly among catalog traits not already present in existing.
// Returns false when every catalog trait is already held.
func (c Catalog) PickNovel(rng *rand.Rand, existing Slots) (Trait, bool) {
	candidates := make([]Trait, 0, len(c.traits))
	for _, t := range c.traits {
		if !existing.Has(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return None, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
