package systems

import (
	"math/rand"

	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

// GrowthChoice is the option a species takes during the growth phase.
type GrowthChoice uint8

const (
	ChoiceNone GrowthChoice = iota
	ChoiceMutate
	ChoicePopulation
	ChoiceBody
)

// String returns the choice name.
func (c GrowthChoice) String() string {
	switch c {
	case ChoiceMutate:
		return "mutate"
	case ChoicePopulation:
		return "population"
	case ChoiceBody:
		return "body"
	default:
		return "none"
	}
}

// GrowthSystem runs the start-of-turn growth and fertility phases.
type GrowthSystem struct {
	rng           *rand.Rand
	catalog       traits.Catalog
	populationMax int
	bodySizeMax   int

	// avoidRepeat keeps each species from taking the same option twice in a row.
	avoidRepeat bool
	last        map[uint32]GrowthChoice

	// chooser replaces the random draw when set
	chooser func(exclude GrowthChoice) GrowthChoice

	collector *telemetry.Collector
}

// NewGrowthSystem creates a growth system drawing from rng.
func NewGrowthSystem(rng *rand.Rand, catalog traits.Catalog, populationMax, bodySizeMax int, avoidRepeat bool) *GrowthSystem {
	return &GrowthSystem{
		rng:           rng,
		catalog:       catalog,
		populationMax: populationMax,
		bodySizeMax:   bodySizeMax,
		avoidRepeat:   avoidRepeat,
		last:          make(map[uint32]GrowthChoice),
	}
}

// SetCollector sets the telemetry collector.
func (g *GrowthSystem) SetCollector(c *telemetry.Collector) {
	g.collector = c
}

// SetChooser overrides the random growth draw, for scripted scenarios.
// Pass nil to restore uniform draws.
func (g *GrowthSystem) SetChooser(fn func(exclude GrowthChoice) GrowthChoice) {
	g.chooser = fn
}

// Choose draws a growth option uniformly, never returning exclude.
// Pass ChoiceNone to allow every option.
func (g *GrowthSystem) Choose(exclude GrowthChoice) GrowthChoice {
	if g.chooser != nil {
		return g.chooser(exclude)
	}
	for {
		choice := GrowthChoice(g.rng.Intn(3) + 1)
		if choice != exclude {
			return choice
		}
	}
}

// Update applies one growth option to every living species. Iterates a
// snapshot of the turn order, so species spawned by mutation wait until
// next turn to grow.
func (g *GrowthSystem) Update(reg Registry) {
	for _, id := range reg.Order() {
		s := reg.Get(id)
		if s == nil || s.Dead {
			continue
		}

		exclude := ChoiceNone
		if g.avoidRepeat {
			exclude = g.last[id]
		}
		choice := g.Choose(exclude)
		g.last[id] = choice

		switch choice {
		case ChoiceMutate:
			g.Mutate(reg, id)
		case ChoicePopulation:
			if s.Population < g.populationMax {
				s.GrowPopulation(g.populationMax)
				g.collector.RecordPopulationGrow()
			}
		case ChoiceBody:
			if s.BodySize < g.bodySizeMax {
				s.GrowBodySize(g.bodySizeMax)
				g.collector.RecordBodyGrow()
			}
		}
	}
}

// Mutate branches a new species off parentID. The child carries the parent's
// traits with one novel trait added or swapped in. If another species already
// carries that exact set, or no novel trait is left in the catalog, the child
// is traitless instead. Returns the child's ID.
func (g *GrowthSystem) Mutate(reg Registry, parentID uint32) uint32 {
	parent := reg.Get(parentID)
	next, ok := parent.MutatedTraits(g.rng, g.catalog)

	fallback := !ok
	if ok && g.lineageExists(reg, next) {
		fallback = true
	}
	if fallback {
		next = traits.Slots{}
	}

	// parent is invalid after Spawn
	childID := reg.Spawn(parentID, next)
	g.collector.RecordSpeciation(childID, parentID, reg.Turn(), fallback)
	return childID
}

// lineageExists reports whether any registered species carries exactly slots.
func (g *GrowthSystem) lineageExists(reg Registry, slots traits.Slots) bool {
	for _, id := range reg.Order() {
		if s := reg.Get(id); s != nil && s.Traits.SameSet(slots) {
			return true
		}
	}
	return false
}

// Forget drops per-species growth memory for a removed species.
func (g *GrowthSystem) Forget(id uint32) {
	delete(g.last, id)
}

// Fertility grows every fertile species below max by one population, as long
// as the watering hole is not empty.
func (g *GrowthSystem) Fertility(reg Registry) {
	if reg.Food() == 0 {
		return
	}
	for _, id := range reg.Order() {
		s := reg.Get(id)
		if s == nil || s.Dead {
			continue
		}
		if s.Has(traits.Fertile) && s.Population < g.populationMax {
			s.GrowPopulation(g.populationMax)
			g.collector.RecordFertileBirth()
		}
	}
}
