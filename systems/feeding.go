package systems

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/wateringhole/components"
	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

// ErrFeedingDiverged is returned when the feeding loop exceeds its action bound.
var ErrFeedingDiverged = errors.New("feeding loop exceeded its action bound")

// Replenish adds a uniform draw from [lower, upper) to the watering hole,
// flooring the pool at zero. Returns the applied delta before flooring.
func Replenish(reg Registry, rng *rand.Rand, lower, upper int) int {
	delta := lower + rng.Intn(upper-lower)
	reg.SetFood(max(0, reg.Food()+delta))
	return delta
}

// FeedingSystem resolves long-neck priority, herbivore drinking, carnivore
// hunting and scavenging for one turn.
type FeedingSystem struct {
	populationMax int
	collector     *telemetry.Collector
}

// NewFeedingSystem creates a new feeding system.
func NewFeedingSystem(populationMax int) *FeedingSystem {
	return &FeedingSystem{populationMax: populationMax}
}

// SetCollector sets the telemetry collector.
func (f *FeedingSystem) SetCollector(c *telemetry.Collector) {
	f.collector = c
}

// LongNeck gives every long-necked species one free food, then rechecks
// satisfaction for everyone since growth may have changed populations.
func (f *FeedingSystem) LongNeck(reg Registry) {
	for _, id := range reg.Order() {
		s := reg.Get(id)
		if s.Has(traits.LongNeck) {
			s.PhaseFood++
			f.collector.RecordLongNeckFeed()
		}
		s.ComputeSatisfaction()
	}
}

// ActionBound is the most actions the feeding loop may take: every carnivore
// action costs someone a population and every drink costs the pool a unit.
func ActionBound(speciesCount, populationMax, food int) int {
	return 2 * speciesCount * (populationMax + food)
}

// settled reports whether a species takes no further feeding action.
func settled(s *components.Species, food int) bool {
	return s.Satisfied || s.Dead || food == 0
}

// Update scans the turn order repeatedly, letting each unsettled species act,
// until a full scan produces no action. Returns the number of scans.
func (f *FeedingSystem) Update(reg Registry) (int, error) {
	// Nothing spawns or despawns while feeding, so one snapshot serves every scan.
	order := reg.Order()
	bound := ActionBound(len(order), f.populationMax, reg.Food())

	total, rounds := 0, 0
	for {
		actions := 0
		for _, id := range order {
			s := reg.Get(id)
			if settled(s, reg.Food()) {
				continue
			}

			actions++
			total++
			if total > bound {
				return rounds, fmt.Errorf("%w: %d actions over %d species", ErrFeedingDiverged, total, len(order))
			}

			if s.IsCarnivore() {
				f.hunt(reg, order, s)
			} else {
				f.drink(reg, s)
			}
		}
		rounds++
		f.collector.RecordFeedingRound(actions)

		if actions == 0 {
			return rounds, nil
		}
	}
}

// drink takes one food from the pool. Foragers still hungry take a second
// unit if any is left.
func (f *FeedingSystem) drink(reg Registry, s *components.Species) {
	f.bite(reg, s, false)
	if s.Has(traits.Foraging) && reg.Food() > 0 && !s.Satisfied {
		f.bite(reg, s, true)
	}
}

func (f *FeedingSystem) bite(reg Registry, s *components.Species, forage bool) {
	reg.SetFood(reg.Food() - 1)
	s.Feed(1)
	f.collector.RecordBite(s.ID, forage)
}

// SelectTarget returns the attackable species holding the most phase food.
// Ties go to the earliest in turn order. The attacker never targets itself.
func SelectTarget(reg Registry, order []uint32, attacker *components.Species) *components.Species {
	var best *components.Species
	for _, id := range order {
		t := reg.Get(id)
		if t == nil || t.ID == attacker.ID || !attacker.CanAttack(t) {
			continue
		}
		if best == nil || t.PhaseFood > best.PhaseFood {
			best = t
		}
	}
	return best
}

// hunt resolves one carnivore action. With no valid target the carnivore
// loses a population and eats from the remains. A hit costs the target a
// population; horned targets also cost the attacker one. Scavengers feed
// after every hunt regardless of outcome.
func (f *FeedingSystem) hunt(reg Registry, order []uint32, s *components.Species) {
	target := SelectTarget(reg, order, s)

	if target == nil {
		s.LosePopulation()
		s.CheckDeath()
		s.ComputeSatisfaction()
		if !s.Satisfied {
			s.Feed(1)
		}
		f.collector.RecordStarvation(s.ID)
	} else {
		target.LosePopulation()
		killed := target.CheckDeath()
		target.ComputeSatisfaction()
		f.collector.RecordAttack(s.ID, target.ID, killed)

		if target.Has(traits.Horns) {
			s.LosePopulation()
			// A carnivore gored to zero must not linger as a live target.
			s.CheckDeath()
			s.ComputeSatisfaction()
			if !s.Satisfied {
				s.Feed(1)
			}
			f.collector.RecordRetaliation()
		}
	}

	f.scavenge(reg, order)
	s.ComputeSatisfaction()
}

// scavenge feeds every hungry scavenger once. Single pass, no cascade.
func (f *FeedingSystem) scavenge(reg Registry, order []uint32) {
	for _, id := range order {
		s := reg.Get(id)
		if s.Has(traits.Scavenging) && !s.Satisfied {
			s.Feed(1)
			f.collector.RecordScavenge(s.ID)
		}
	}
}

// Score converts phase food into population for every tracked species,
// including those that died mid-turn, and removes the dead. Returns the IDs removed.
func Score(reg Registry, populationMax int, collector *telemetry.Collector) []uint32 {
	var removed []uint32
	for _, id := range reg.Order() {
		s := reg.Get(id)
		s.Score(populationMax)
		if s.Dead {
			reg.Remove(id)
			collector.RecordExtinction(id, reg.Turn())
			removed = append(removed, id)
		}
	}
	return removed
}
