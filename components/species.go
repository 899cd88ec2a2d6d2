// Package components defines the ECS components stored in the ecosystem world.
package components

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/wateringhole/traits"
)

// NoAttack is the attack value returned when a target cannot be attacked at all.
const NoAttack = -1

// Species is one lineage competing at the watering hole.
type Species struct {
	ID       uint32 // Stable identifier, never reused
	ParentID uint32 // Species this one branched from (0 for founders)
	Age      int    // Turn at which the species was created

	Traits     traits.Slots
	Population int
	BodySize   int

	PhaseFood int // Food gathered this turn, before scoring
	TotalFood int // Lifetime food

	Satisfied bool
	Dead      bool
}

// NewSpecies returns a species with population and body size 1.
func NewSpecies(id, parentID uint32, turn int, slots traits.Slots) Species {
	return Species{
		ID:         id,
		ParentID:   parentID,
		Age:        turn,
		Traits:     slots,
		Population: 1,
		BodySize:   1,
	}
}

// Has checks if the species carries a trait.
func (s *Species) Has(t traits.Trait) bool {
	return s.Traits.Has(t)
}

// IsCarnivore reports whether the species hunts instead of drinking.
func (s *Species) IsCarnivore() bool {
	return s.Has(traits.Carnivore)
}

// ComputeSatisfaction updates Satisfied from PhaseFood, Population and traits.
// A species above its population without fat tissue keeps its previous flag.
func (s *Species) ComputeSatisfaction() {
	switch {
	case s.Has(traits.FatTissue) && s.PhaseFood == s.Population+s.BodySize:
		s.Satisfied = true
	case s.PhaseFood == s.Population:
		s.Satisfied = true
	case s.PhaseFood < s.Population:
		s.Satisfied = false
	}
}

// Feed adds n to PhaseFood and rechecks satisfaction.
func (s *Species) Feed(n int) {
	s.PhaseFood += n
	s.ComputeSatisfaction()
}

// AttackValue returns the attack strength against target, or NoAttack when
// target's defenses make an attack impossible.
func (s *Species) AttackValue(target *Species) int {
	attack := s.BodySize
	if s.Has(traits.PackHunting) {
		attack += s.Population
	}
	if target.Has(traits.WarningCall) && !s.Has(traits.Ambush) {
		return NoAttack
	}
	if target.Has(traits.Climbing) && !s.Has(traits.Climbing) {
		return NoAttack
	}
	if target.Has(traits.Burrowing) && target.Satisfied {
		return NoAttack
	}
	return attack
}

// DefenseValue returns the defense strength.
func (s *Species) DefenseValue() int {
	defense := s.BodySize
	if s.Has(traits.DefensiveHerding) {
		defense += s.Population
	}
	if s.Has(traits.HardShell) {
		defense += 4
	}
	return defense
}

// CanAttack reports whether s can successfully attack a living target.
func (s *Species) CanAttack(target *Species) bool {
	return !target.Dead && s.AttackValue(target) > target.DefenseValue()
}

// CheckDeath marks the species dead once its population is gone. Dead is sticky.
func (s *Species) CheckDeath() bool {
	if s.Population <= 0 {
		s.Dead = true
	}
	return s.Dead
}

// LosePopulation removes one population.
func (s *Species) LosePopulation() {
	s.Population--
}

// GrowPopulation adds one population unless already at max.
func (s *Species) GrowPopulation(max int) bool {
	if s.Population >= max {
		return false
	}
	s.Population++
	return true
}

// GrowBodySize adds one body size unless already at max.
func (s *Species) GrowBodySize(max int) bool {
	if s.BodySize >= max {
		return false
	}
	s.BodySize++
	return true
}

// MutatedTraits returns the trait slots a descendant would carry: a novel
// catalog trait fills the first empty slot, or replaces a random slot when
// all slots are full. Returns false if the catalog has no novel trait left.
func (s *Species) MutatedTraits(rng *rand.Rand, catalog traits.Catalog) (traits.Slots, bool) {
	next := s.Traits
	t, ok := catalog.PickNovel(rng, s.Traits)
	if !ok {
		return next, false
	}
	if s.Traits.Full() {
		next[rng.Intn(traits.SlotCount)] = t
	} else {
		next[s.Traits.FirstEmpty()] = t
	}
	return next, true
}

// Score converts phase food into population at the end of a turn and
// carries the surplus over.
func (s *Species) Score(populationMax int) {
	s.Population = min(populationMax, s.PhaseFood)
	s.CheckDeath()
	s.TotalFood += s.PhaseFood
	s.PhaseFood -= s.Population
	s.ComputeSatisfaction()
}

// Validate checks the bound and trait invariants.
func (s *Species) Validate(populationMax, bodySizeMax int) error {
	if s.Population < 0 || s.Population > populationMax {
		return fmt.Errorf("species %d population %d outside [0, %d]", s.ID, s.Population, populationMax)
	}
	if s.BodySize < 1 || s.BodySize > bodySizeMax {
		return fmt.Errorf("species %d body size %d outside [1, %d]", s.ID, s.BodySize, bodySizeMax)
	}
	if t, dup := s.Traits.Duplicate(); dup {
		return fmt.Errorf("species %d carries %s twice", s.ID, t)
	}
	return nil
}
