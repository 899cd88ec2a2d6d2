// Package game runs the watering hole: the species registry, the per-turn
// engine and the driver loop that feeds telemetry sinks.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/wateringhole/config"
	"github.com/pthm-cable/wateringhole/systems"
	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

// ErrInvariantViolation is returned by Step when the ecosystem reaches a state
// the rules forbid. It always indicates a bug.
var ErrInvariantViolation = errors.New("invariant violation")

// Ecosystem is the per-turn resolution engine.
type Ecosystem struct {
	cfg *config.Config
	rng *rand.Rand
	reg *Registry

	phases  *systems.PhaseRegistry
	growth  *systems.GrowthSystem
	feeding *systems.FeedingSystem

	collector *telemetry.Collector
	lineage   *telemetry.LineageTracker
	perf      *telemetry.PerfCollector
}

// NewEcosystem validates cfg and creates an ecosystem with the configured
// number of traitless founders. All randomness is drawn from rng.
func NewEcosystem(cfg *config.Config, rng *rand.Rand) (*Ecosystem, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eco := cfg.Ecosystem
	e := &Ecosystem{
		cfg:       cfg,
		rng:       rng,
		reg:       NewRegistry(eco.InitialFood, eco.SpawnIndex),
		phases:    systems.NewPhaseRegistry(),
		growth:    systems.NewGrowthSystem(rng, cfg.Derived.Catalog, eco.PopulationMax, eco.BodySizeMax, cfg.Growth.AvoidRepeat),
		feeding:   systems.NewFeedingSystem(eco.PopulationMax),
		collector: telemetry.NewCollector(),
	}
	e.growth.SetCollector(e.collector)
	e.feeding.SetCollector(e.collector)

	for i := 0; i < eco.InitialSpecies; i++ {
		e.SpawnFounder()
	}
	return e, nil
}

// SetLineageTracker routes per-species events to lt. Living species are
// registered immediately.
func (e *Ecosystem) SetLineageTracker(lt *telemetry.LineageTracker) {
	e.lineage = lt
	e.collector.SetLineageTracker(lt)
	for _, r := range e.reg.Records() {
		if lt.Get(r.ID) == nil {
			lt.Register(r.ID, r.ParentID, r.Age)
			lt.Observe(r)
		}
	}
}

// SetPerfCollector enables per-phase timing.
func (e *Ecosystem) SetPerfCollector(p *telemetry.PerfCollector) {
	e.perf = p
}

// Phases returns the phase registry used for perf tracking.
func (e *Ecosystem) Phases() *systems.PhaseRegistry {
	return e.phases
}

// SpawnFounder adds a traitless species with no parent. This is the driver's
// reseed hook; the engine never calls it on its own after genesis.
func (e *Ecosystem) SpawnFounder() uint32 {
	id := e.reg.Spawn(0, traits.Slots{})
	e.lineage.Register(id, 0, e.reg.Turn())
	slog.Debug("founder spawned", "species", id, "turn", e.reg.Turn())
	return id
}

// IsExtinct reports whether no species remain.
func (e *Ecosystem) IsExtinct() bool {
	return e.reg.Len() == 0
}

// Turn returns the number of turns resolved so far.
func (e *Ecosystem) Turn() int {
	return e.reg.Turn()
}

// Food returns the watering hole food pool.
func (e *Ecosystem) Food() int {
	return e.reg.Food()
}

// Species returns the observable state of every species in turn order.
func (e *Ecosystem) Species() []telemetry.SpeciesRecord {
	return e.reg.Records()
}

// Step resolves one full turn and returns the post-turn summary. An error
// wrapping ErrInvariantViolation leaves the ecosystem in an undefined state.
func (e *Ecosystem) Step() (telemetry.TurnSummary, error) {
	reg := e.reg
	eco := e.cfg.Ecosystem
	reg.advance()
	e.perf.StartTurn()

	e.perf.StartPhase(systems.PhaseGrowth)
	e.growth.Update(reg)
	if err := e.check(systems.PhaseGrowth); err != nil {
		return telemetry.TurnSummary{}, err
	}

	e.perf.StartPhase(systems.PhaseFertility)
	e.growth.Fertility(reg)
	if err := e.check(systems.PhaseFertility); err != nil {
		return telemetry.TurnSummary{}, err
	}

	e.perf.StartPhase(systems.PhaseFood)
	foodBefore := reg.Food()
	delta := systems.Replenish(reg, e.rng, eco.FoodAddRange[0], eco.FoodAddRange[1])

	e.perf.StartPhase(systems.PhaseLongNeck)
	e.feeding.LongNeck(reg)

	e.perf.StartPhase(systems.PhaseFeeding)
	if _, err := e.feeding.Update(reg); err != nil {
		return telemetry.TurnSummary{}, e.violation(systems.PhaseFeeding, err)
	}
	if err := e.check(systems.PhaseFeeding); err != nil {
		return telemetry.TurnSummary{}, err
	}
	foodAfter := reg.Food()

	e.perf.StartPhase(systems.PhaseScoring)
	removed := systems.Score(reg, eco.PopulationMax, e.collector)
	for _, id := range removed {
		e.growth.Forget(id)
		slog.Debug("species extinct", "species", id, "turn", reg.Turn())
	}
	if err := e.check(systems.PhaseScoring); err != nil {
		return telemetry.TurnSummary{}, err
	}
	if err := e.checkScored(); err != nil {
		return telemetry.TurnSummary{}, err
	}

	e.perf.StartPhase(systems.PhaseRotation)
	reg.Rotate()
	tally := reg.Tally()
	records := reg.Records()
	e.perf.EndTurn()

	for _, r := range records {
		e.lineage.Observe(r)
	}

	events := e.collector.Flush()
	if events.Speciations > 0 {
		slog.Debug("speciation", "turn", reg.Turn(), "count", events.Speciations, "duplicates", events.DuplicateBlocks)
	}

	return telemetry.TurnSummary{
		Turn:         reg.Turn(),
		FoodBefore:   foodBefore,
		FoodDelta:    delta,
		FoodAfter:    foodAfter,
		SpeciesCount: len(records),
		Species:      records,
		TraitTally:   tally,
		Events:       events,
		Extinct:      reg.Len() == 0,
	}, nil
}

func (e *Ecosystem) violation(phase string, err error) error {
	return fmt.Errorf("%w: turn %d %s: %w", ErrInvariantViolation, e.reg.Turn(), e.phases.GetName(phase), err)
}

// check verifies bounds, trait uniqueness, the food floor and registry consistency.
func (e *Ecosystem) check(phase string) error {
	reg := e.reg
	eco := e.cfg.Ecosystem
	if reg.Food() < 0 {
		return e.violation(phase, fmt.Errorf("food pool is %d", reg.Food()))
	}
	for _, id := range reg.order {
		if err := reg.Get(id).Validate(eco.PopulationMax, eco.BodySizeMax); err != nil {
			return e.violation(phase, err)
		}
	}
	if err := reg.checkConsistency(); err != nil {
		return e.violation(phase, err)
	}
	return nil
}

// checkScored verifies no dead or empty species survived scoring.
func (e *Ecosystem) checkScored() error {
	for _, id := range e.reg.order {
		s := e.reg.Get(id)
		if s.Dead || s.Population == 0 {
			return e.violation(systems.PhaseScoring, fmt.Errorf("species %d remains with population %d", id, s.Population))
		}
	}
	return nil
}
