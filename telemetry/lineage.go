package telemetry

import "github.com/pthm-cable/wateringhole/traits"

// LineageStats tracks one species over its lifetime.
type LineageStats struct {
	ID        uint32       `json:"id"`
	ParentID  uint32       `json:"parent_id"`
	BirthTurn int          `json:"birth_turn"`
	DeathTurn int          `json:"death_turn"` // -1 while alive
	Traits    traits.Slots `json:"traits"`

	Attacks     int `json:"attacks"`
	Kills       int `json:"kills"`
	TimesHunted int `json:"times_hunted"`
	Starvations int `json:"starvations"`
	Children    int `json:"children"`

	PeakPopulation int `json:"peak_population"`
	PeakBodySize   int `json:"peak_body_size"`
	TotalFood      int `json:"total_food"`
}

// Survival returns the number of turns the species lived, as of turn.
func (ls *LineageStats) Survival(turn int) int {
	end := turn
	if ls.DeathTurn >= 0 {
		end = ls.DeathTurn
	}
	return end - ls.BirthTurn
}

// LineageTracker manages per-species lifetime statistics. All methods are
// safe on a nil tracker.
type LineageTracker struct {
	stats map[uint32]*LineageStats

	// onDeath receives stats of species as they go extinct
	onDeath func(*LineageStats)
}

// NewLineageTracker creates a new lineage tracker.
func NewLineageTracker() *LineageTracker {
	return &LineageTracker{
		stats: make(map[uint32]*LineageStats),
	}
}

// OnDeath sets a callback for species removed from the ecosystem.
func (lt *LineageTracker) OnDeath(fn func(*LineageStats)) {
	if lt == nil {
		return
	}
	lt.onDeath = fn
}

// Register creates stats for a new species and credits its parent.
func (lt *LineageTracker) Register(id, parentID uint32, turn int) {
	if lt == nil {
		return
	}
	lt.stats[id] = &LineageStats{
		ID:        id,
		ParentID:  parentID,
		BirthTurn: turn,
		DeathTurn: -1,
	}
	if p := lt.stats[parentID]; p != nil && parentID != 0 {
		p.Children++
	}
}

// Get returns the stats for a species, or nil if not tracked.
func (lt *LineageTracker) Get(id uint32) *LineageStats {
	if lt == nil {
		return nil
	}
	return lt.stats[id]
}

// RecordAttack credits the attacker and debits the target.
func (lt *LineageTracker) RecordAttack(attackerID, targetID uint32, killed bool) {
	if lt == nil {
		return
	}
	if s := lt.stats[attackerID]; s != nil {
		s.Attacks++
		if killed {
			s.Kills++
		}
	}
	if s := lt.stats[targetID]; s != nil {
		s.TimesHunted++
	}
}

// RecordStarvation increments a carnivore's no-target count.
func (lt *LineageTracker) RecordStarvation(id uint32) {
	if lt == nil {
		return
	}
	if s := lt.stats[id]; s != nil {
		s.Starvations++
	}
}

// RecordFood adds food gathered this turn.
func (lt *LineageTracker) RecordFood(id uint32, n int) {
	if lt == nil {
		return
	}
	if s := lt.stats[id]; s != nil {
		s.TotalFood += n
	}
}

// Observe refreshes traits and peak values from a post-turn record.
func (lt *LineageTracker) Observe(rec SpeciesRecord) {
	if lt == nil {
		return
	}
	s := lt.stats[rec.ID]
	if s == nil {
		return
	}
	s.Traits = rec.Traits
	if rec.Population > s.PeakPopulation {
		s.PeakPopulation = rec.Population
	}
	if rec.BodySize > s.PeakBodySize {
		s.PeakBodySize = rec.BodySize
	}
}

// RecordDeath marks a species extinct, hands its stats to the death callback
// and stops tracking it.
func (lt *LineageTracker) RecordDeath(id uint32, turn int) {
	if lt == nil {
		return
	}
	s := lt.stats[id]
	if s == nil {
		return
	}
	s.DeathTurn = turn
	delete(lt.stats, id)
	if lt.onDeath != nil {
		lt.onDeath(s)
	}
}

// All returns all tracked stats.
func (lt *LineageTracker) All() map[uint32]*LineageStats {
	if lt == nil {
		return nil
	}
	return lt.stats
}

// Count returns the number of tracked species.
func (lt *LineageTracker) Count() int {
	if lt == nil {
		return 0
	}
	return len(lt.stats)
}
