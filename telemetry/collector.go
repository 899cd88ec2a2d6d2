package telemetry

import "log/slog"

// TurnEvents counts what happened during one turn.
type TurnEvents struct {
	Speciations     int `csv:"speciations" json:"speciations"`
	DuplicateBlocks int `csv:"duplicate_blocks" json:"duplicate_blocks"` // mutation fell back to a traitless species
	PopulationGrows int `csv:"population_grows" json:"population_grows"`
	BodyGrows       int `csv:"body_grows" json:"body_grows"`
	FertileBirths   int `csv:"fertile_births" json:"fertile_births"`

	LongNeckFeeds int `csv:"long_neck_feeds" json:"long_neck_feeds"`
	Bites         int `csv:"bites" json:"bites"`
	ForageBites   int `csv:"forage_bites" json:"forage_bites"`

	Attacks      int `csv:"attacks" json:"attacks"`
	Kills        int `csv:"kills" json:"kills"`
	Starvations  int `csv:"starvations" json:"starvations"`
	Retaliations int `csv:"retaliations" json:"retaliations"`
	Scavenges    int `csv:"scavenges" json:"scavenges"`

	Extinctions    int `csv:"extinctions" json:"extinctions"`
	FeedingRounds  int `csv:"feeding_rounds" json:"feeding_rounds"`
	FeedingActions int `csv:"feeding_actions" json:"feeding_actions"`
}

// LogValue implements slog.LogValuer for structured logging.
func (e TurnEvents) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("speciations", e.Speciations),
		slog.Int("duplicate_blocks", e.DuplicateBlocks),
		slog.Int("fertile_births", e.FertileBirths),
		slog.Int("bites", e.Bites),
		slog.Int("forage_bites", e.ForageBites),
		slog.Int("attacks", e.Attacks),
		slog.Int("kills", e.Kills),
		slog.Int("starvations", e.Starvations),
		slog.Int("retaliations", e.Retaliations),
		slog.Int("scavenges", e.Scavenges),
		slog.Int("extinctions", e.Extinctions),
		slog.Int("feeding_rounds", e.FeedingRounds),
	)
}

// Collector accumulates events within a turn and produces TurnEvents.
// A nil *Collector discards everything, so systems can run without telemetry.
type Collector struct {
	current TurnEvents

	// Lineage tracking hooks (optional)
	lineage *LineageTracker
}

// NewCollector creates a new event collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetLineageTracker routes per-species events to a lineage tracker.
func (c *Collector) SetLineageTracker(lt *LineageTracker) {
	if c == nil {
		return
	}
	c.lineage = lt
}

// RecordSpeciation records a new lineage branching from parentID.
func (c *Collector) RecordSpeciation(childID, parentID uint32, turn int, duplicate bool) {
	if c == nil {
		return
	}
	c.current.Speciations++
	if duplicate {
		c.current.DuplicateBlocks++
	}
	c.lineage.Register(childID, parentID, turn)
}

// RecordPopulationGrow records a growth-phase population increase.
func (c *Collector) RecordPopulationGrow() {
	if c == nil {
		return
	}
	c.current.PopulationGrows++
}

// RecordBodyGrow records a growth-phase body size increase.
func (c *Collector) RecordBodyGrow() {
	if c == nil {
		return
	}
	c.current.BodyGrows++
}

// RecordFertileBirth records a fertility population increase.
func (c *Collector) RecordFertileBirth() {
	if c == nil {
		return
	}
	c.current.FertileBirths++
}

// RecordLongNeckFeed records a long-neck priority feeding.
func (c *Collector) RecordLongNeckFeed() {
	if c == nil {
		return
	}
	c.current.LongNeckFeeds++
}

// RecordBite records one unit of food taken from the watering hole.
func (c *Collector) RecordBite(id uint32, forage bool) {
	if c == nil {
		return
	}
	c.current.Bites++
	if forage {
		c.current.ForageBites++
	}
	c.lineage.RecordFood(id, 1)
}

// RecordAttack records a successful attack. killed is true when the target's population reached zero.
func (c *Collector) RecordAttack(attackerID, targetID uint32, killed bool) {
	if c == nil {
		return
	}
	c.current.Attacks++
	if killed {
		c.current.Kills++
	}
	c.lineage.RecordAttack(attackerID, targetID, killed)
}

// RecordStarvation records a carnivore that found no valid target.
func (c *Collector) RecordStarvation(id uint32) {
	if c == nil {
		return
	}
	c.current.Starvations++
	c.lineage.RecordStarvation(id)
}

// RecordRetaliation records horns damaging an attacker.
func (c *Collector) RecordRetaliation() {
	if c == nil {
		return
	}
	c.current.Retaliations++
}

// RecordScavenge records a scavenger feeding off a carnivore action.
func (c *Collector) RecordScavenge(id uint32) {
	if c == nil {
		return
	}
	c.current.Scavenges++
	c.lineage.RecordFood(id, 1)
}

// RecordFeedingRound records one full scan of the feeding loop.
func (c *Collector) RecordFeedingRound(actions int) {
	if c == nil {
		return
	}
	c.current.FeedingRounds++
	c.current.FeedingActions += actions
}

// RecordExtinction records a species removed during scoring.
func (c *Collector) RecordExtinction(id uint32, turn int) {
	if c == nil {
		return
	}
	c.current.Extinctions++
	c.lineage.RecordDeath(id, turn)
}

// Flush returns the events recorded since the last flush and resets the counters.
func (c *Collector) Flush() TurnEvents {
	if c == nil {
		return TurnEvents{}
	}
	events := c.current
	c.current = TurnEvents{}
	return events
}
