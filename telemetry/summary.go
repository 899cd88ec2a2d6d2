// Package telemetry provides turn summaries, ecosystem statistics, bookmarking,
// lineage tracking and the output sinks that observe a running ecosystem.
package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/wateringhole/traits"
)

// SpeciesRecord is the observable state of one species after a turn.
type SpeciesRecord struct {
	ID         uint32       `json:"id"`
	ParentID   uint32       `json:"parent_id"`
	Age        int          `json:"age"`
	Traits     traits.Slots `json:"traits"`
	Population int          `json:"population"`
	BodySize   int          `json:"body_size"`
	PhaseFood  int          `json:"phase_food"`
	TotalFood  int          `json:"total_food"`
	Satisfied  bool         `json:"satisfied"`
}

// IsCarnivore reports whether the record carries the carnivore trait.
func (r SpeciesRecord) IsCarnivore() bool {
	return r.Traits.Has(traits.Carnivore)
}

// TurnSummary is the post-turn snapshot handed to observers.
type TurnSummary struct {
	Turn         int             `json:"turn"`
	FoodBefore   int             `json:"food_before"`
	FoodDelta    int             `json:"food_delta"`
	FoodAfter    int             `json:"food_after"`
	SpeciesCount int             `json:"species_count"`
	Species      []SpeciesRecord `json:"species"`

	// TraitTally counts trait instances across living species this turn.
	TraitTally traits.Tally `json:"trait_tally"`

	Events  TurnEvents `json:"events"`
	Extinct bool       `json:"extinct"`
}

// TotalPopulation sums population across all species.
func (s TurnSummary) TotalPopulation() int {
	n := 0
	for _, r := range s.Species {
		n += r.Population
	}
	return n
}

// CarnivoreCount returns the number of carnivorous species.
func (s TurnSummary) CarnivoreCount() int {
	n := 0
	for _, r := range s.Species {
		if r.IsCarnivore() {
			n++
		}
	}
	return n
}

// LogValue implements slog.LogValuer for structured logging.
func (s TurnSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("turn", s.Turn),
		slog.Int("food_before", s.FoodBefore),
		slog.Int("food_delta", s.FoodDelta),
		slog.Int("food_after", s.FoodAfter),
		slog.Int("species", s.SpeciesCount),
		slog.Int("population", s.TotalPopulation()),
		slog.Int("carnivores", s.CarnivoreCount()),
		slog.Bool("extinct", s.Extinct),
		slog.Any("events", s.Events),
	)
}

// TurnRow is the flat per-turn record written to turns.csv.
type TurnRow struct {
	Turn            int     `csv:"turn"`
	FoodBefore      int     `csv:"food_before"`
	FoodDelta       int     `csv:"food_delta"`
	FoodAfter       int     `csv:"food_after"`
	SpeciesCount    int     `csv:"species"`
	Carnivores      int     `csv:"carnivores"`
	TotalPopulation int     `csv:"population"`
	PopMean         float64 `csv:"pop_mean"`
	PopStd          float64 `csv:"pop_std"`
	BodyMean        float64 `csv:"body_mean"`
	BodyStd         float64 `csv:"body_std"`
	TraitDiversity  float64 `csv:"trait_entropy"`

	TurnEvents
}

// Row flattens the summary into a turns.csv record.
func (s TurnSummary) Row() TurnRow {
	d := Distributions(s)
	return TurnRow{
		Turn:            s.Turn,
		FoodBefore:      s.FoodBefore,
		FoodDelta:       s.FoodDelta,
		FoodAfter:       s.FoodAfter,
		SpeciesCount:    s.SpeciesCount,
		Carnivores:      s.CarnivoreCount(),
		TotalPopulation: s.TotalPopulation(),
		PopMean:         d.Population.Mean,
		PopStd:          d.Population.Std,
		BodyMean:        d.BodySize.Mean,
		BodyStd:         d.BodySize.Std,
		TraitDiversity:  d.TraitEntropy,
		TurnEvents:      s.Events,
	}
}

// SpeciesRow is one species at one turn, written to species.csv.
type SpeciesRow struct {
	Turn       int    `csv:"turn"`
	ID         uint32 `csv:"id"`
	ParentID   uint32 `csv:"parent_id"`
	Age        int    `csv:"age"`
	Traits     string `csv:"traits"`
	Population int    `csv:"population"`
	BodySize   int    `csv:"body_size"`
	PhaseFood  int    `csv:"phase_food"`
	TotalFood  int    `csv:"total_food"`
}

// SpeciesRows flattens the per-species tuples of a summary.
func (s TurnSummary) SpeciesRows() []SpeciesRow {
	rows := make([]SpeciesRow, 0, len(s.Species))
	for _, r := range s.Species {
		rows = append(rows, SpeciesRow{
			Turn:       s.Turn,
			ID:         r.ID,
			ParentID:   r.ParentID,
			Age:        r.Age,
			Traits:     r.Traits.String(),
			Population: r.Population,
			BodySize:   r.BodySize,
			PhaseFood:  r.PhaseFood,
			TotalFood:  r.TotalFood,
		})
	}
	return rows
}
