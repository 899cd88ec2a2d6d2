package telemetry

import (
	"sort"

	"github.com/pthm-cable/wateringhole/traits"
)

// History is the caller-owned record of a run: the species count after every
// turn and the trait tally accumulated across all turns.
type History struct {
	turns        []int
	speciesCount []int
	cumulative   traits.Tally
	catalog      traits.Catalog
}

// NewHistory creates an empty history. The catalog fixes the order of
// TraitFrequencies output.
func NewHistory(catalog traits.Catalog) *History {
	return &History{
		cumulative: make(traits.Tally),
		catalog:    catalog,
	}
}

// Record appends one turn summary.
func (h *History) Record(s TurnSummary) {
	h.turns = append(h.turns, s.Turn)
	h.speciesCount = append(h.speciesCount, s.SpeciesCount)
	h.cumulative.Merge(s.TraitTally)
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	return len(h.turns)
}

// SpeciesCounts returns the species-count series alongside its turn numbers.
func (h *History) SpeciesCounts() (turns, counts []int) {
	return append([]int(nil), h.turns...), append([]int(nil), h.speciesCount...)
}

// PeakSpecies returns the highest species count seen and the turn it occurred.
func (h *History) PeakSpecies() (count, turn int) {
	for i, c := range h.speciesCount {
		if c > count {
			count, turn = c, h.turns[i]
		}
	}
	return count, turn
}

// Cumulative returns a copy of the accumulated trait tally.
func (h *History) Cumulative() traits.Tally {
	out := make(traits.Tally, len(h.cumulative))
	out.Merge(h.cumulative)
	return out
}

// TraitFrequencies returns every catalog trait with its accumulated count,
// most frequent first. Traits that never appeared are included with count 0.
func (h *History) TraitFrequencies() []traits.TallyEntry {
	entries := h.cumulative.Entries(h.catalog)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}
