package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// HallEntry is a lineage that earned a place in the hall of fame.
type HallEntry struct {
	Stats    LineageStats `json:"stats"`
	Survival int          `json:"survival_turns"`
	Fitness  float64      `json:"fitness"`
}

// HallOfFame keeps the most successful lineages, ranked by fitness.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall holding at most maxSize entries.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Fitness scores a lineage: survival dominates, food and descendants break ties.
func Fitness(stats *LineageStats, turn int) float64 {
	return float64(stats.Survival(turn)) + 0.1*float64(stats.TotalFood) + 0.5*float64(stats.Children)
}

// Consider evaluates a lineage for entry as of turn. Returns true if added.
func (hof *HallOfFame) Consider(stats *LineageStats, turn int) bool {
	if stats == nil {
		return false
	}
	entry := HallEntry{
		Stats:    *stats,
		Survival: stats.Survival(turn),
		Fitness:  Fitness(stats, turn),
	}

	// Replace an existing entry for the same lineage
	for i := range hof.entries {
		if hof.entries[i].Stats.ID == stats.ID {
			hof.entries = append(hof.entries[:i], hof.entries[i+1:]...)
			break
		}
	}

	before := len(hof.entries)
	hof.entries = hof.insertEntry(hof.entries, entry)
	for _, e := range hof.entries {
		if e.Stats.ID == stats.ID {
			return true
		}
	}
	return before != len(hof.entries)
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Entries returns the hall in descending fitness order.
func (hof *HallOfFame) Entries() []HallEntry {
	out := make([]HallEntry, len(hof.entries))
	copy(out, hof.entries)
	return out
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the highest fitness, or 0 if the hall is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.entries, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame written by OutputManager.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var entries []HallEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(max(len(entries), 1))
	for _, e := range entries {
		hof.entries = hof.insertEntry(hof.entries, e)
	}
	return hof, nil
}
