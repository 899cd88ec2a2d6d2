package telemetry

import (
	"testing"

	"github.com/pthm-cable/wateringhole/traits"
)

// summaryWith builds a summary with one species per population entry.
func summaryWith(turn int, pops ...int) TurnSummary {
	s := TurnSummary{Turn: turn, SpeciesCount: len(pops)}
	for i, p := range pops {
		s.Species = append(s.Species, SpeciesRecord{ID: uint32(i + 1), Population: p, BodySize: 1})
	}
	return s
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)
	s := TurnSummary{Turn: 7, Extinct: true}
	s.Events.Extinctions = 1

	bookmarks := bd.Check(s)
	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("expected extinction bookmark")
	}
	if bookmarks[0].Turn != 7 {
		t.Errorf("bookmark turn = %d, want 7", bookmarks[0].Turn)
	}
}

func TestBookmarkDetector_SpeciationBurst(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		s := summaryWith(i, 3, 3)
		s.Events.Speciations = 1
		bd.Check(s)
	}

	burst := summaryWith(5, 3, 3)
	burst.Events.Speciations = 4 // 4x the average of 1
	if !hasBookmark(bd.Check(burst), BookmarkSpeciationBurst) {
		t.Error("expected speciation_burst bookmark")
	}
}

func TestBookmarkDetector_CarnivoreEmergence(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(summaryWith(0, 3))

	s := summaryWith(1, 3, 1)
	s.Species[1].Traits = traits.MustSlots("carnivore")
	if !hasBookmark(bd.Check(s), BookmarkCarnivoreEmergence) {
		t.Error("expected carnivore_emergence bookmark")
	}

	// Still present next turn: no new bookmark
	s.Turn = 2
	if hasBookmark(bd.Check(s), BookmarkCarnivoreEmergence) {
		t.Error("carnivore_emergence should only fire on the first turn carnivores appear")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(summaryWith(i, 6, 6, 6))
	}

	// 18 down to 6 is a 67% drop
	if !hasBookmark(bd.Check(summaryWith(5, 3, 3)), BookmarkPopulationCrash) {
		t.Error("expected population_crash bookmark")
	}

	// Peak was reset, so a steady low population does not crash again
	if hasBookmark(bd.Check(summaryWith(6, 3, 3)), BookmarkPopulationCrash) {
		t.Error("population_crash should not repeat without a new peak")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var fired []int
	for i := 0; i < 12; i++ {
		if hasBookmark(bd.Check(summaryWith(i, 2, 2, 2, 2)), BookmarkStableEcosystem) {
			fired = append(fired, i)
		}
	}

	// Variance checks start once four turns are retained; the fifth steady check fires.
	if len(fired) != 1 || fired[0] != 8 {
		t.Errorf("stable_ecosystem fired at %v, want [8]", fired)
	}
}

func TestBookmarkDetector_StableResetsOnCollapse(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 7; i++ {
		bd.Check(summaryWith(i, 2, 2, 2, 2))
	}
	bd.Check(summaryWith(7, 2))

	for i := 8; i < 12; i++ {
		if hasBookmark(bd.Check(summaryWith(i, 2, 2, 2, 2)), BookmarkStableEcosystem) {
			t.Fatalf("stable_ecosystem fired at turn %d right after a collapse", i)
		}
	}
}
