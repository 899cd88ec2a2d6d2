package telemetry

import (
	"path/filepath"
	"testing"
)

func TestLineageTracker(t *testing.T) {
	lt := NewLineageTracker()
	var dead []*LineageStats
	lt.OnDeath(func(ls *LineageStats) { dead = append(dead, ls) })

	lt.Register(1, 0, 0)
	lt.Register(2, 1, 4)
	lt.RecordFood(1, 3)
	lt.RecordAttack(2, 1, true)
	lt.RecordStarvation(2)
	lt.Observe(SpeciesRecord{ID: 2, Population: 4, BodySize: 2})
	lt.Observe(SpeciesRecord{ID: 2, Population: 1, BodySize: 3})

	if got := lt.Get(1).Children; got != 1 {
		t.Errorf("parent children = %d, want 1", got)
	}
	s2 := lt.Get(2)
	if s2.Attacks != 1 || s2.Kills != 1 || s2.Starvations != 1 {
		t.Errorf("attacker stats = %+v", s2)
	}
	if s2.PeakPopulation != 4 || s2.PeakBodySize != 3 {
		t.Errorf("peaks = %d/%d, want 4/3", s2.PeakPopulation, s2.PeakBodySize)
	}
	if lt.Get(1).TimesHunted != 1 || lt.Get(1).TotalFood != 3 {
		t.Errorf("target stats = %+v", lt.Get(1))
	}

	lt.RecordDeath(1, 9)
	if lt.Get(1) != nil || lt.Count() != 1 {
		t.Error("dead lineage should stop being tracked")
	}
	if len(dead) != 1 || dead[0].DeathTurn != 9 || dead[0].Survival(100) != 9 {
		t.Errorf("death callback got %+v", dead)
	}
}

func TestLineageTrackerNil(t *testing.T) {
	var lt *LineageTracker
	lt.Register(1, 0, 0)
	lt.RecordFood(1, 1)
	lt.RecordAttack(1, 2, true)
	lt.RecordDeath(1, 1)
	if lt.Get(1) != nil || lt.Count() != 0 {
		t.Error("nil tracker should report nothing")
	}
}

func TestHallOfFame(t *testing.T) {
	hof := NewHallOfFame(2)

	short := &LineageStats{ID: 1, BirthTurn: 0, DeathTurn: 3}
	long := &LineageStats{ID: 2, BirthTurn: 0, DeathTurn: 20}
	mid := &LineageStats{ID: 3, BirthTurn: 5, DeathTurn: 15}

	hof.Consider(short, 30)
	hof.Consider(long, 30)
	if !hof.Consider(mid, 30) {
		t.Error("mid lineage should displace the short one")
	}

	entries := hof.Entries()
	if len(entries) != 2 || entries[0].Stats.ID != 2 || entries[1].Stats.ID != 3 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Survival != 20 {
		t.Errorf("survival = %d, want 20", entries[0].Survival)
	}

	if hof.Consider(&LineageStats{ID: 4, BirthTurn: 29, DeathTurn: 30}, 30) {
		t.Error("weak lineage should not enter a full hall")
	}

	// A living lineage is re-ranked as it ages
	alive := &LineageStats{ID: 5, BirthTurn: 0, DeathTurn: -1}
	hof.Consider(alive, 50)
	hof.Consider(alive, 60)
	if e := hof.Entries(); e[0].Stats.ID != 5 || e[0].Survival != 60 || hof.Size() != 2 {
		t.Errorf("re-ranked entries = %+v", e)
	}
}

func TestHallOfFameFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	hof := NewHallOfFame(3)
	hof.Consider(&LineageStats{ID: 1, DeathTurn: 10}, 10)
	hof.Consider(&LineageStats{ID: 2, DeathTurn: 4}, 10)

	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()
	if err := om.WriteHallOfFame(hof); err != nil {
		t.Fatalf("WriteHallOfFame: %v", err)
	}

	loaded, err := LoadHallOfFameFromFile(filepath.Join(dir, "hall_of_fame.json"))
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	if loaded.Size() != 2 || loaded.TopFitness() != hof.TopFitness() {
		t.Errorf("loaded %d entries top %v, want 2 top %v", loaded.Size(), loaded.TopFitness(), hof.TopFitness())
	}
}
