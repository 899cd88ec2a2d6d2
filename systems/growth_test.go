package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

func newTestGrowth(seed int64, catalog traits.Catalog, avoidRepeat bool) *GrowthSystem {
	return NewGrowthSystem(rand.New(rand.NewSource(seed)), catalog, 6, 6, avoidRepeat)
}

func always(c GrowthChoice) func(GrowthChoice) GrowthChoice {
	return func(GrowthChoice) GrowthChoice { return c }
}

func TestChoose(t *testing.T) {
	g := newTestGrowth(1, traits.DefaultCatalog(), false)

	seen := make(map[GrowthChoice]int)
	for i := 0; i < 300; i++ {
		seen[g.Choose(ChoiceNone)]++
	}
	for _, c := range []GrowthChoice{ChoiceMutate, ChoicePopulation, ChoiceBody} {
		if seen[c] == 0 {
			t.Errorf("%s never drawn", c)
		}
	}
	if seen[ChoiceNone] != 0 {
		t.Error("ChoiceNone should never be drawn")
	}

	for i := 0; i < 100; i++ {
		if g.Choose(ChoiceBody) == ChoiceBody {
			t.Fatal("excluded choice was drawn")
		}
	}
}

func TestAvoidRepeat(t *testing.T) {
	reg := newSliceRegistry(0)
	s := reg.add(1, 1)
	g := newTestGrowth(3, traits.DefaultCatalog(), true)

	var prev GrowthChoice
	g.SetChooser(func(exclude GrowthChoice) GrowthChoice {
		if exclude != prev {
			t.Errorf("exclude = %s, want previous choice %s", exclude, prev)
		}
		// alternate between the two growth options
		if prev == ChoicePopulation {
			prev = ChoiceBody
		} else {
			prev = ChoicePopulation
		}
		return prev
	})
	for i := 0; i < 4; i++ {
		g.Update(reg)
	}
	if s.Population != 3 || s.BodySize != 3 {
		t.Errorf("pop %d body %d, want 3/3", s.Population, s.BodySize)
	}
}

func TestUpdateRespectsCaps(t *testing.T) {
	reg := newSliceRegistry(0)
	full := reg.add(6, 6)
	small := reg.add(2, 1)
	c := telemetry.NewCollector()

	g := newTestGrowth(1, traits.DefaultCatalog(), false)
	g.SetCollector(c)

	g.SetChooser(always(ChoicePopulation))
	g.Update(reg)
	g.SetChooser(always(ChoiceBody))
	g.Update(reg)

	if full.Population != 6 || full.BodySize != 6 {
		t.Errorf("capped species grew: pop %d body %d", full.Population, full.BodySize)
	}
	if small.Population != 3 || small.BodySize != 2 {
		t.Errorf("pop %d body %d, want 3/2", small.Population, small.BodySize)
	}
	if ev := c.Flush(); ev.PopulationGrows != 1 || ev.BodyGrows != 1 {
		t.Errorf("events = %+v", ev)
	}
}

func TestUpdateIteratesSnapshot(t *testing.T) {
	reg := newSliceRegistry(0)
	reg.add(1, 1)

	g := newTestGrowth(1, traits.DefaultCatalog(), false)
	g.SetChooser(always(ChoiceMutate))
	g.Update(reg)

	// the child spawned this pass does not mutate again
	if n := len(reg.Order()); n != 2 {
		t.Fatalf("species = %d, want 2", n)
	}
	g.Update(reg)
	if n := len(reg.Order()); n != 4 {
		t.Errorf("species = %d, want 4", n)
	}
}

func TestMutateAddsNovelTrait(t *testing.T) {
	reg := newSliceRegistry(0)
	parent := reg.add(1, 1, "foraging")

	g := newTestGrowth(5, traits.DefaultCatalog(), false)
	childID := g.Mutate(reg, parent.ID)

	child := reg.Get(childID)
	if child == nil {
		t.Fatal("child not registered")
	}
	if child.ParentID != parent.ID {
		t.Errorf("parent = %d, want %d", child.ParentID, parent.ID)
	}
	if child.Traits[0] != traits.Foraging || child.Traits[1] == traits.None || child.Traits[2] != traits.None {
		t.Errorf("child traits = %s, want foraging plus one new trait", child.Traits)
	}
	if _, dup := child.Traits.Duplicate(); dup {
		t.Errorf("child traits %s repeat a trait", child.Traits)
	}
	if child.Population != 1 || child.BodySize != 1 {
		t.Errorf("child pop %d body %d, want 1/1", child.Population, child.BodySize)
	}
	if parent.Traits != traits.MustSlots("foraging") {
		t.Errorf("parent traits changed to %s", parent.Traits)
	}
}

func TestMutateDuplicateLineageFallsBack(t *testing.T) {
	catalog, err := traits.NewCatalog([]string{"foraging", "horns"})
	if err != nil {
		t.Fatal(err)
	}
	reg := newSliceRegistry(0)
	parent := reg.add(1, 1, "foraging")
	// same set in another order
	reg.add(1, 1, "horns", "foraging")
	c := telemetry.NewCollector()

	g := newTestGrowth(1, catalog, false)
	g.SetCollector(c)
	childID := g.Mutate(reg, parent.ID)

	if got := reg.Get(childID).Traits; got != (traits.Slots{}) {
		t.Errorf("child traits = %s, want traitless", got)
	}
	if ev := c.Flush(); ev.Speciations != 1 || ev.DuplicateBlocks != 1 {
		t.Errorf("events = %+v", ev)
	}
}

func TestMutateExhaustedCatalog(t *testing.T) {
	catalog, err := traits.NewCatalog([]string{"foraging"})
	if err != nil {
		t.Fatal(err)
	}
	reg := newSliceRegistry(0)
	parent := reg.add(1, 1, "foraging")

	g := newTestGrowth(1, catalog, false)
	childID := g.Mutate(reg, parent.ID)

	if got := reg.Get(childID).Traits; got != (traits.Slots{}) {
		t.Errorf("child traits = %s, want traitless", got)
	}
}

func TestMutateNeverDuplicatesNonEmptySets(t *testing.T) {
	reg := newSliceRegistry(0)
	reg.add(1, 1)
	g := newTestGrowth(11, traits.DefaultCatalog(), false)
	g.SetChooser(always(ChoiceMutate))

	for i := 0; i < 6; i++ {
		g.Update(reg)
	}

	seen := make(map[traits.Slots]uint32)
	for _, s := range reg.species {
		if s.Traits.Count() == 0 {
			continue
		}
		key := s.Traits.Canonical()
		if other, ok := seen[key]; ok {
			t.Errorf("species %d and %d share %s", other, s.ID, s.Traits)
		}
		seen[key] = s.ID
	}
}

func TestFertility(t *testing.T) {
	tests := []struct {
		name    string
		food    int
		pop     int
		trait   string
		wantPop int
	}{
		{"grows", 3, 2, "fertile", 3},
		{"empty pool", 0, 2, "fertile", 2},
		{"at cap", 3, 6, "fertile", 6},
		{"not fertile", 3, 2, "foraging", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newSliceRegistry(tt.food)
			s := reg.add(tt.pop, 1, tt.trait)

			g := newTestGrowth(1, traits.DefaultCatalog(), false)
			g.Fertility(reg)

			if s.Population != tt.wantPop {
				t.Errorf("population = %d, want %d", s.Population, tt.wantPop)
			}
			if reg.Food() != tt.food {
				t.Errorf("fertility consumed food: %d", reg.Food())
			}
		})
	}
}

func TestForget(t *testing.T) {
	g := newTestGrowth(1, traits.DefaultCatalog(), true)
	g.last[7] = ChoiceBody
	g.Forget(7)
	if _, ok := g.last[7]; ok {
		t.Error("growth memory kept for removed species")
	}
}
