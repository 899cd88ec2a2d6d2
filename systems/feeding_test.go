package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/wateringhole/telemetry"
)

func TestReplenish(t *testing.T) {
	tests := []struct {
		name         string
		food         int
		lower, upper int
		wantDelta    int
		wantFood     int
	}{
		{"adds", 3, 2, 3, 2, 5},
		{"subtracts", 3, -1, 0, -1, 2},
		{"floors at zero", 3, -5, -4, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newSliceRegistry(tt.food)
			delta := Replenish(reg, rand.New(rand.NewSource(1)), tt.lower, tt.upper)
			if delta != tt.wantDelta || reg.Food() != tt.wantFood {
				t.Errorf("delta=%d food=%d, want %d/%d", delta, reg.Food(), tt.wantDelta, tt.wantFood)
			}
		})
	}
}

func TestReplenishStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		reg := newSliceRegistry(10)
		delta := Replenish(reg, rng, -1, 2)
		if delta < -1 || delta >= 2 {
			t.Fatalf("delta %d outside [-1, 2)", delta)
		}
	}
}

func TestHerbivoreDrinksUntilSatisfied(t *testing.T) {
	reg := newSliceRegistry(5)
	herb := reg.add(2, 1)

	f := NewFeedingSystem(6)
	if _, err := f.Update(reg); err != nil {
		t.Fatal(err)
	}
	if herb.PhaseFood != 2 || !herb.Satisfied {
		t.Errorf("phase food %d satisfied %v, want 2 true", herb.PhaseFood, herb.Satisfied)
	}
	if reg.Food() != 3 {
		t.Errorf("food = %d, want 3", reg.Food())
	}
}

func TestForagingTakesSecondBite(t *testing.T) {
	reg := newSliceRegistry(10)
	herb := reg.add(3, 1, "foraging")
	c := telemetry.NewCollector()

	f := NewFeedingSystem(6)
	f.SetCollector(c)
	rounds, err := f.Update(reg)
	if err != nil {
		t.Fatal(err)
	}
	if herb.PhaseFood != 3 || reg.Food() != 7 {
		t.Errorf("phase food %d food %d, want 3 and 7", herb.PhaseFood, reg.Food())
	}
	// two bites, then one, then an idle scan
	if rounds != 3 {
		t.Errorf("rounds = %d, want 3", rounds)
	}
	ev := c.Flush()
	if ev.Bites != 3 || ev.ForageBites != 1 {
		t.Errorf("bites=%d forage=%d, want 3/1", ev.Bites, ev.ForageBites)
	}
}

func TestForagingStopsOnEmptyPool(t *testing.T) {
	reg := newSliceRegistry(1)
	herb := reg.add(3, 1, "foraging")

	f := NewFeedingSystem(6)
	if _, err := f.Update(reg); err != nil {
		t.Fatal(err)
	}
	if herb.PhaseFood != 1 || reg.Food() != 0 {
		t.Errorf("phase food %d food %d, want 1 and 0", herb.PhaseFood, reg.Food())
	}
}

func TestFoodExhaustionSharesInTurnOrder(t *testing.T) {
	reg := newSliceRegistry(3)
	a := reg.add(3, 1)
	b := reg.add(3, 1)

	f := NewFeedingSystem(6)
	if _, err := f.Update(reg); err != nil {
		t.Fatal(err)
	}
	if a.PhaseFood != 2 || b.PhaseFood != 1 {
		t.Errorf("phase food a=%d b=%d, want 2/1", a.PhaseFood, b.PhaseFood)
	}
	if reg.Food() != 0 {
		t.Errorf("food = %d, want 0", reg.Food())
	}
}

func TestEmptyPoolStopsEveryone(t *testing.T) {
	reg := newSliceRegistry(0)
	carn := reg.add(2, 3, "carnivore")
	herb := reg.add(2, 1)

	f := NewFeedingSystem(6)
	rounds, err := f.Update(reg)
	if err != nil {
		t.Fatal(err)
	}
	if rounds != 1 || carn.Population != 2 || herb.Population != 2 {
		t.Errorf("rounds=%d carn=%d herb=%d, want an idle scan", rounds, carn.Population, herb.Population)
	}
}

func TestLongNeckFeedsFree(t *testing.T) {
	reg := newSliceRegistry(4)
	neck := reg.add(1, 1, "long_neck")
	other := reg.add(2, 1)

	f := NewFeedingSystem(6)
	f.LongNeck(reg)
	if neck.PhaseFood != 1 || !neck.Satisfied {
		t.Errorf("long neck phase food %d satisfied %v", neck.PhaseFood, neck.Satisfied)
	}
	if other.PhaseFood != 0 || other.Satisfied {
		t.Error("species without long neck should not be fed")
	}
	if reg.Food() != 4 {
		t.Errorf("long neck feeding cost the pool: food = %d", reg.Food())
	}
}

func TestHuntPackHunting(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(2, 3, "carnivore", "pack_hunting")
	herb := reg.add(3, 2)

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if herb.Population != 2 {
		t.Errorf("herbivore population = %d, want 2", herb.Population)
	}
	if carn.Population != 2 || carn.PhaseFood != 0 {
		t.Errorf("attacker pop %d phase food %d, want unchanged", carn.Population, carn.PhaseFood)
	}
}

func TestSelectTarget(t *testing.T) {
	t.Run("warning call blocks non-ambushers", func(t *testing.T) {
		reg := newSliceRegistry(5)
		carn := reg.add(1, 6, "carnivore")
		reg.add(1, 1, "warning_call")
		if got := SelectTarget(reg, reg.Order(), carn); got != nil {
			t.Errorf("got target %d, want none", got.ID)
		}

		ambusher := reg.add(1, 6, "carnivore", "ambush")
		if got := SelectTarget(reg, reg.Order(), ambusher); got == nil || got.ID != 2 {
			t.Errorf("ambusher should reach the warning-call species, got %v", got)
		}
	})

	t.Run("ties go to lowest index", func(t *testing.T) {
		reg := newSliceRegistry(5)
		carn := reg.add(1, 3, "carnivore")
		first := reg.add(2, 1)
		reg.add(2, 1)
		if got := SelectTarget(reg, reg.Order(), carn); got != first {
			t.Errorf("got %v, want first herbivore", got)
		}
	})

	t.Run("most phase food wins", func(t *testing.T) {
		reg := newSliceRegistry(5)
		carn := reg.add(1, 3, "carnivore")
		reg.add(2, 1)
		fed := reg.add(2, 1)
		fed.PhaseFood = 1
		if got := SelectTarget(reg, reg.Order(), carn); got != fed {
			t.Errorf("got %v, want the fed herbivore", got)
		}
	})

	t.Run("never self", func(t *testing.T) {
		reg := newSliceRegistry(5)
		// pack hunting alone would beat its own defense
		carn := reg.add(2, 1, "carnivore", "pack_hunting")
		if got := SelectTarget(reg, reg.Order(), carn); got != nil {
			t.Errorf("got %v, want no target", got)
		}
	})

	t.Run("skips dead", func(t *testing.T) {
		reg := newSliceRegistry(5)
		carn := reg.add(1, 3, "carnivore")
		corpse := reg.add(0, 1)
		corpse.Dead = true
		if got := SelectTarget(reg, reg.Order(), carn); got != nil {
			t.Errorf("got %v, want no target", got)
		}
	})
}

func TestHornsRetaliate(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(2, 3, "carnivore")
	herb := reg.add(2, 1, "horns")
	c := telemetry.NewCollector()

	f := NewFeedingSystem(6)
	f.SetCollector(c)
	f.hunt(reg, reg.Order(), carn)

	if herb.Population != 1 {
		t.Errorf("target population = %d, want 1", herb.Population)
	}
	if carn.Population != 1 {
		t.Errorf("attacker population = %d, want 1", carn.Population)
	}
	// consolation food satisfies the wounded attacker
	if carn.PhaseFood != 1 || !carn.Satisfied {
		t.Errorf("attacker phase food %d satisfied %v, want 1 true", carn.PhaseFood, carn.Satisfied)
	}
	if ev := c.Flush(); ev.Attacks != 1 || ev.Retaliations != 1 {
		t.Errorf("events = %+v", ev)
	}
}

func TestHornsCanKillAttacker(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(1, 3, "carnivore")
	reg.add(2, 1, "horns")

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if !carn.Dead || carn.Population != 0 {
		t.Errorf("attacker pop %d dead %v, want gored to death", carn.Population, carn.Dead)
	}
}

func TestStarvationWithoutTarget(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(2, 1, "carnivore")
	reg.add(2, 1, "hard_shell")

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if carn.Population != 1 || carn.PhaseFood != 1 || !carn.Satisfied {
		t.Errorf("pop %d phase food %d satisfied %v, want 1/1/true", carn.Population, carn.PhaseFood, carn.Satisfied)
	}
}

func TestStarvationKillsLastPopulation(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(1, 1, "carnivore")

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if !carn.Dead || carn.PhaseFood != 0 {
		t.Errorf("dead %v phase food %d, want dead without consolation", carn.Dead, carn.PhaseFood)
	}
}

func TestScavengeSinglePass(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(1, 3, "carnivore")
	scav := reg.add(3, 1, "scavenging")
	full := reg.add(1, 1, "scavenging", "hard_shell")
	full.PhaseFood = 1
	full.Satisfied = true
	reg.add(3, 1)

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if scav.PhaseFood != 1 {
		t.Errorf("scavenger phase food = %d, want exactly 1", scav.PhaseFood)
	}
	if full.PhaseFood != 1 {
		t.Errorf("satisfied scavenger fed again: %d", full.PhaseFood)
	}
}

func TestScavengeAfterStarvation(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(2, 1, "carnivore")
	scav := reg.add(2, 1, "scavenging", "hard_shell")

	f := NewFeedingSystem(6)
	f.hunt(reg, reg.Order(), carn)

	if scav.PhaseFood != 1 {
		t.Errorf("scavenger phase food = %d, want 1 after a failed hunt", scav.PhaseFood)
	}
}

func TestPredatorExhaustsPreyThenStarves(t *testing.T) {
	reg := newSliceRegistry(5)
	carn := reg.add(1, 3, "carnivore")
	herb := reg.add(2, 1)

	f := NewFeedingSystem(6)
	if _, err := f.Update(reg); err != nil {
		t.Fatal(err)
	}
	if !herb.Dead || !carn.Dead {
		t.Fatalf("herb dead %v carn dead %v, want both dead", herb.Dead, carn.Dead)
	}
	// herbivore drank once before its second loss
	if reg.Food() != 4 {
		t.Errorf("food = %d, want 4", reg.Food())
	}

	removed := Score(reg, 6, nil)
	if len(removed) != 2 || len(reg.Order()) != 0 {
		t.Errorf("removed %v, remaining %v", removed, reg.Order())
	}
}

func TestFeedingTerminatesWithinBound(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		reg := newSliceRegistry(rng.Intn(12))
		names := []string{"carnivore", "pack_hunting", "foraging", "horns", "scavenging", "fat_tissue", "burrowing", "climbing"}
		for i := 0; i < 8; i++ {
			a, b := names[rng.Intn(len(names))], names[rng.Intn(len(names))]
			if a == b {
				reg.add(1+rng.Intn(6), 1+rng.Intn(6), a)
			} else {
				reg.add(1+rng.Intn(6), 1+rng.Intn(6), a, b)
			}
		}
		food := reg.Food()
		bound := ActionBound(len(reg.Order()), 6, food)

		c := telemetry.NewCollector()
		f := NewFeedingSystem(6)
		f.SetCollector(c)
		if _, err := f.Update(reg); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if reg.Food() < 0 {
			t.Fatalf("seed %d: food went negative", seed)
		}
		if ev := c.Flush(); ev.FeedingActions > bound {
			t.Errorf("seed %d: %d actions over bound %d", seed, ev.FeedingActions, bound)
		}
		for _, s := range reg.species {
			if s.Population < 0 {
				t.Errorf("seed %d: species %d population %d", seed, s.ID, s.Population)
			}
		}
	}
}

func TestActionBound(t *testing.T) {
	if got := ActionBound(2, 6, 10); got != 64 {
		t.Errorf("ActionBound = %d, want 64", got)
	}
}

func TestScoreRemovesDead(t *testing.T) {
	reg := newSliceRegistry(0)
	starving := reg.add(2, 1)
	fed := reg.add(2, 1)
	fed.PhaseFood = 8
	c := telemetry.NewCollector()

	removed := Score(reg, 6, c)

	if len(removed) != 1 || removed[0] != starving.ID {
		t.Fatalf("removed %v, want [%d]", removed, starving.ID)
	}
	if fed.Population != 6 || fed.PhaseFood != 2 || fed.TotalFood != 8 {
		t.Errorf("pop %d carry %d total %d, want 6/2/8", fed.Population, fed.PhaseFood, fed.TotalFood)
	}
	if ev := c.Flush(); ev.Extinctions != 1 {
		t.Errorf("extinctions = %d, want 1", ev.Extinctions)
	}
}
