// Package traits defines the species trait catalog and trait slot sets.
package traits

import (
	"fmt"
	"sort"
	"strings"
)

// Trait identifies a species trait. The zero value is an empty slot.
type Trait uint8

const (
	None Trait = iota

	// Feeding traits
	Foraging  // Second bite at the watering hole when still hungry
	LongNeck  // One free food before anyone else eats
	FatTissue // Can store food beyond population
	Scavenging

	// Defensive traits
	Horns            // Attacker loses a population when it lands a hit
	HardShell        // +4 defense
	DefensiveHerding // Population adds to defense
	Burrowing        // Immune to attack once satisfied
	WarningCall      // Only ambushers can attack
	Climbing         // Only climbers can attack

	// Reproduction
	Fertile // Free population growth while food remains

	// Predator traits
	Carnivore
	Ambush
	PackHunting // Population adds to attack
)

var traitNames = [...]string{
	None:             "",
	Foraging:         "foraging",
	LongNeck:         "long_neck",
	FatTissue:        "fat_tissue",
	Scavenging:       "scavenging",
	Horns:            "horns",
	HardShell:        "hard_shell",
	DefensiveHerding: "defensive_herding",
	Burrowing:        "burrowing",
	WarningCall:      "warning_call",
	Climbing:         "climbing",
	Fertile:          "fertile",
	Carnivore:        "carnivore",
	Ambush:           "ambush",
	PackHunting:      "pack_hunting",
}

// All returns every non-empty trait in declaration order.
func All() []Trait {
	return []Trait{
		Foraging, LongNeck, FatTissue, Horns, HardShell,
		DefensiveHerding, Burrowing, Scavenging, Fertile,
		WarningCall, Climbing, Carnivore, Ambush, PackHunting,
	}
}

// String returns the snake_case trait name, or "" for an empty slot.
func (t Trait) String() string {
	if int(t) < len(traitNames) {
		return traitNames[t]
	}
	return fmt.Sprintf("trait(%d)", uint8(t))
}

// Valid reports whether t is a known, non-empty trait.
func (t Trait) Valid() bool {
	return t != None && int(t) < len(traitNames)
}

// Parse converts a trait name to a Trait.
func Parse(name string) (Trait, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, n := range traitNames {
		if i > 0 && n == name {
			return Trait(i), nil
		}
	}
	return None, fmt.Errorf("unknown trait %q", name)
}

// MarshalText implements encoding.TextMarshaler so traits serialize by name.
func (t Trait) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trait) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = None
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SlotCount is the number of trait slots on a species.
const SlotCount = 3

// Slots holds a species' trait slots. Empty slots hold None.
type Slots [SlotCount]Trait

// Has checks if any slot holds the trait.
func (s Slots) Has(t Trait) bool {
	if t == None {
		return false
	}
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

// Count returns the number of non-empty slots.
func (s Slots) Count() int {
	n := 0
	for _, v := range s {
		if v != None {
			n++
		}
	}
	return n
}

// Full reports whether every slot holds a trait.
func (s Slots) Full() bool {
	return s.Count() == SlotCount
}

// FirstEmpty returns the index of the first empty slot, or -1.
func (s Slots) FirstEmpty() int {
	for i, v := range s {
		if v == None {
			return i
		}
	}
	return -1
}

// Canonical returns the slots sorted so that equal sets compare equal.
// Empty slots sort last.
func (s Slots) Canonical() Slots {
	out := s
	sort.Slice(out[:], func(i, j int) bool {
		if out[i] == None || out[j] == None {
			return out[j] == None && out[i] != None
		}
		return out[i] < out[j]
	})
	return out
}

// SameSet reports whether two slot arrays hold the same traits regardless of order.
func (s Slots) SameSet(o Slots) bool {
	return s.Canonical() == o.Canonical()
}

// Duplicate returns the first non-empty trait held by more than one slot.
func (s Slots) Duplicate() (Trait, bool) {
	for i := 0; i < SlotCount; i++ {
		if s[i] == None {
			continue
		}
		for j := i + 1; j < SlotCount; j++ {
			if s[i] == s[j] {
				return s[i], true
			}
		}
	}
	return None, false
}

// Names returns the non-empty trait names in slot order.
func (s Slots) Names() []string {
	names := make([]string, 0, SlotCount)
	for _, v := range s {
		if v != None {
			names = append(names, v.String())
		}
	}
	return names
}

// String formats the slots as "a|b|-".
func (s Slots) String() string {
	parts := make([]string, SlotCount)
	for i, v := range s {
		if v == None {
			parts[i] = "-"
		} else {
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, "|")
}

// ParseSlots parses trait names into slots, left-aligned.
func ParseSlots(names ...string) (Slots, error) {
	var s Slots
	if len(names) > SlotCount {
		return s, fmt.Errorf("%d traits exceed %d slots", len(names), SlotCount)
	}
	for i, n := range names {
		t, err := Parse(n)
		if err != nil {
			return s, err
		}
		if s.Has(t) {
			return s, fmt.Errorf("duplicate trait %q", n)
		}
		s[i] = t
	}
	return s, nil
}

// MustSlots is like ParseSlots but panics on error. Intended for tests and fixtures.
func MustSlots(names ...string) Slots {
	s, err := ParseSlots(names...)
	if err != nil {
		panic(err)
	}
	return s
}
