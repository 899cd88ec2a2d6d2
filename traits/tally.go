package traits

import "sort"

// Tally counts trait instances. Keys are traits; values are counts.
type Tally map[Trait]int

// AddSlots increments the count of every non-empty trait in s.
func (t Tally) AddSlots(s Slots) {
	for _, v := range s {
		if v != None {
			t[v]++
		}
	}
}

// Merge adds every count from other into t.
func (t Tally) Merge(other Tally) {
	for k, v := range other {
		t[k] += v
	}
}

// Total returns the sum of all counts.
func (t Tally) Total() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}

// TallyEntry is one trait with its count.
type TallyEntry struct {
	Trait Trait `csv:"trait" json:"trait"`
	Count int   `csv:"count" json:"count"`
}

// Entries returns one entry per catalog trait (zero counts included) in catalog order.
func (t Tally) Entries(c Catalog) []TallyEntry {
	out := make([]TallyEntry, 0, c.Len())
	for _, tr := range c.traits {
		out = append(out, TallyEntry{Trait: tr, Count: t[tr]})
	}
	return out
}

// Sorted returns non-zero entries ordered by count descending, then trait order.
func (t Tally) Sorted() []TallyEntry {
	out := make([]TallyEntry, 0, len(t))
	for k, v := range t {
		if v != 0 {
			out = append(out, TallyEntry{Trait: k, Count: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Trait < out[j].Trait
	})
	return out
}
