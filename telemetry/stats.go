package telemetry

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/wateringhole/traits"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Distribution summarizes a set of integer observations.
type Distribution struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	P10  float64 `json:"p10"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	Max  float64 `json:"max"`
}

// Percentile returns the empirical p-quantile of a sorted slice.
// p is clamped to [0, 1]. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Describe computes the distribution of values. The sample standard deviation
// is 0 when fewer than two values are present.
func Describe(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		N:    n,
		Min:  sorted[0],
		Max:  sorted[n-1],
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
		Mean: stat.Mean(sorted, nil),
	}
	if n > 1 {
		d.Std = stat.StdDev(sorted, nil)
	}
	return d
}

// EcosystemStats holds the per-turn distributions derived from a summary.
type EcosystemStats struct {
	Population Distribution `json:"population"`
	BodySize   Distribution `json:"body_size"`
	TotalFood  Distribution `json:"total_food"`

	// TraitEntropy is the Shannon entropy (nats) of the trait tally.
	TraitEntropy float64 `json:"trait_entropy"`
}

// Distributions computes population, body size and lifetime food
// distributions across the species of a summary.
func Distributions(s TurnSummary) EcosystemStats {
	pops := make([]float64, 0, len(s.Species))
	bodies := make([]float64, 0, len(s.Species))
	foods := make([]float64, 0, len(s.Species))
	for _, r := range s.Species {
		pops = append(pops, float64(r.Population))
		bodies = append(bodies, float64(r.BodySize))
		foods = append(foods, float64(r.TotalFood))
	}

	return EcosystemStats{
		Population:   Describe(pops),
		BodySize:     Describe(bodies),
		TotalFood:    Describe(foods),
		TraitEntropy: TallyEntropy(s.TraitTally),
	}
}

// TallyEntropy returns the Shannon entropy of the trait frequency mapping.
// Zero for an empty tally.
func TallyEntropy(counts traits.Tally) float64 {
	if len(counts) == 0 {
		return 0
	}
	p := make([]float64, 0, len(counts))
	for _, c := range counts {
		if c > 0 {
			p = append(p, float64(c))
		}
	}
	sort.Float64s(p)
	total := floats.Sum(p)
	if total == 0 {
		return 0
	}
	floats.Scale(1/total, p)
	return stat.Entropy(p)
}

// LogValue implements slog.LogValuer for structured logging.
func (d Distribution) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("n", d.N),
		slog.Float64("mean", d.Mean),
		slog.Float64("std", d.Std),
		slog.Float64("p10", d.P10),
		slog.Float64("p50", d.P50),
		slog.Float64("p90", d.P90),
	)
}

// LogStats logs the ecosystem stats using slog.
func (s EcosystemStats) LogStats(turn int) {
	slog.Info("stats",
		"turn", turn,
		"population", s.Population,
		"body_size", s.BodySize,
		"total_food", s.TotalFood,
		"trait_entropy", s.TraitEntropy,
	)
}
