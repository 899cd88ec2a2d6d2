package main

import (
	"context"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/wateringhole/config"
	"github.com/pthm-cable/wateringhole/game"
	"github.com/pthm-cable/wateringhole/telemetry"
)

// FitnessEvaluator runs simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	turns      int
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame []telemetry.HallEntry
	lastQuality    float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, turns int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		turns:       turns,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() []telemetry.HallEntry {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTurns int // turns before extinction (or the full run)
	speciesCounts []float64
	entropies     []float64
	mixedTurns    int // turns with both carnivores and herbivores alive
	hallOfFame    []telemetry.HallEntry
	err           error
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness    float64
	quality    float64
	hallOfFame []telemetry.HallEntry
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival turns scaled by ecosystem quality.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			if result.err != nil {
				// an invalid or broken run scores as immediate extinction
				results[idx] = seedResult{}
				return
			}
			quality := fe.computeQuality(result)
			results[idx] = seedResult{
				fitness:    computeFitness(result.survivalTurns, quality),
				quality:    quality,
				hallOfFame: result.hallOfFame,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame []telemetry.HallEntry

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes one run with reseeding disabled, so the run ends
// at the first extinction.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.ReseedOnExtinction = false

	result := &runResult{}
	ctx := context.Background()
	r, err := game.NewRunner(ctx, cfg, game.Options{Seed: seed, Turns: fe.turns})
	if err != nil {
		result.err = err
		return result
	}
	defer r.Close()

	r.OnTurn(func(sum telemetry.TurnSummary) {
		result.sample(sum)
	})

	rep, err := r.Run(ctx)
	if err != nil {
		result.err = err
		return result
	}
	result.survivalTurns = rep.Turns
	result.hallOfFame = rep.HallOfFame
	return result
}

// sample records one turn summary.
func (r *runResult) sample(sum telemetry.TurnSummary) {
	r.speciesCounts = append(r.speciesCounts, float64(sum.SpeciesCount))
	r.entropies = append(r.entropies, telemetry.TallyEntropy(sum.TraitTally))
	if c := sum.CarnivoreCount(); c > 0 && c < sum.SpeciesCount {
		r.mixedTurns++
	}
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTurns × (1.0 + quality))
// Survival dominates; quality can at most double it.
func computeFitness(survivalTurns int, quality float64) float64 {
	return -(float64(survivalTurns) * (1.0 + quality))
}

// Quality component weights.
const (
	qualityWeightRichness  = 0.40
	qualityWeightDiversity = 0.25
	qualityWeightStability = 0.15
	qualityWeightPredation = 0.20

	qualityWarmupTurns = 10 // skip the first turns while lineages branch
	richnessScale      = 5.0
)

// computeQuality computes ecosystem quality in [0, 1] from per-turn samples.
func (fe *FitnessEvaluator) computeQuality(r *runResult) float64 {
	if len(r.speciesCounts) <= qualityWarmupTurns {
		return 0
	}
	counts := r.speciesCounts[qualityWarmupTurns:]
	entropies := r.entropies[qualityWarmupTurns:]

	// 1. Species richness saturates around a handful of coexisting lineages
	richness := 1 - math.Exp(-stat.Mean(counts, nil)/richnessScale)

	// 2. Trait diversity, normalized by the most even spread over the catalog
	diversity := 0.0
	if n := fe.baseConfig.Derived.Catalog.Len(); n > 1 {
		diversity = clamp01(stat.Mean(entropies, nil) / math.Log(float64(n)))
	}

	// 3. Stability of the species count
	stability := 0.0
	if mean := stat.Mean(counts, nil); mean > 0 && len(counts) >= 2 {
		cv := stat.StdDev(counts, nil) / mean
		stability = math.Exp(-cv * cv)
	}

	// 4. Predators and prey coexisting
	predation := float64(r.mixedTurns) / float64(len(r.speciesCounts))

	quality := qualityWeightRichness*richness +
		qualityWeightDiversity*diversity +
		qualityWeightStability*stability +
		qualityWeightPredation*predation

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(1, max(0, x))
}
