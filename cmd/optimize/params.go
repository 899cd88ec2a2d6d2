package main

import (
	"math"

	"github.com/pthm-cable/wateringhole/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the food-economy parameters. All of them are
// integers in the config; the optimizer searches a continuous relaxation.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "initial_food", Path: "ecosystem.initial_food", Min: 0, Max: 40, Default: 10},
			{Name: "food_add_lower", Path: "ecosystem.food_add_range[0]", Min: -4, Max: 1, Default: -1},
			// upper bound is lower + width, so the range is never empty
			{Name: "food_add_width", Path: "ecosystem.food_add_range[1]", Min: 1, Max: 8, Default: 3},
			{Name: "initial_species", Path: "ecosystem.initial_species", Min: 1, Max: 6, Default: 1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp bounds every value and rounds it to the integer the config will hold.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Round(min(spec.Max, max(spec.Min, v[i])))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	lower := int(clamped[1])
	cfg.Ecosystem.InitialFood = int(clamped[0])
	cfg.Ecosystem.FoodAddRange = [2]int{lower, lower + int(clamped[2])}
	cfg.Ecosystem.InitialSpecies = int(clamped[3])
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	eco := cfg.Ecosystem
	return []float64{
		float64(eco.InitialFood),
		float64(eco.FoodAddRange[0]),
		float64(eco.FoodAddRange[1] - eco.FoodAddRange[0]),
		float64(eco.InitialSpecies),
	}
}
