package systems

import (
	"github.com/pthm-cable/wateringhole/components"
	"github.com/pthm-cable/wateringhole/traits"
)

// Registry is the ordered species store the phase systems operate on.
//
// Pointers returned by Get are only valid until the next Spawn or Remove;
// systems re-fetch by ID after either call.
type Registry interface {
	// Order returns a snapshot of species IDs in turn order.
	Order() []uint32
	// Get returns the species with the given ID, or nil.
	Get(id uint32) *components.Species
	// Spawn creates a new species descended from parentID and returns its ID.
	Spawn(parentID uint32, slots traits.Slots) uint32
	// Remove deletes a species from the registry.
	Remove(id uint32)
	// Food returns the watering hole food pool.
	Food() int
	// SetFood replaces the watering hole food pool.
	SetFood(n int)
	// Turn returns the current turn number.
	Turn() int
}

// PhaseInfo describes a turn phase for logging and perf tracking.
type PhaseInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this phase does
}

// Phase identifiers in execution order.
const (
	PhaseGrowth    = "growth"
	PhaseFertility = "fertility"
	PhaseFood      = "food"
	PhaseLongNeck  = "long_neck"
	PhaseFeeding   = "feeding"
	PhaseScoring   = "scoring"
	PhaseRotation  = "rotation"
)

// PhaseRegistry holds metadata about all turn phases.
// This centralizes phase naming so logging and the perf tracker stay in sync.
type PhaseRegistry struct {
	phases []PhaseInfo
	byID   map[string]PhaseInfo
}

// NewPhaseRegistry creates a registry with all known phases.
func NewPhaseRegistry() *PhaseRegistry {
	reg := &PhaseRegistry{
		byID: make(map[string]PhaseInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all turn phases in execution order.
func (r *PhaseRegistry) registerDefaults() {
	r.Register(PhaseInfo{ID: PhaseGrowth, Name: "Growth", Description: "Each species mutates, grows population or grows body"})
	r.Register(PhaseInfo{ID: PhaseFertility, Name: "Fertility", Description: "Fertile species gain population while food remains"})
	r.Register(PhaseInfo{ID: PhaseFood, Name: "Watering Hole", Description: "Adds or removes food from the shared pool"})
	r.Register(PhaseInfo{ID: PhaseLongNeck, Name: "Long Neck", Description: "Long necks eat first at no cost to the pool"})
	r.Register(PhaseInfo{ID: PhaseFeeding, Name: "Feeding", Description: "Herbivores drink and carnivores hunt until settled"})
	r.Register(PhaseInfo{ID: PhaseScoring, Name: "Scoring", Description: "Food becomes population; starved species die"})
	r.Register(PhaseInfo{ID: PhaseRotation, Name: "Rotation", Description: "First species moves to the back of the turn order"})
}

// Register adds a phase to the registry.
func (r *PhaseRegistry) Register(info PhaseInfo) {
	r.phases = append(r.phases, info)
	r.byID[info.ID] = info
}

// Get returns phase info by ID.
func (r *PhaseRegistry) Get(id string) (PhaseInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a phase ID.
// Falls back to the ID itself if not found.
func (r *PhaseRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all phases in execution order.
func (r *PhaseRegistry) All() []PhaseInfo {
	return r.phases
}
