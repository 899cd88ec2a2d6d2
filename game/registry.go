package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wateringhole/components"
	"github.com/pthm-cable/wateringhole/telemetry"
	"github.com/pthm-cable/wateringhole/traits"
)

// Registry owns every living species, the watering hole and the turn counter.
// Species live as components in an ECS world; order holds their turn order.
type Registry struct {
	world   *ecs.World
	species *ecs.Map1[components.Species]
	filter  *ecs.Filter1[components.Species]

	order    []uint32
	entities map[uint32]ecs.Entity
	nextID   uint32

	food       int
	turn       int
	spawnIndex int
}

// NewRegistry creates an empty registry holding food units.
func NewRegistry(food, spawnIndex int) *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world:      world,
		species:    ecs.NewMap1[components.Species](world),
		filter:     ecs.NewFilter1[components.Species](world),
		entities:   make(map[uint32]ecs.Entity),
		food:       max(0, food),
		spawnIndex: spawnIndex,
	}
}

// Order returns a snapshot of species IDs in turn order.
func (r *Registry) Order() []uint32 {
	out := make([]uint32, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the species with the given ID, or nil.
func (r *Registry) Get(id uint32) *components.Species {
	e, ok := r.entities[id]
	if !ok {
		return nil
	}
	return r.species.Get(e)
}

// Spawn creates a species descended from parentID and inserts it at the
// configured spawn index (the front when the registry is empty).
func (r *Registry) Spawn(parentID uint32, slots traits.Slots) uint32 {
	r.nextID++
	id := r.nextID

	sp := components.NewSpecies(id, parentID, r.turn, slots)
	r.entities[id] = r.species.NewEntity(&sp)

	idx := min(r.spawnIndex, len(r.order))
	r.order = append(r.order, 0)
	copy(r.order[idx+1:], r.order[idx:])
	r.order[idx] = id
	return id
}

// Remove deletes a species from the world and the turn order.
func (r *Registry) Remove(id uint32) {
	e, ok := r.entities[id]
	if !ok {
		return
	}
	r.world.RemoveEntity(e)
	delete(r.entities, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Food returns the watering hole food pool.
func (r *Registry) Food() int { return r.food }

// SetFood replaces the watering hole food pool.
func (r *Registry) SetFood(n int) { r.food = n }

// Turn returns the current turn number.
func (r *Registry) Turn() int { return r.turn }

// Len returns the number of living species.
func (r *Registry) Len() int { return len(r.order) }

// advance moves to the next turn.
func (r *Registry) advance() { r.turn++ }

// Rotate moves the first species to the back of the turn order.
func (r *Registry) Rotate() {
	if len(r.order) < 2 {
		return
	}
	first := r.order[0]
	copy(r.order, r.order[1:])
	r.order[len(r.order)-1] = first
}

// Tally counts trait instances across all living species.
func (r *Registry) Tally() traits.Tally {
	t := make(traits.Tally)
	for _, id := range r.order {
		t.AddSlots(r.Get(id).Traits)
	}
	return t
}

// Records returns the observable state of every species in turn order.
func (r *Registry) Records() []telemetry.SpeciesRecord {
	out := make([]telemetry.SpeciesRecord, 0, len(r.order))
	for _, id := range r.order {
		s := r.Get(id)
		out = append(out, telemetry.SpeciesRecord{
			ID:         s.ID,
			ParentID:   s.ParentID,
			Age:        s.Age,
			Traits:     s.Traits,
			Population: s.Population,
			BodySize:   s.BodySize,
			PhaseFood:  s.PhaseFood,
			TotalFood:  s.TotalFood,
			Satisfied:  s.Satisfied,
		})
	}
	return out
}

// worldCount counts species components by querying the ECS world.
func (r *Registry) worldCount() int {
	n := 0
	query := r.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

// checkConsistency verifies the turn order and the world agree.
func (r *Registry) checkConsistency() error {
	if n := r.worldCount(); n != len(r.order) {
		return fmt.Errorf("world holds %d species but turn order lists %d", n, len(r.order))
	}
	seen := make(map[uint32]bool, len(r.order))
	for _, id := range r.order {
		if seen[id] {
			return fmt.Errorf("species %d listed twice in turn order", id)
		}
		seen[id] = true
		if _, ok := r.entities[id]; !ok {
			return fmt.Errorf("species %d in turn order has no entity", id)
		}
	}
	return nil
}
