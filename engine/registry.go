package engine

import (
	"sort"
	"sync"
)

// entityState is the controllable state of one scene object. The position is
// mutated only by the scheduler's tick loop and submit path; readers always
// get a snapshot under the registry lock.
type entityState struct {
	pos  Position
	move *activeMove
}

// Registry maps entity names to their controllable state. It is an explicit
// owned collection handed to the scheduler and ingestor, so independent
// engine instances can run side by side.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*entityState
}

// NewRegistry creates a registry with the named entities, all at the origin.
func NewRegistry(names ...string) *Registry {
	r := &Registry{entities: make(map[string]*entityState)}
	for _, n := range names {
		r.entities[n] = &entityState{}
	}
	return r
}

// Add registers an entity at the given position. An existing entity is reset:
// its position is overwritten and any in-flight move is dropped.
func (r *Registry) Add(name string, pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[name] = &entityState{pos: pos}
}

// Position returns a snapshot of the entity's current position.
func (r *Registry) Position(name string) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entities[name]
	if !ok {
		return Position{}, false
	}
	return ent.pos, true
}

// Has reports whether the entity is controllable by this engine instance.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entities[name]
	return ok
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entities))
	for n := range r.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Moving reports whether the entity currently has an active move.
func (r *Registry) Moving(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entities[name]
	return ok && ent.move != nil
}
