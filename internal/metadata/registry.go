package metadata

import "sync"

type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
	}
}

// GetEntity returns the entity with the given name, or nil.
func (r *Registry) GetEntity(name string) *Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[name]
}

// AllEntities returns all registered entities in catalog order.
func (r *Registry) AllEntities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entities := make([]*Entity, 0, len(r.order))
	for _, name := range r.order {
		entities = append(entities, r.entities[name])
	}
	return entities
}

// Load replaces all entities in the registry.
// Called during startup and after admin mutations.
func (r *Registry) Load(entities []*Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = make(map[string]*Entity, len(entities))
	r.order = make([]string, 0, len(entities))
	for _, e := range entities {
		if _, dup := r.entities[e.Name]; !dup {
			r.order = append(r.order, e.Name)
		}
		r.entities[e.Name] = e
	}
}

// Bootstrap returns the Metadata Provider payload for the current catalog.
func (r *Registry) Bootstrap(alias string) *Bootstrap {
	return BootstrapFromEntities(r.AllEntities(), alias)
}
