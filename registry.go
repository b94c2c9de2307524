package kernel

// Registry is a name-indexed index of Entity instances, grounded on the
// teacher's ServiceRegistry — a plain map plus thin accessor methods
// rather than a bespoke data structure. A Timeline uses it to resolve a
// Foreign Owner back to a local Entity once an event crosses from
// another rank, and to run Init() over every entity in the order they
// were registered.
type Registry struct {
	byName map[string]Entity
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Entity)}
}

// Add registers e under its own Name(). Re-registering a distinct entity
// under a name already present is a configuration error
// (ErrEntityNameCollision); re-registering the exact same *Entity value
// is a harmless no-op, since a domain entity may legally appear under
// more than one parent-child wiring pass.
func (r *Registry) Add(e Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	name := e.Name()
	if name == "" {
		return ErrEntityNameRequired
	}
	if existing, ok := r.byName[name]; ok {
		if existing == e {
			return nil
		}
		return ErrEntityNameCollision
	}
	r.byName[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get resolves a name to its registered Entity.
func (r *Registry) Get(name string) (Entity, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// Resolve turns a Foreign Owner into a Local one by looking up its name
// in this Registry, returning the original Owner unchanged if it was
// already Local.
func (r *Registry) Resolve(o Owner) (Owner, error) {
	if o.IsLocal() {
		return o, nil
	}
	e, err := r.Get(o.Name())
	if err != nil {
		return Owner{}, err
	}
	return LocalOwner(e), nil
}

// All returns every registered entity in registration order, the
// ordering Timeline.Init relies on (spec.md §3: entities initialize in
// the order they were added, not map iteration order).
func (r *Registry) All() []Entity {
	out := make([]Entity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports how many entities are registered.
func (r *Registry) Len() int { return len(r.order) }
