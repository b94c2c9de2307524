package kernel

// Entity is anything that schedules and handles Events on a Timeline: a
// node, a memory, a channel, a protocol instance. The kernel never
// interprets what an entity does — it only needs a name (for routing
// foreign events across ranks, spec.md §4) and an initialization hook
// called once, in registration order, before a Timeline starts running.
type Entity interface {
	// Name returns the entity's globally-unique identifier. Two entities
	// registered under the same name on the same Timeline is a
	// configuration error (ErrEntityNameCollision); the same name used
	// by entities on two different ranks is how cross-rank event
	// addressing resolves a Foreign owner back to a local entity.
	Name() string

	// Init runs once, after every entity on this Timeline has been
	// registered but before Run starts executing events. Entities that
	// need to look up sibling entities by name (spec.md's upper/lower
	// protocol wiring) do it here, not in a constructor, since the
	// registry isn't guaranteed complete until every entity is added.
	Init() error
}

// TimelineAware is implemented by entities that need a back-reference to
// the Timeline scheduling them, e.g. to call Schedule from inside a
// process body.
type TimelineAware interface {
	SetTimeline(tl *Timeline)
}

// TimelineChanger is implemented by entities capable of being migrated
// from a ParallelTimeline's main loop into an AsyncParallelTimeline
// partition via MoveEntityToAsync (spec.md's async-entity migration, SPEC_FULL.md Supplemented
// Features). Migration only changes which loop schedules the entity's
// future events; the entity itself is not recreated.
type TimelineChanger interface {
	ChangeTimeline(newTL *Timeline)
}

// BaseEntity is the embeddable default Entity implementation, grounding
// the common fields every concrete entity in a real deployment of this
// kernel needs: a name, a back-reference to its Timeline, and the
// parent/upper-protocol links SPEC_FULL.md's domain layer wires on top
// of it. It satisfies Entity, TimelineAware and TimelineChanger so a
// concrete entity type can embed it and only add domain-specific process
// methods.
type BaseEntity struct {
	EntityName     string
	Timeline       *Timeline
	Parents        []Entity
	UpperProtocols []any
}

func NewBaseEntity(name string, tl *Timeline) *BaseEntity {
	return &BaseEntity{EntityName: name, Timeline: tl}
}

func (e *BaseEntity) Name() string { return e.EntityName }

// Init is a no-op default; concrete entities override it when they have
// setup work, and may still call BaseEntity.Init() first for symmetry
// with the teacher's embedding style.
func (e *BaseEntity) Init() error { return nil }

func (e *BaseEntity) SetTimeline(tl *Timeline) { e.Timeline = tl }

func (e *BaseEntity) ChangeTimeline(newTL *Timeline) { e.Timeline = newTL }

// AddParent registers a parent entity, mirroring the domain layer's
// composition of entities (e.g. a memory's parent node) without the
// kernel needing to know what a "parent" means beyond bookkeeping.
func (e *BaseEntity) AddParent(parent Entity) {
	e.Parents = append(e.Parents, parent)
}
