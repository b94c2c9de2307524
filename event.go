package kernel

import "reflect"

// Owner identifies the entity a scheduled Event belongs to. A Timeline
// that only ever runs single-process never needs anything but Local; a
// ParallelTimeline needs to tell apart an event addressed to one of its
// own entities from one addressed to an entity living on another rank,
// which is what Foreign is for (spec.md §9's tagged-variant replacement
// for the original's runtime isinstance checks).
type Owner struct {
	local   Entity
	foreign string
	isLocal bool
}

// LocalOwner wraps an Entity instance already resident on this Timeline.
func LocalOwner(e Entity) Owner { return Owner{local: e, isLocal: true} }

// ForeignOwner names an entity by its registered Name(), to be resolved
// against a remote rank's registry once the event crosses a process
// boundary.
func ForeignOwner(name string) Owner { return Owner{foreign: name} }

// IsLocal reports whether this Owner already carries a resolved Entity.
func (o Owner) IsLocal() bool { return o.isLocal }

// Entity returns the wrapped Entity. Callers must check IsLocal first;
// calling this on a Foreign owner returns nil.
func (o Owner) Entity() Entity {
	if !o.isLocal {
		return nil
	}
	return o.local
}

// Name returns the owner's entity name regardless of which variant it
// is — resolved from the wrapped Entity for Local, or the bare string
// for Foreign.
func (o Owner) Name() string {
	if o.isLocal {
		if o.local == nil {
			return ""
		}
		return o.local.Name()
	}
	return o.foreign
}

// Event is a single scheduled invocation: at Time, call Method on
// Owner's entity with Args. Priority breaks ties between events at the
// same Time (lower priority value runs first); InsertSeq breaks ties
// between equal (Time, Priority) pairs by insertion order, giving the
// EventList a fully deterministic total order as spec.md §3 requires.
type Event struct {
	Time       int64
	Priority   int64
	Owner      Owner
	Method     string
	Args       []any
	InsertSeq  int64
	valid      bool
	heapIndex  int
}

// NewEvent builds an Event for owner, which may be Local or Foreign. Priority defaults to
// 0 (spec.md's default process priority); use NewPriorityEvent for
// non-default priorities.
func NewEvent(time int64, owner Owner, method string, args ...any) *Event {
	return &Event{Time: time, Priority: 0, Owner: owner, Method: method, Args: args, valid: true}
}

// NewPriorityEvent builds an Event with an explicit priority.
func NewPriorityEvent(time int64, priority int64, owner Owner, method string, args ...any) *Event {
	return &Event{Time: time, Priority: priority, Owner: owner, Method: method, Args: args, valid: true}
}

// IsValid reports whether this event is still scheduled to run. Events
// are invalidated lazily (Remove just flips this flag) rather than
// removed from the heap immediately, since a heap doesn't support O(1)
// arbitrary removal; EventList.Pop discards invalid events as it
// encounters them.
func (e *Event) IsValid() bool { return e.valid }

// Invalidate marks the event so EventList.Pop skips it without needing
// to locate and remove it from the heap.
func (e *Event) Invalidate() { e.valid = false }

// Invoke calls Method on the owner's entity via reflection, the same
// dynamic-dispatch process model spec.md §3 describes (an event names a
// method, not a closure, so it can be serialized across the wire to a
// foreign rank and still mean the same thing once resolved against that
// rank's registry).
func (e *Event) Invoke() error {
	owner := e.Owner.Entity()
	if owner == nil {
		return ErrNilEntity
	}
	v := reflect.ValueOf(owner)
	m := v.MethodByName(e.Method)
	if !m.IsValid() {
		return &RuntimeError{Time: e.Time, Owner: e.Owner.Name(), Err: ErrEventNotFound}
	}
	in := make([]reflect.Value, len(e.Args))
	for i, a := range e.Args {
		in[i] = reflect.ValueOf(a)
	}
	out := m.Call(in)
	for _, r := range out {
		if err, ok := r.Interface().(error); ok && err != nil {
			return &RuntimeError{Time: e.Time, Owner: e.Owner.Name(), Err: err}
		}
	}
	return nil
}
