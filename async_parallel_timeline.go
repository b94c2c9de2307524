package kernel

// AsyncParallelTimeline is the relaxed-synchronization variant spec.md
// §4.3 describes for entities that tolerate lookahead-delayed delivery:
// rather than being bound by the strict conservative window every cycle,
// its TopTime reports local_top + lookahead, letting a ParallelTimeline
// treat it as "never the blocking minimum" as long as its own queue
// isn't empty. This absorbs interactive-but-not-causally-critical
// entities (e.g. periodic housekeeping) without forcing every worker to
// wait on them at every barrier.
//
// AsyncParallelTimeline owns its own EventList and registry slice, but
// is driven from inside its parent ParallelTimeline's Run loop rather
// than having a Run of its own: runUntil is called once per barrier,
// after the parent has computed syncTime, and executes every async
// event up to that bound.
type AsyncParallelTimeline struct {
	events    *EventList
	entities  map[string]Entity
	lookahead int64

	timeNow      int64
	runCounter   int64
	scheduleCnt  int64
}

// NewAsyncParallelTimeline returns an empty async partition with the
// given lookahead (normally the same lookahead as its parent
// ParallelTimeline).
func NewAsyncParallelTimeline(lookahead int64) *AsyncParallelTimeline {
	return &AsyncParallelTimeline{
		events:    NewEventList(),
		entities:  make(map[string]Entity),
		lookahead: lookahead,
	}
}

// topTime returns this partition's contribution to the global minimum:
// local_top + lookahead per spec.md §4.3, or stopTime if its queue is
// empty so an idle async partition never artificially lowers the global
// minimum below what it would otherwise be.
func (a *AsyncParallelTimeline) topTime(stopTime int64) int64 {
	peek := a.events.Peek()
	if peek == nil {
		return stopTime
	}
	relaxed := peek.Time + a.lookahead
	if relaxed > stopTime {
		return stopTime
	}
	return relaxed
}

// Now returns the async partition's own simulated time.
func (a *AsyncParallelTimeline) Now() int64 { return a.timeNow }

// Schedule pushes e onto the async partition's own event list. Owners
// must already be resolved to entities local to this partition (async
// entities are never routed to by name across a rank boundary — they
// are a rank-local relaxation, not a distinct worker).
func (a *AsyncParallelTimeline) Schedule(e *Event) {
	a.events.Push(e)
	a.scheduleCnt++
}

// MoveEntityToAsync migrates e from its current Timeline onto this async
// partition (SPEC_FULL.md Supplemented Features: async-entity
// migration). Only future scheduling changes: e.ChangeTimeline is
// invoked so subsequent Schedule calls made by e's own process bodies
// land on the parent ParallelTimeline as before, while e's *inbound*
// events are now expected to run through this partition's runUntil
// instead of the parent's main execute phase.
func MoveEntityToAsync(e Entity, async *AsyncParallelTimeline, newTL *Timeline) error {
	if e == nil {
		return ErrNilEntity
	}
	async.entities[e.Name()] = e
	if changer, ok := e.(TimelineChanger); ok {
		changer.ChangeTimeline(newTL)
	}
	return nil
}

// runUntil executes every valid async event with Time < syncTime,
// mirroring Timeline.Run's execute-phase body exactly (spec.md §4.3:
// "otherwise identical").
func (a *AsyncParallelTimeline) runUntil(syncTime int64) error {
	for {
		peek := a.events.Peek()
		if peek == nil || peek.Time >= syncTime {
			return nil
		}
		e := a.events.Pop()
		if e == nil {
			return nil
		}
		if !e.valid {
			continue
		}
		assertMonotone(a.timeNow, e.Time)
		a.timeNow = e.Time
		if err := e.Invoke(); err != nil {
			return err
		}
		a.runCounter++
	}
}

// RunCounter returns the number of async events executed so far.
func (a *AsyncParallelTimeline) RunCounter() int64 { return a.runCounter }

// ScheduleCounter returns the number of events ever pushed onto this
// partition.
func (a *AsyncParallelTimeline) ScheduleCounter() int64 { return a.scheduleCnt }
