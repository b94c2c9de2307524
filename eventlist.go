package kernel

import "container/heap"

// EventList is the Timeline's priority queue: a binary min-heap ordered
// by (Time, Priority, InsertSeq), matching spec.md §3's requirement that
// two events at identical simulated time still execute in a
// deterministic, reproducible order. Removal is lazy — Remove just
// invalidates the event in place, since a binary heap has no efficient
// way to delete an arbitrary interior element, and Pop discards invalid
// entries as it encounters them rather than paying for a real removal
// up front.
type EventList struct {
	h      eventHeap
	nextID int64
}

// NewEventList returns an empty EventList.
func NewEventList() *EventList {
	el := &EventList{}
	heap.Init(&el.h)
	return el
}

// Push schedules e, marking it valid and always assigning it the next
// insertion sequence number (replacing any earlier one), which orders it
// after its equal-time, equal-priority siblings.
func (el *EventList) Push(e *Event) {
	e.valid = true
	e.InsertSeq = el.nextID
	el.nextID++
	heap.Push(&el.h, e)
}

// Pop removes and returns the earliest valid event, or nil if the list
// is empty of valid events. Invalid (removed) events encountered along
// the way are discarded silently.
func (el *EventList) Pop() *Event {
	for el.h.Len() > 0 {
		e := heap.Pop(&el.h).(*Event)
		if e.valid {
			return e
		}
	}
	return nil
}

// Peek returns the earliest valid event without removing it, or nil.
// Invalid events at the top are popped and discarded so Peek's result is
// consistent with what the next Pop would return.
func (el *EventList) Peek() *Event {
	for el.h.Len() > 0 {
		top := el.h[0]
		if top.valid {
			return top
		}
		heap.Pop(&el.h)
	}
	return nil
}

// TopTime returns the earliest valid event's Time, or stopTime if the
// list is empty — the fallback ParallelTimeline's window computation
// uses so an empty local queue never blocks the global min below the
// run's declared end.
func (el *EventList) TopTime(stopTime int64) int64 {
	if e := el.Peek(); e != nil {
		return e.Time
	}
	return stopTime
}

// Len reports the number of entries still in the heap, including
// not-yet-discarded invalid ones; it is not the count of events that
// will actually run.
func (el *EventList) Len() int { return el.h.Len() }

// Remove invalidates e so Pop/Peek skip it. Safe to call even if e has
// already been popped or invalidated.
func (el *EventList) Remove(e *Event) {
	e.valid = false
}

// UpdateTime reschedules e to newTime, which must be >= the Timeline's
// current time (enforced by the caller — EventList has no notion of
// "now"). Because the heap has no efficient decrease/increase-key for
// std container/heap without the element's current index, UpdateTime
// invalidates the old entry and pushes a fresh one.
func (el *EventList) UpdateTime(e *Event, newTime int64) *Event {
	e.valid = false
	next := &Event{
		Time:      newTime,
		Priority:  e.Priority,
		Owner:     e.Owner,
		Method:    e.Method,
		Args:      e.Args,
		valid:     true,
		InsertSeq: el.nextID,
	}
	el.nextID++
	heap.Push(&el.h, next)
	return next
}

// eventHeap implements container/heap.Interface over *Event, ordered by
// (Time, Priority, InsertSeq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].InsertSeq < h[j].InsertSeq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
