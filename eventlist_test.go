package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopEntity struct{ name string }

func (e *noopEntity) Name() string { return e.name }
func (e *noopEntity) Init() error  { return nil }

func (e *noopEntity) Tick(args ...any) error { return nil }

func TestEventList_OrdersByTimeThenPriorityThenInsertion(t *testing.T) {
	el := NewEventList()
	owner := LocalOwner(&noopEntity{name: "a"})

	e1 := NewEvent(10, owner, "Tick")
	e2 := NewEvent(5, owner, "Tick")
	e3 := NewEvent(20, owner, "Tick")
	e4 := NewEvent(5, owner, "Tick")

	el.Push(e1)
	el.Push(e2)
	el.Push(e3)
	el.Push(e4)

	var order []*Event
	for el.Len() > 0 {
		order = append(order, el.Pop())
	}

	require.Len(t, order, 4)
	assert.Same(t, e2, order[0])
	assert.Same(t, e4, order[1])
	assert.Same(t, e1, order[2])
	assert.Same(t, e3, order[3])
}

func TestEventList_PriorityBreaksTimeTie(t *testing.T) {
	el := NewEventList()
	owner := LocalOwner(&noopEntity{name: "a"})

	low := NewPriorityEvent(10, 5, owner, "Tick")
	high := NewPriorityEvent(10, 1, owner, "Tick")

	el.Push(low)
	el.Push(high)

	assert.Same(t, high, el.Pop())
	assert.Same(t, low, el.Pop())
}

func TestEventList_RemoveIsIdempotentAndSkipped(t *testing.T) {
	el := NewEventList()
	owner := LocalOwner(&noopEntity{name: "a"})

	e1 := NewEvent(5, owner, "Tick")
	e2 := NewEvent(10, owner, "Tick")
	el.Push(e1)
	el.Push(e2)

	el.Remove(e1)
	el.Remove(e1) // idempotent

	assert.Same(t, e2, el.Pop())
	assert.Nil(t, el.Pop())
}

func TestEventList_PeekDoesNotRemove(t *testing.T) {
	el := NewEventList()
	owner := LocalOwner(&noopEntity{name: "a"})
	e1 := NewEvent(5, owner, "Tick")
	el.Push(e1)

	assert.Same(t, e1, el.Peek())
	assert.Same(t, e1, el.Peek())
	assert.Equal(t, 1, el.Len())
}

func TestEventList_UpdateTimeRescheduleRoundTrip(t *testing.T) {
	el := NewEventList()
	owner := LocalOwner(&noopEntity{name: "a"})
	e1 := NewEvent(5, owner, "Tick")
	el.Push(e1)

	e2 := el.UpdateTime(e1, 50)
	e3 := el.UpdateTime(e2, 99)

	got := el.Pop()
	require.NotNil(t, got)
	assert.Equal(t, int64(99), got.Time)
	assert.Same(t, e3, got)
}

func TestEventList_TopTimeFallsBackToStopTimeWhenEmpty(t *testing.T) {
	el := NewEventList()
	assert.Equal(t, int64(1000), el.TopTime(1000))
}
