// Package kernel's observer machinery lets external collaborators (a
// performance reporter, a mock quantum client in tests, a progress UI)
// learn about synchronization barriers and entity lifecycle transitions
// without the kernel importing any reporting package itself. Events use
// the CloudEvents specification for a standardized, transport-agnostic
// envelope.
package kernel

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives notifications from a Subject.
type Observer interface {
	// OnEvent is called synchronously for every matching event. Observers
	// should return quickly; long work belongs on a future scheduled
	// event, not inside a notification callback.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID uniquely identifies this observer for registration
	// bookkeeping and diagnostics.
	ObserverID() string
}

// Subject is implemented by anything that emits kernel lifecycle events.
// Timeline and ParallelTimeline both implement Subject.
type Subject interface {
	RegisterObserver(observer Observer, eventTypes ...string) error
	UnregisterObserver(observer Observer) error
	NotifyObservers(ctx context.Context, event cloudevents.Event) error
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer for diagnostics.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event type vocabulary emitted by the kernel. Reverse-DNS per the
// CloudEvents convention.
const (
	EventTypeEntityInitialized = "net.qsequence.kernel.entity.initialized"
	EventTypeEntityMigrated    = "net.qsequence.kernel.entity.migrated"

	EventTypeTimelineStarted = "net.qsequence.kernel.timeline.started"
	EventTypeTimelineStopped = "net.qsequence.kernel.timeline.stopped"

	EventTypeSyncBarrier = "net.qsequence.kernel.sync.barrier"
)

// FunctionalObserver adapts a plain function to the Observer interface,
// for tests and small ad-hoc subscriptions that don't warrant a type.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string { return f.id }

// subjectMixin is a reusable Subject implementation embedded by Timeline
// and ParallelTimeline. It delivers notifications synchronously, in
// registration order; for a simulation kernel, where entity process
// bodies must themselves run synchronously (spec.md §5), synchronous
// delivery is always correct and is the only mode implemented.
type subjectMixin struct {
	observers []registeredObserver
}

type registeredObserver struct {
	obs        Observer
	eventTypes map[string]struct{}
	info       ObserverInfo
}

func (s *subjectMixin) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrNilEntity
	}
	set := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		set[t] = struct{}{}
	}
	s.observers = append(s.observers, registeredObserver{
		obs:        observer,
		eventTypes: set,
		info: ObserverInfo{
			ID:           observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: time.Now(),
		},
	})
	return nil
}

func (s *subjectMixin) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return nil
	}
	id := observer.ObserverID()
	out := s.observers[:0]
	for _, r := range s.observers {
		if r.info.ID != id {
			out = append(out, r)
		}
	}
	s.observers = out
	return nil
}

func (s *subjectMixin) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	for _, r := range s.observers {
		if len(r.eventTypes) > 0 {
			if _, ok := r.eventTypes[event.Type()]; !ok {
				continue
			}
		}
		if err := r.obs.OnEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *subjectMixin) GetObservers() []ObserverInfo {
	infos := make([]ObserverInfo, len(s.observers))
	for i, r := range s.observers {
		infos[i] = r.info
	}
	return infos
}
