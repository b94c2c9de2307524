package kernel

import (
	"errors"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent aliases the SDK's Event type for callers that don't want to
// import cloudevents directly.
type CloudEvent = cloudevents.Event

// ErrNoSubjectForEventEmission is returned by helpers that need a Subject
// to publish through but were not given one (e.g. a Timeline constructed
// without NewTimeline's default wiring).
var ErrNoSubjectForEventEmission = errors.New("kernel: no subject available for event emission")

// EntityLifecyclePayload describes an entity's init/migration transition.
type EntityLifecyclePayload struct {
	Entity    string    `json:"entity"`
	Rank      int       `json:"rank"`
	Action    string    `json:"action"` // "initialized" | "migrated_to_async"
	Timestamp time.Time `json:"timestamp"`
}

// NewEntityLifecycleEvent builds the CloudEvent wrapping an
// EntityLifecyclePayload.
func NewEntityLifecycleEvent(source string, payload EntityLifecyclePayload) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(generateEventID())
	evt.SetSource(source)
	switch payload.Action {
	case "migrated_to_async":
		evt.SetType(EventTypeEntityMigrated)
	default:
		evt.SetType(EventTypeEntityInitialized)
	}
	evt.SetTime(payload.Timestamp)
	evt.SetSpecVersion(cloudevents.VersionV1)
	_ = evt.SetData(cloudevents.ApplicationJSON, payload)
	evt.SetExtension("entity", payload.Entity)
	evt.SetExtension("rank", payload.Rank)
	return evt
}

// SyncBarrierPayload reports on one completed conservative-window barrier
// of a ParallelTimeline: the counters a post-run performance report or a
// test double (spec.md §8/S6) cares about.
type SyncBarrierPayload struct {
	Rank             int           `json:"rank"`
	SyncCounter      int64         `json:"syncCounter"`
	ExchangeCounter  int64         `json:"exchangeCounter"`
	MinTime          int64         `json:"minTime"`
	SyncTime         int64         `json:"syncTime"`
	EventsExecuted   int64         `json:"eventsExecuted"`
	ComputingTime    time.Duration `json:"computingTime"`
	CommunicationNs  [3]int64      `json:"communicationTimeNs"`
	FlushInvoked     bool          `json:"flushInvoked"`
	Timestamp        time.Time     `json:"timestamp"`
}

// NewSyncBarrierEvent builds the CloudEvent wrapping a SyncBarrierPayload.
func NewSyncBarrierEvent(source string, payload SyncBarrierPayload) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(generateEventID())
	evt.SetSource(source)
	evt.SetType(EventTypeSyncBarrier)
	evt.SetTime(payload.Timestamp)
	evt.SetSpecVersion(cloudevents.VersionV1)
	_ = evt.SetData(cloudevents.ApplicationJSON, payload)
	evt.SetExtension("rank", payload.Rank)
	return evt
}

// generateEventID returns a time-ordered unique CloudEvent ID using
// UUIDv7, falling back to v4 if the clock-based generator ever errors.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent runs the SDK's structural validation over an event
// built by this package; useful in tests asserting observer payloads stay
// spec-compliant.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

// HandleEventEmissionError centralizes the "no subject, don't care"
// pattern: a Timeline with no registered observers still needs to call
// NotifyObservers (so adding an observer later doesn't require restart),
// and that call is a deliberate no-op, not a bug to log loudly.
func HandleEventEmissionError(err error, logger Logger, rank int, eventType string) bool {
	if errors.Is(err, ErrNoSubjectForEventEmission) {
		return true
	}
	if logger != nil {
		logger.Debug("failed to emit kernel event", "rank", rank, "eventType", eventType, "error", err)
		return true
	}
	return false
}
