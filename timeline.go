package kernel

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/qsequence/pdeskernel/internal/quantum"
)

// Timeline is the sequential, single-worker event loop (spec.md §4.2):
// entities register, Init runs once in registration order, then Run
// pops and executes the earliest valid event until the queue empties or
// StopTime is reached. ParallelTimeline embeds one of these per worker
// as its local execution engine and layers the conservative window
// protocol on top.
type Timeline struct {
	subjectMixin

	events   *EventList
	registry *Registry

	timeNow  int64
	stopTime int64

	scheduleCounter int64
	runCounter      int64

	rng         *RNG
	quantumHook quantum.ManagerHook
	logger      Logger
	source      string

	showProgress     bool
	progressInterval time.Duration
	lastProgressAt   time.Time

	initialized bool
}

// NewTimeline constructs a Timeline from Config. If cfg.HasQuantumManager
// is true the returned Timeline's quantum hook is a retrying HTTP
// client; otherwise it is internal/quantum.NoOp, matching spec.md §6's
// "both null disables the client" configuration contract.
func NewTimeline(cfg Config, logger Logger) (*Timeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = randomSeed()
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}
	var hook quantum.ManagerHook = quantum.NoOp{}
	if cfg.HasQuantumManager() {
		hook = quantum.NewClient(cfg.QMIP, cfg.QMPort)
	}
	return &Timeline{
		events:           NewEventList(),
		registry:         NewRegistry(),
		stopTime:         cfg.StopTime,
		rng:              NewRNG(seed),
		quantumHook:      hook,
		logger:           logger,
		source:           "urn:kernel:timeline",
		showProgress:     cfg.ShowProgress,
		progressInterval: cfg.ProgressInterval,
	}, nil
}

// Seed reinitializes the timeline's shared RNG (spec.md §4.2's `seed(n)`
// operation), discarding whatever stream position the previous seed had
// reached. Safe to call before Run but not expected to be called mid-run:
// changing the stream after entities have already drawn from it breaks
// reproducibility rather than restoring it.
func (t *Timeline) Seed(n int64) {
	t.rng = NewRNG(n)
}

// Now returns the current simulated time.
func (t *Timeline) Now() int64 { return t.timeNow }

// StopTime returns the configured stop time.
func (t *Timeline) StopTime() int64 { return t.stopTime }

// RunCounter returns the number of events executed so far.
func (t *Timeline) RunCounter() int64 { return t.runCounter }

// ScheduleCounter returns the number of events ever pushed (including
// ones later invalidated).
func (t *Timeline) ScheduleCounter() int64 { return t.scheduleCounter }

// RNG returns this Timeline's per-worker random source.
func (t *Timeline) RNG() *RNG { return t.rng }

// AddEntity registers e, wiring its Timeline back-reference if it
// implements TimelineAware.
func (t *Timeline) AddEntity(e Entity) error {
	if err := t.registry.Add(e); err != nil {
		return err
	}
	if aware, ok := e.(TimelineAware); ok {
		aware.SetTimeline(t)
	}
	return nil
}

// Entity resolves a registered entity by name.
func (t *Timeline) Entity(name string) (Entity, error) {
	return t.registry.Get(name)
}

// Schedule pushes e onto the local event list and increments the
// schedule counter. e.Owner must already be Local; ParallelTimeline
// overrides this with routing logic for Foreign owners.
func (t *Timeline) Schedule(e *Event) {
	t.events.Push(e)
	t.scheduleCounter++
}

// RemoveEvent invalidates e so it is skipped at pop time (spec.md §8
// property 5).
func (t *Timeline) RemoveEvent(e *Event) {
	t.events.Remove(e)
}

// UpdateEventTime reschedules e to newTime, which must be >= Now().
// Rescheduling to a time in the past is a caller bug, reported as
// ErrRescheduleInPast rather than silently clamped.
func (t *Timeline) UpdateEventTime(e *Event, newTime int64) (*Event, error) {
	if newTime < t.timeNow {
		return nil, ErrRescheduleInPast
	}
	next := t.events.UpdateTime(e, newTime)
	t.scheduleCounter++
	return next, nil
}

// Init invokes Init() on every registered entity exactly once, in
// registration order (spec.md §3), and emits an EntityLifecyclePayload
// for each. Init must only be called once per Timeline; calling it again
// is a no-op.
func (t *Timeline) Init(ctx context.Context) error {
	if t.initialized {
		return nil
	}
	for _, e := range t.registry.All() {
		if err := e.Init(); err != nil {
			return &RuntimeError{Time: t.timeNow, Owner: e.Name(), Err: err}
		}
		t.emitLifecycle(ctx, e.Name(), "initialized")
	}
	t.initialized = true
	return nil
}

// Run executes the sequential main loop described in spec.md §4.2: pop
// the minimum event, stop and re-schedule it if its time has reached
// StopTime, skip invalid events, otherwise assert monotone time and run
// it. Run returns when the event list is exhausted or StopTime is
// reached.
func (t *Timeline) Run(ctx context.Context) error {
	if !t.initialized {
		if err := t.Init(ctx); err != nil {
			return err
		}
	}
	_ = t.NotifyObservers(ctx, NewTimelineEvent(t.source, EventTypeTimelineStarted, t.timeNow))

	for {
		e := t.events.Pop()
		if e == nil {
			break
		}
		if e.Time >= t.stopTime {
			t.events.Push(e)
			break
		}
		if !e.valid {
			continue
		}
		assertMonotone(t.timeNow, e.Time)
		t.timeNow = e.Time
		if err := e.Invoke(); err != nil {
			return err
		}
		t.runCounter++
		t.reportProgress(t.timeNow)
	}

	_ = t.NotifyObservers(ctx, NewTimelineEvent(t.source, EventTypeTimelineStopped, t.timeNow))
	return nil
}

// Stop sets StopTime to Now(), causing Run's loop to exit at its next
// iteration boundary rather than immediately.
func (t *Timeline) Stop() {
	t.stopTime = t.timeNow
}

// ApplyProgressConfig applies a hot-reloaded Config's non-structural
// progress-reporting fields (ShowProgress, ProgressInterval) to a
// running Timeline. Callers typically invoke this with each Config
// delivered on WatchConfig's changes channel; structural fields in cfg
// are ignored here since internal/configwatch already rejects reloads
// that touch them before they ever reach this method.
func (t *Timeline) ApplyProgressConfig(cfg Config) {
	t.showProgress = cfg.ShowProgress
	if cfg.ProgressInterval > 0 {
		t.progressInterval = cfg.ProgressInterval
	}
}

// reportProgress emits a textual progress message through the
// timeline's logger when ShowProgress is set, standing in for the
// original's tqdm bar (spec.md SUPPLEMENTED FEATURES). Calls are
// throttled to at most once per ProgressInterval of wall-clock time so
// a run with many small events doesn't flood the log.
func (t *Timeline) reportProgress(now int64) {
	if !t.showProgress {
		return
	}
	if !t.lastProgressAt.IsZero() && time.Since(t.lastProgressAt) < t.progressInterval {
		return
	}
	t.lastProgressAt = time.Now()
	t.logger.Info("progress", "time", now, "stop_time", t.stopTime)
}

// Teardown disconnects the quantum-manager hook. Call once after Run
// returns.
func (t *Timeline) Teardown(ctx context.Context) error {
	return t.quantumHook.DisconnectFromServer(ctx)
}

func (t *Timeline) emitLifecycle(ctx context.Context, entity, action string) {
	evt := NewEntityLifecycleEvent(t.source, EntityLifecyclePayload{
		Entity:    entity,
		Action:    action,
		Timestamp: time.Now(),
	})
	if err := t.NotifyObservers(ctx, evt); err != nil {
		HandleEventEmissionError(err, t.logger, 0, evt.Type())
	}
}

// NewTimelineEvent builds the simple started/stopped lifecycle
// CloudEvents that don't warrant their own payload struct.
func NewTimelineEvent(source, eventType string, atTime int64) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(generateEventID())
	evt.SetSource(source)
	evt.SetType(eventType)
	evt.SetTime(time.Now())
	evt.SetSpecVersion(cloudevents.VersionV1)
	_ = evt.SetData(cloudevents.ApplicationJSON, map[string]int64{"time": atTime})
	return evt
}

// assertMonotone panics if the timeline's clock would regress, per
// spec.md §7: a monotone-time violation is a programming bug (for
// example domain code scheduling an event before Now()) and must abort
// the worker immediately rather than silently corrupt the run.
func assertMonotone(now, next int64) {
	if next < now {
		panic("kernel: monotone time invariant violated")
	}
}
