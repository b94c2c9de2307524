package kernel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsequence/pdeskernel/internal/quantum"
	"github.com/qsequence/pdeskernel/internal/transport"
)

type remoteRecordingEntity struct {
	BaseEntity
	mu    sync.Mutex
	fired []int64
}

func (e *remoteRecordingEntity) Tick(args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fired = append(e.fired, e.Timeline.Now())
	return nil
}

func (e *remoteRecordingEntity) snapshot() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int64, len(e.fired))
	copy(out, e.fired)
	return out
}

type countingHook struct {
	mu     sync.Mutex
	flushN int
}

func (c *countingHook) FlushMessageBuffer(ctx context.Context) error {
	c.mu.Lock()
	c.flushN++
	c.mu.Unlock()
	return nil
}
func (c *countingHook) DisconnectFromServer(ctx context.Context) error { return nil }

var _ quantum.ManagerHook = (*countingHook)(nil)

// TestParallelTimeline_S2_CrossPartitionDelivery matches spec.md S2: rank
// 0 schedules an event targeting rank 1's entity B at t=1000 with
// lookahead=500; after the run, B executes it at simulated time 1000.
func TestParallelTimeline_S2_CrossPartitionDelivery(t *testing.T) {
	world := transport.NewLocalWorld(2)
	cfg := Config{Lookahead: 500, StopTime: 2000, Formalism: FormalismKetVector}

	pt0, err := NewParallelTimeline(cfg, NopLogger{}, world[0])
	require.NoError(t, err)
	pt1, err := NewParallelTimeline(cfg, NopLogger{}, world[1])
	require.NoError(t, err)

	b := &remoteRecordingEntity{BaseEntity: BaseEntity{EntityName: "B"}}
	require.NoError(t, pt1.AddEntity(b))
	pt0.RegisterForeignEntity("B", 1)

	done := make(chan error, 2)
	go func() {
		pt0.Schedule(NewEvent(1000, ForeignOwner("B"), "Tick"))
		done <- pt0.Run(context.Background())
	}()
	go func() {
		done <- pt1.Run(context.Background())
	}()

	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1000}, b.snapshot())
}

// TestParallelTimeline_S5_AllEmptyTerminatesOneIteration matches spec.md
// S5 in the parallel case: both ranks start empty, so each contributes
// StopTime and min_time equals StopTime; the protocol terminates with
// zero executions.
func TestParallelTimeline_S5_AllEmptyTerminatesOneIteration(t *testing.T) {
	world := transport.NewLocalWorld(2)
	cfg := Config{Lookahead: 10, StopTime: 1000, Formalism: FormalismKetVector}

	pt0, err := NewParallelTimeline(cfg, NopLogger{}, world[0])
	require.NoError(t, err)
	pt1, err := NewParallelTimeline(cfg, NopLogger{}, world[1])
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() { done <- pt0.Run(context.Background()) }()
	go func() { done <- pt1.Run(context.Background()) }()

	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, int64(0), pt0.RunCounter())
	assert.Equal(t, int64(0), pt1.RunCounter())
}

// TestParallelTimeline_S3_LookaheadViolationPanics matches spec.md S3:
// scheduling a foreign event inside the lookahead window is a
// domain-logic bug and must abort rather than silently corrupt the run.
func TestParallelTimeline_S3_LookaheadViolationPanics(t *testing.T) {
	world := transport.NewLocalWorld(2)
	cfg := Config{Lookahead: 100, StopTime: 1000, Formalism: FormalismKetVector}

	pt0, err := NewParallelTimeline(cfg, NopLogger{}, world[0])
	require.NoError(t, err)
	pt0.RegisterForeignEntity("B", 1)

	assert.Panics(t, func() {
		pt0.Schedule(NewEvent(20, ForeignOwner("B"), "Tick"))
	})
}

// TestParallelTimeline_S6_BarrierFlushCountMatchesSyncCounter matches
// spec.md S6: a mock quantum client's flush count equals sync_counter.
func TestParallelTimeline_S6_BarrierFlushCountMatchesSyncCounter(t *testing.T) {
	world := transport.NewLocalWorld(1)
	cfg := Config{Lookahead: 10, StopTime: 100, Formalism: FormalismKetVector}

	pt, err := NewParallelTimeline(cfg, NopLogger{}, world[0])
	require.NoError(t, err)

	hook := &countingHook{}
	pt.quantumHook = hook

	ent := &remoteRecordingEntity{BaseEntity: BaseEntity{EntityName: "a"}}
	require.NoError(t, pt.AddEntity(ent))
	pt.Schedule(NewEvent(5, LocalOwner(ent), "Tick"))
	pt.Schedule(NewEvent(50, LocalOwner(ent), "Tick"))

	require.NoError(t, pt.Run(context.Background()))

	assert.Equal(t, pt.syncCounter, int64(hook.flushN))
	assert.Greater(t, hook.flushN, 0)
}

// TestParallelTimeline_Run_ReportsProgressOncePerBarrier exercises the
// barrier-level progress callback: with ShowProgress set and throttling
// disabled, exactly one "progress" log line should be emitted per
// completed barrier (syncCounter).
func TestParallelTimeline_Run_ReportsProgressOncePerBarrier(t *testing.T) {
	world := transport.NewLocalWorld(1)
	cfg := Config{Lookahead: 10, StopTime: 100, Formalism: FormalismKetVector, ShowProgress: true}

	log := &capturingLogger{}
	pt, err := NewParallelTimeline(cfg, log, world[0])
	require.NoError(t, err)
	pt.progressInterval = 0 // disable wall-clock throttling for this assertion

	ent := &remoteRecordingEntity{BaseEntity: BaseEntity{EntityName: "a"}}
	require.NoError(t, pt.AddEntity(ent))
	pt.Schedule(NewEvent(5, LocalOwner(ent), "Tick"))
	pt.Schedule(NewEvent(50, LocalOwner(ent), "Tick"))

	require.NoError(t, pt.Run(context.Background()))

	assert.Len(t, log.infos, int(pt.syncCounter))
	for _, rec := range log.infos {
		assert.Equal(t, "progress", rec[0])
	}
}
