package kernel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/qsequence/pdeskernel/internal/transport"
)

// ParallelTimeline is the distributed variant of Timeline (spec.md
// §4.3): it wraps a local Timeline as its execution engine and adds
// foreign-entity routing, per-peer outbound event buffers, and the
// conservative time-window synchronization protocol driven by a
// transport.Transport collective implementation.
type ParallelTimeline struct {
	*Timeline

	rank      int
	worldSize int
	lookahead int64

	foreignEntities map[string]int // entity name -> owning rank
	eventBuffer     [][]*Event     // eventBuffer[r]: events to ship to rank r next exchange

	bufferMinTS int64 // spec.md SUPPLEMENTED FEATURES: fast-path lower bound without scanning buffers

	transport transport.Transport
	async     *AsyncParallelTimeline

	syncCounter     int64
	exchangeCounter int64
	eventCounter    int64
	computingTime   time.Duration
	commTime1       time.Duration
	commTime2       time.Duration
	commTime3       time.Duration
}

// NewParallelTimeline builds a ParallelTimeline for one worker. lookahead
// must be > 0 (ErrNonPositiveLookahead). tr.Rank() and tr.WorldSize()
// become this timeline's rank and world size.
func NewParallelTimeline(cfg Config, logger Logger, tr transport.Transport) (*ParallelTimeline, error) {
	if cfg.Lookahead <= 0 {
		return nil, ErrNonPositiveLookahead
	}
	if tr.WorldSize() <= 0 {
		return nil, ErrInvalidWorldSize
	}
	if tr.Rank() < 0 || tr.Rank() >= tr.WorldSize() {
		return nil, ErrInvalidRank
	}
	base, err := NewTimeline(cfg, RankLoggerDecorator(logger, tr.Rank()))
	if err != nil {
		return nil, err
	}
	base.source = "urn:kernel:parallel-timeline"

	pt := &ParallelTimeline{
		Timeline:        base,
		rank:            tr.Rank(),
		worldSize:       tr.WorldSize(),
		lookahead:       cfg.Lookahead,
		foreignEntities: make(map[string]int),
		eventBuffer:     make([][]*Event, tr.WorldSize()),
		bufferMinTS:     maxSimTime,
		transport:       tr,
	}
	return pt, nil
}

// Rank returns this worker's index.
func (p *ParallelTimeline) Rank() int { return p.rank }

// WorldSize returns the total number of workers.
func (p *ParallelTimeline) WorldSize() int { return p.worldSize }

// RegisterForeignEntity records that name is owned by rank r, so future
// Schedule calls addressed to that name are routed into the outbound
// buffer for r instead of the local event list.
func (p *ParallelTimeline) RegisterForeignEntity(name string, r int) {
	p.foreignEntities[name] = r
}

// AttachAsync opts this ParallelTimeline into running an
// AsyncParallelTimeline alongside its main loop (SPEC_FULL.md
// Supplemented Features: async-entity migration). Events passed to
// Schedule whose owner was moved to the async partition via
// MoveEntityToAsync are queued and executed by async instead of by this
// timeline's own event list; events absorbed from other ranks at a
// barrier always go onto the main event list.
func (p *ParallelTimeline) AttachAsync(async *AsyncParallelTimeline) {
	p.async = async
}

// maxSimTime stands in for "+infinity" in the bufferMinTS fast path (an
// empty local queue contributes StopTime instead, via TopTime);
// spec.md timestamps are non-negative
// ps values well under this bound for any realistic run.
const maxSimTime = int64(1) << 62

// Schedule implements spec.md §4.3's entity routing: a Local owner goes
// straight to the embedded Timeline; a Foreign owner known to
// foreignEntities is diverted into that rank's outbound buffer; a
// Foreign owner not yet known to this rank's registry is treated as
// local and resolved by name against this rank's registry (spec.md
// §4.3, "otherwise ... treat as local"); if no entity of that name is
// registered here, the event keeps its Foreign owner and fails with
// ErrNilEntity when executed. An owner moved to an attached async
// partition is routed to that partition instead.
func (p *ParallelTimeline) Schedule(e *Event) {
	if p.async != nil {
		if ent, ok := p.async.entities[e.Owner.Name()]; ok {
			e.Owner = LocalOwner(ent)
			p.async.Schedule(e)
			return
		}
	}
	if e.Owner.IsLocal() {
		p.Timeline.Schedule(e)
		return
	}
	r, known := p.foreignEntities[e.Owner.Name()]
	if !known {
		if resolved, err := p.registry.Resolve(e.Owner); err == nil {
			e.Owner = resolved
		}
		p.Timeline.Schedule(e)
		return
	}
	assertLookahead(p.timeNow, p.lookahead, e.Time)
	p.eventBuffer[r] = append(p.eventBuffer[r], e)
	p.scheduleCounter++
	if e.Time < p.bufferMinTS {
		p.bufferMinTS = e.Time
	}
}

// assertLookahead panics if a cross-partition event violates spec.md
// §4.3's lookahead contract; per spec.md §7 this is a domain-logic bug,
// not a recoverable error.
func assertLookahead(now, lookahead, eventTime int64) {
	if eventTime < now+lookahead {
		panic("kernel: foreign event scheduled inside the lookahead window")
	}
}

// Run drives the conservative window protocol (spec.md §4.3 steps 1-8)
// until the global minimum next-event time reaches StopTime.
func (p *ParallelTimeline) Run(ctx context.Context) error {
	if !p.initialized {
		if err := p.Init(ctx); err != nil {
			return err
		}
	}
	_ = p.NotifyObservers(ctx, NewTimelineEvent(p.source, EventTypeTimelineStarted, p.timeNow))

	for {
		computeStart := time.Now()
		localTop := p.events.TopTime(p.stopTime)
		candidateMin := localTop
		if p.bufferMinTS < candidateMin {
			candidateMin = p.bufferMinTS
		}
		if p.async != nil {
			if at := p.async.topTime(p.stopTime); at < candidateMin {
				candidateMin = at
			}
		}
		p.computingTime += time.Since(computeStart)

		// 1. Exchange phase.
		commStart := time.Now()
		outbound := make([][]byte, p.worldSize)
		for r := 0; r < p.worldSize; r++ {
			payload, err := encodeEventBatch(p.eventBuffer[r])
			if err != nil {
				return err
			}
			outbound[r] = payload
			p.eventBuffer[r] = nil
		}
		p.bufferMinTS = maxSimTime
		inbound, err := p.transport.AllToAll(ctx, outbound)
		if err != nil {
			return err
		}
		p.commTime1 += time.Since(commStart)
		p.exchangeCounter++

		// 2. Absorb phase.
		absorbStart := time.Now()
		for _, raw := range inbound {
			events, err := decodeEventBatch(raw, p.registry)
			if err != nil {
				return err
			}
			for _, e := range events {
				p.Timeline.Schedule(e)
			}
		}
		p.computingTime += time.Since(absorbStart)

		// 3. Reduce phase.
		reduceStart := time.Now()
		minTime, err := p.transport.AllReduceMin(ctx, candidateMin)
		if err != nil {
			return err
		}
		p.commTime2 += time.Since(reduceStart)

		// Safety invariant: monotone min_time.
		assertMonotone(p.timeNow, minTime)

		// 4. Termination check.
		if minTime >= p.stopTime {
			break
		}

		// 5. Window bounds.
		syncTime := minTime + p.lookahead
		if syncTime > p.stopTime {
			syncTime = p.stopTime
		}
		p.timeNow = minTime

		if p.async != nil {
			if err := p.async.runUntil(syncTime); err != nil {
				return err
			}
		}

		// 6. Execute phase.
		for {
			peek := p.events.Peek()
			if peek == nil || peek.Time >= syncTime {
				break
			}
			ev := p.events.Pop()
			if ev == nil {
				break
			}
			if !ev.valid {
				continue
			}
			assertMonotone(p.timeNow, ev.Time)
			p.timeNow = ev.Time
			if err := ev.Invoke(); err != nil {
				return err
			}
			p.runCounter++
			p.eventCounter++
		}

		// 7. Quantum-state flush: mandatory synchronization point.
		flushStart := time.Now()
		if err := p.quantumHook.FlushMessageBuffer(ctx); err != nil {
			return err
		}
		p.commTime3 += time.Since(flushStart)
		p.syncCounter++

		p.emitBarrier(ctx, minTime, syncTime)
		p.reportProgress(syncTime)
	}

	_ = p.NotifyObservers(ctx, NewTimelineEvent(p.source, EventTypeTimelineStopped, p.timeNow))
	return nil
}

func (p *ParallelTimeline) emitBarrier(ctx context.Context, minTime, syncTime int64) {
	evt := NewSyncBarrierEvent(p.source, SyncBarrierPayload{
		Rank:            p.rank,
		SyncCounter:     p.syncCounter,
		ExchangeCounter: p.exchangeCounter,
		MinTime:         minTime,
		SyncTime:        syncTime,
		EventsExecuted:  p.eventCounter,
		ComputingTime:   p.computingTime,
		CommunicationNs: [3]int64{int64(p.commTime1), int64(p.commTime2), int64(p.commTime3)},
		FlushInvoked:    true,
		Timestamp:       time.Now(),
	})
	if err := p.NotifyObservers(ctx, evt); err != nil {
		HandleEventEmissionError(err, p.logger, p.rank, evt.Type())
	}
}

// wireEvent is the serialization format crossing the transport's
// AllToAll boundary. spec.md §6 leaves the wire format to the kernel;
// JSON is used here for the same reason the teacher's modules default to
// it for inter-process payloads: human-debuggable and already a direct
// dependency of the config/observer stack, so no new serialization
// library is needed.
type wireEvent struct {
	Time     int64 `json:"time"`
	Priority int64 `json:"priority"`
	Owner    string `json:"owner"`
	Method   string `json:"method"`
	Args     []any `json:"args,omitempty"`
}

func encodeEventBatch(events []*Event) ([]byte, error) {
	if len(events) == 0 {
		return json.Marshal([]wireEvent{})
	}
	out := make([]wireEvent, len(events))
	for i, e := range events {
		out[i] = wireEvent{Time: e.Time, Priority: e.Priority, Owner: e.Owner.Name(), Method: e.Method, Args: e.Args}
	}
	return json.Marshal(out)
}

func decodeEventBatch(raw []byte, reg *Registry) ([]*Event, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []wireEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	events := make([]*Event, 0, len(wire))
	for _, w := range wire {
		owner, err := reg.Resolve(ForeignOwner(w.Owner))
		if err != nil {
			return nil, err
		}
		events = append(events, &Event{
			Time:     w.Time,
			Priority: w.Priority,
			Owner:    owner,
			Method:   w.Method,
			Args:     w.Args,
			valid:    true,
		})
	}
	return events, nil
}

// Close releases the underlying transport.
func (p *ParallelTimeline) Close() error {
	return p.transport.Close()
}
