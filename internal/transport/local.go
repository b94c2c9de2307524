package transport

import (
	"context"
	"sync"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
)

// hub is the shared barrier state for one in-memory world. Every Local
// participant holds a pointer to the same hub. Each collective call
// blocks until all WorldSize() participants have contributed their
// share for the current generation, then every blocked caller wakes and
// reads the jointly-computed result before the hub advances to the next
// generation. Two independent generation counters (one per collective
// kind) let AllToAll and AllReduceMin rounds interleave freely, since a
// ParallelTimeline only ever calls them strictly one at a time per rank
// but different ranks might be a step apart when wall-clock scheduling
// jitters.
type hub struct {
	mu   sync.Mutex
	cond *sync.Cond

	world int

	a2aGen     int
	a2aArrived int
	a2aIn      [][][]byte // a2aIn[sender][receiver]
	a2aOut     [][][]byte // transposed result, a2aOut[receiver][sender]

	redGen     int
	redArrived int
	redValues  []int64
	redResult  int64

	closed bool
}

func newHub(world int) *hub {
	h := &hub{world: world}
	h.cond = sync.NewCond(&h.mu)
	h.a2aIn = make([][][]byte, world)
	h.redValues = make([]int64, world)
	return h
}

// Local is an in-memory Transport implementation: one instance per rank,
// all sharing a hub. Useful for single-process tests and for the S1-S6
// BDD scenarios that exercise ParallelTimeline without standing up real
// network peers.
type Local struct {
	rank int
	hub  *hub
}

// NewLocalWorld builds world instances of Local sharing one hub, indexed
// by rank.
func NewLocalWorld(world int) []*Local {
	if world <= 0 {
		return nil
	}
	h := newHub(world)
	out := make([]*Local, world)
	for r := 0; r < world; r++ {
		out[r] = &Local{rank: r, hub: h}
	}
	return out
}

func (l *Local) Rank() int      { return l.rank }
func (l *Local) WorldSize() int { return l.hub.world }

func (l *Local) AllToAll(ctx context.Context, outbound [][]byte) ([][]byte, error) {
	if len(outbound) != l.hub.world {
		return nil, kernelerr.ErrExchangeSizeMismatch
	}
	h := l.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	myGen := h.a2aGen
	h.a2aIn[l.rank] = outbound
	h.a2aArrived++

	if h.a2aArrived == h.world {
		h.a2aOut = transpose(h.a2aIn, h.world)
		h.a2aArrived = 0
		h.a2aIn = make([][][]byte, h.world)
		h.a2aGen++
		h.cond.Broadcast()
	} else {
		for h.a2aGen == myGen {
			if done := waitOrCancel(ctx, h); done != nil {
				return nil, done
			}
		}
	}
	return h.a2aOut[l.rank], nil
}

func (l *Local) AllReduceMin(ctx context.Context, x int64) (int64, error) {
	h := l.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	myGen := h.redGen
	h.redValues[l.rank] = x
	h.redArrived++

	if h.redArrived == h.world {
		min := h.redValues[0]
		for _, v := range h.redValues[1:] {
			if v < min {
				min = v
			}
		}
		h.redResult = min
		h.redArrived = 0
		h.redGen++
		h.cond.Broadcast()
	} else {
		for h.redGen == myGen {
			if done := waitOrCancel(ctx, h); done != nil {
				return 0, done
			}
		}
	}
	return h.redResult, nil
}

func (l *Local) Close() error {
	h := l.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.cond.Broadcast()
	return nil
}

// transpose turns per-sender outbound vectors into per-receiver inbound
// vectors: out[receiver][sender] = in[sender][receiver].
func transpose(in [][][]byte, world int) [][][]byte {
	out := make([][][]byte, world)
	for receiver := 0; receiver < world; receiver++ {
		out[receiver] = make([][]byte, world)
	}
	for sender := 0; sender < world; sender++ {
		if in[sender] == nil {
			continue
		}
		for receiver := 0; receiver < world; receiver++ {
			out[receiver][sender] = in[sender][receiver]
		}
	}
	return out
}

// waitOrCancel blocks on the hub's condition variable, re-checking ctx
// cancellation each time it wakes. h.mu must be held on entry; it is
// held again on return. Returns a non-nil error if ctx was cancelled or
// the hub was closed while waiting.
func waitOrCancel(ctx context.Context, h *hub) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if h.closed {
		return kernelerr.ErrTransportClosed
	}
	h.cond.Wait()
	if h.closed {
		return kernelerr.ErrTransportClosed
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}
