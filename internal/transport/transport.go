// Package transport provides the collective-communication primitive the
// PDES kernel's ParallelTimeline builds its conservative synchronization
// window on: an all-to-all exchange of per-peer event payloads, and an
// all-reduce-min used to agree on the global minimum next-event time.
// Neither operation has an analogue in the example corpus (it's MPI's
// job in the original implementation), so this package is original code
// shaped like the teacher's other pluggable-collaborator interfaces:
// small, contextual, and swappable between an in-memory implementation
// (single-process tests, Local) and a networked one (HTTP).
package transport

import "context"

// Transport is the collective-communication contract a ParallelTimeline
// depends on. Implementations must provide a consistent Rank/WorldSize
// across every peer for the lifetime of a run.
type Transport interface {
	// Rank returns this participant's index in [0, WorldSize).
	Rank() int

	// WorldSize returns the total number of participants.
	WorldSize() int

	// AllToAll exchanges one payload per peer: outbound[j] is the bytes
	// this rank wants rank j to receive. The returned slice has the same
	// shape: inbound[j] is what rank j sent to this rank. len(outbound)
	// and len(inbound) both equal WorldSize(); outbound[Rank()] is
	// looped back unchanged as inbound[Rank()].
	AllToAll(ctx context.Context, outbound [][]byte) ([][]byte, error)

	// AllReduceMin returns the minimum of x across all peers, consistent
	// for every participant of the same round.
	AllReduceMin(ctx context.Context, x int64) (int64, error)

	// Close releases any resources (sockets, goroutines) held by the
	// transport. Safe to call once after the final synchronization round.
	Close() error
}
