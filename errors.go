package kernel

import (
	"errors"
	"strconv"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
)

// Kernel errors, grouped by the three kinds spec.md §7 distinguishes:
// configuration errors (fail at construction, before Run), entity-raised
// runtime errors (propagate out of Run with diagnostic context attached),
// and protocol-violation bugs. The last group is NOT returned as an error
// value — a monotone-time regression or an under-lookahead foreign event
// is a programming bug in domain code, and is reported via panic through
// assertMonotone/assertLookahead so it aborts the worker immediately
// rather than silently corrupting the run.
var (
	// Configuration errors.
	ErrNonPositiveLookahead = errors.New("kernel: lookahead must be > 0")
	ErrUnknownFormalism     = errors.New("kernel: unknown quantum-state formalism")
	ErrInvalidStopTime      = errors.New("kernel: stop time must be >= 0")
	ErrQMEndpointIncomplete = errors.New("kernel: qm_ip and qm_port must both be set or both be nil")
	ErrQMUnreachable        = errors.New("kernel: quantum-manager endpoint unreachable")
	ErrInvalidWorldSize     = errors.New("kernel: world size must be > 0")
	ErrInvalidRank          = errors.New("kernel: rank must be in [0, world_size)")
	ErrStructuralReload     = kernelerr.ErrStructuralReload

	// Entity/registry errors.
	ErrEntityNameRequired  = errors.New("kernel: entity name must not be empty")
	ErrEntityNameCollision = errors.New("kernel: entity name already registered")
	ErrEntityNotFound      = errors.New("kernel: entity not found in registry")
	ErrNilEntity           = errors.New("kernel: entity is nil")

	// EventList / scheduling errors.
	ErrEventNotFound    = errors.New("kernel: event not present in event list")
	ErrRescheduleInPast = errors.New("kernel: cannot reschedule event before current time")

	// Transport / collective errors. Defined in internal/kernelerr and
	// re-exported here so callers can keep writing kernel.ErrTransportClosed
	// while internal/transport and internal/quantum, which cannot import
	// this package, still return the identical sentinel value.
	ErrUnknownPeer          = kernelerr.ErrUnknownPeer
	ErrTransportClosed      = kernelerr.ErrTransportClosed
	ErrQuantumManagerIO     = kernelerr.ErrQuantumManagerIO
	ErrExchangeSizeMismatch = kernelerr.ErrExchangeSizeMismatch
)

// RuntimeError wraps an error raised by entity/process logic while the
// kernel was executing it, attaching the diagnostic context spec.md §7
// requires: the timeline's current simulated time and the name of the
// event's owning entity.
type RuntimeError struct {
	Time  int64
	Owner string
	Err   error
}

func (e *RuntimeError) Error() string {
	return "kernel: entity " + e.Owner + " raised error at t=" + strconv.FormatInt(e.Time, 10) + ": " + e.Err.Error()
}

func (e *RuntimeError) Unwrap() error { return e.Err }
