// Package kernelerr holds sentinel errors shared between the root kernel
// package and its internal/transport and internal/quantum collaborators.
// It exists only to break the import cycle those packages would
// otherwise have with kernel: kernel imports transport/quantum, so
// transport/quantum cannot import kernel back just to return one of its
// sentinel errors.
package kernelerr

import "errors"

var (
	ErrUnknownPeer          = errors.New("kernel: unknown peer rank")
	ErrTransportClosed      = errors.New("kernel: transport is closed")
	ErrQuantumManagerIO     = errors.New("kernel: quantum-manager client I/O failed after retries")
	ErrExchangeSizeMismatch = errors.New("kernel: alltoall response did not include one payload per peer")
	ErrStructuralReload     = errors.New("kernel: reload may not change lookahead, formalism, or quantum-manager endpoint")
)
