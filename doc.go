// Package kernel implements a parallel discrete-event simulation (PDES)
// kernel for a quantum-network simulator.
//
// Many simulated nodes are partitioned across worker processes. Each
// worker owns a disjoint subset of entities and a local event queue.
// Workers advance simulated time cooperatively using a conservative
// time-window synchronization protocol: at each barrier they exchange
// cross-partition events and reduce a global minimum event timestamp,
// then execute every local event strictly below that minimum plus a
// configured lookahead.
//
// Domain models (memory arrays, photons, network managers) are not part
// of this package; they are expected to satisfy the Entity contract and
// schedule Events against a Timeline. The remote quantum-state server is
// likewise external; the kernel only invokes the flush/teardown hooks
// defined in the quantum subpackage.
package kernel
