// Package ports defines the interfaces the oracle extension depends on.
// The off-chain data source, the host storage reader and the guest's view of the
// extension call surface are all injected through these ports, so that the
// retrieval flow can run against the WASM boundary, an in-process loopback or
// test doubles.
package ports
