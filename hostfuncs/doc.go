// Package hostfuncs provides the host side of the oracle extension: the
// dispatcher that routes an operation id and an input buffer to a handler and
// produces a status code plus an output buffer.
// This package has NO WASM runtime dependencies; the wazero adapter in
// infrastructure/wazero and the in-process loopback in guest both drive it.
package hostfuncs
