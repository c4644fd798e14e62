// Package host runs oracle contracts compiled to WebAssembly.
//
// It owns the wazero runtime, links WASI and the oracle_ext host module into
// it, and handles the ABI of contract entry points: the input is copied into
// a buffer obtained from the contract's allocate export, and the result comes
// back as a packed pointer and length.
package host
