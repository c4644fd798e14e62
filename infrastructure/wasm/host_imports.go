//go:build wasip1

// Package wasm provides the contract-side adapters over the oracle_ext host imports.
package wasm

//go:wasmimport oracle_ext protocol_version
//nolint:revive // intentional snake_case to match WASM import convention
func host_protocol_version() uint32

//go:wasmimport oracle_ext call_chain_extension
//nolint:revive // intentional snake_case to match WASM import convention
func host_call_chain_extension(op, inPtr, inLen, outPtr, outLenPtr uint32) uint64

//go:wasmimport oracle_ext get_storage
//nolint:revive // intentional snake_case to match WASM import convention
func host_get_storage(keyPtr, keyLen, outPtr, outLenPtr uint32) uint32
