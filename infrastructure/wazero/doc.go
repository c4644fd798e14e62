// Package wazero exposes the oracle extension surface to WebAssembly contracts
// running in the wazero runtime.
//
// RegisterWithRuntime instantiates a host module (default name "oracle_ext")
// whose imports bridge guest linear memory and a hostfuncs.Dispatcher:
//
//   - protocol_version() -> i32
//   - call_chain_extension(op, in_ptr, in_len, out_ptr, out_len_ptr) -> i64
//   - get_storage(key_ptr, key_len, out_ptr, out_len_ptr) -> i32
//   - debug_message(ptr, len)
//
// For call_chain_extension and get_storage the u32 at out_len_ptr holds the
// output capacity on entry. On exit it holds the written length, or the
// required size when the buffer was too small. call_chain_extension returns
// transport<<32 | status.
//
// # Basic Usage
//
//	d, err := hostfuncs.NewDispatcher(
//	    hostfuncs.WithBundle(hostfuncs.OracleBundle(source)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err = wazero.RegisterWithRuntime(ctx, runtime, d,
//	    wazero.WithStorage(store),
//	    wazero.WithLogger(logger),
//	)
//
// # Custom Handlers
//
// Additional imports can be added to the same module with WithCustomHandler:
//
//	wazero.RegisterWithRuntime(ctx, runtime, d,
//	    wazero.WithCustomHandler(wazero.CustomHandler{
//	        Name:        "block_number",
//	        Handler:     blockNumber,
//	        ResultTypes: []api.ValueType{api.ValueTypeI64},
//	    }),
//	)
package wazero
