// Package guest is the contract side of the oracle extension: a Client that
// issues extension calls and maps their status codes to errors, plus typed
// readers for the price data the host feeder writes to storage.
//
// A Client talks to any ports.Extension. Inside a wasip1 contract that is the
// import binding of infrastructure/wasm; in host-side tests it is a
// hostfuncs.LoopbackExtension.
//
//	client, err := guest.Negotiate(ctx, ext)
//	if err != nil {
//	    return err
//	}
//	payload, err := client.RequestedOffchainData(ctx, 42)
package guest
