// Command get-prices is an oracle contract built for GOOS=wasip1. It reads
// off-chain data through the chain extension and the price snapshot the host
// feeder keeps in storage.
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o get-prices.wasm ./cmd/get-prices
//
// Run:
//
//	oracle-host run -contract get-prices.wasm -export get_prices
package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/guest"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

// The contract is a reactor: the host calls its exports.
func main() {}

// contract holds the host facilities the exports use.
type contract struct {
	ext     ports.Extension
	storage ports.StorageReader
}

// requestedOffchainData returns the payload for the u64 data id in input.
func (c *contract) requestedOffchainData(ctx context.Context, input []byte) ([]byte, error) {
	id, err := wireformat.DecodeU64(input)
	if err != nil {
		return nil, err
	}
	client, err := guest.Negotiate(ctx, c.ext)
	if err != nil {
		return nil, err
	}
	return client.RequestedOffchainData(ctx, id)
}

// currentDataID returns the id the host currently serves, u64 encoded.
func (c *contract) currentDataID(ctx context.Context) ([]byte, error) {
	client, err := guest.Negotiate(ctx, c.ext)
	if err != nil {
		return nil, err
	}
	id, err := client.CurrentDataID(ctx)
	if err != nil {
		return nil, err
	}
	return wireformat.EncodeU64(id), nil
}

// storedPrices returns the feeder snapshot as JSON.
func (c *contract) storedPrices(ctx context.Context) ([]byte, error) {
	snap, err := guest.StoredPricesDetailed(ctx, c.storage)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// report is the JSON result of get_prices.
type report struct {
	Prices    *entities.PriceSnapshot `json:"prices,omitempty"`
	CurrentID *entities.DataID        `json:"current_id,omitempty"`
	Errors    []*entities.ErrorDetail `json:"errors,omitempty"`
	Protocol  string                  `json:"protocol"`
	Payload   []byte                  `json:"payload,omitempty"`
}

// getPrices gathers everything the contract can see into one report. Each
// failure is recorded and the remaining reads still run.
func (c *contract) getPrices(ctx context.Context) []byte {
	var r report
	fail := func(step string, err error) {
		slog.WarnContext(ctx, "get-prices: read failed", "step", step, "error", err)
		r.Errors = append(r.Errors, domainerrors.ToErrorDetail(err))
	}

	client, err := guest.Negotiate(ctx, c.ext)
	if err != nil {
		fail("negotiate", err)
	} else {
		r.Protocol = client.Version().String()
		if _, ok := client.Version().CurrentIDOperation(); ok {
			if id, err := client.CurrentDataID(ctx); err != nil {
				fail("current_data_id", err)
			} else {
				r.CurrentID = &id
				if r.Payload, err = client.RequestedOffchainData(ctx, id); err != nil {
					fail("requested_offchain_data", err)
				}
			}
		}
	}

	if snap, err := guest.StoredPricesDetailed(ctx, c.storage); err != nil {
		fail("stored_prices", err)
	} else {
		r.Prices = &snap
	}

	out, err := json.Marshal(r)
	if err != nil {
		slog.ErrorContext(ctx, "get-prices: encode report", "error", err)
		return nil
	}
	return out
}
