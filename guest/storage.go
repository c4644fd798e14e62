package guest

import (
	"context"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/storagekey"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

// StoredPrices reads the price snapshot under PriceFetchModule/Prices.
// Any failure yields false.
func StoredPrices(ctx context.Context, reader ports.StorageReader) (entities.PriceSnapshot, bool) {
	return storagekey.Lookup(ctx, reader, storagekey.PriceSnapshotKey().Bytes(), wireformat.DecodePriceSnapshot)
}

// StoredPricesDetailed is StoredPrices with the failure cause:
// errors.ErrStorageNotFound, a *errors.DecodeError or a *errors.StorageError.
func StoredPricesDetailed(ctx context.Context, reader ports.StorageReader) (entities.PriceSnapshot, error) {
	return storagekey.LookupDetailed(ctx, reader, storagekey.PriceSnapshotKey().Bytes(), wireformat.DecodePriceSnapshot)
}

// StoredQuote reads the single quote stored for id.
func StoredQuote(ctx context.Context, reader ports.StorageReader, id entities.DataID) (entities.PriceQuote, error) {
	return storagekey.LookupDetailed(ctx, reader, storagekey.PriceQuoteKey(id), wireformat.DecodePriceQuoteValue)
}
