package ports

import (
	"context"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// DataSource provides externally fetched values by identifier.
// How the value is obtained is the implementation's concern; the dispatcher
// only distinguishes success from failure.
type DataSource interface {
	// Fetch returns the bytes associated with id.
	Fetch(ctx context.Context, id entities.DataID) ([]byte, error)

	// CurrentDataID returns the identifier the source currently serves.
	CurrentDataID(ctx context.Context) (entities.DataID, error)
}

// Cache stores fetched values for a data source. Caching belongs to the
// source, never to the dispatcher.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
}
