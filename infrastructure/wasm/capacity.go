package wasm

import "fmt"

const (
	// DefaultStorageCapacity is the first buffer size tried by StorageAdapter.
	DefaultStorageCapacity = 4 * 1024

	// DefaultMaxStorageCapacity bounds the buffer StorageAdapter grows to
	// when the host reports a larger value (1 MiB).
	DefaultMaxStorageCapacity = 1024 * 1024
)

type storageConfig struct {
	capacity    uint32
	maxCapacity uint32
}

// StorageOption configures a StorageAdapter.
type StorageOption func(*storageConfig)

// WithMaxCapacity caps the retry buffer. Zero keeps the default.
func WithMaxCapacity(n uint32) StorageOption {
	return func(c *storageConfig) {
		if n > 0 {
			c.maxCapacity = n
		}
	}
}

func newStorageConfig(capacity uint32, opts []StorageOption) storageConfig {
	cfg := storageConfig{capacity: capacity, maxCapacity: DefaultMaxStorageCapacity}
	if cfg.capacity == 0 {
		cfg.capacity = DefaultStorageCapacity
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity > cfg.maxCapacity {
		cfg.capacity = cfg.maxCapacity
	}
	return cfg
}

// nextCapacity returns the buffer size for a retry after the host reported
// required bytes for a buffer of current bytes.
func nextCapacity(current, required, limit uint32) (uint32, error) {
	if required <= current {
		return 0, fmt.Errorf("host reported %d required bytes for a %d byte buffer", required, current)
	}
	if required > limit {
		return 0, fmt.Errorf("value of %d bytes exceeds the %d byte read limit", required, limit)
	}
	return required, nil
}
