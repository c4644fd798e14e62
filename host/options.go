package host

import (
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	oraclewazero "github.com/reglet-dev/reglet-oracle/infrastructure/wazero"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithDispatcher sets the dispatcher serving call_chain_extension.
func WithDispatcher(d *hostfuncs.Dispatcher) Option {
	return func(e *Executor) {
		e.dispatcher = d
	}
}

// WithAdapterOptions passes options to the oracle_ext host module.
func WithAdapterOptions(opts ...oraclewazero.AdapterOption) Option {
	return func(e *Executor) {
		e.adapterOpts = append(e.adapterOpts, opts...)
	}
}

// WithMemoryLimitPages caps each contract's linear memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) {
		e.memoryLimitPages = pages
	}
}

// WithLogger sets the executor logger. It is also handed to the host module
// unless an adapter option overrides it.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}
