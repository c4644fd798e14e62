package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	oraclewazero "github.com/reglet-dev/reglet-oracle/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Executor manages the wazero runtime contracts are loaded into.
type Executor struct {
	runtime          wazero.Runtime
	dispatcher       *hostfuncs.Dispatcher
	logger           *slog.Logger
	adapterOpts      []oraclewazero.AdapterOption
	memoryLimitPages uint32
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	// Default dispatcher if not provided: every operation is unimplemented.
	if e.dispatcher == nil {
		d, err := hostfuncs.NewDispatcher(hostfuncs.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create default dispatcher: %w", err)
		}
		e.dispatcher = d
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if e.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(e.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	adapterOpts := append([]oraclewazero.AdapterOption{oraclewazero.WithLogger(e.logger)}, e.adapterOpts...)
	if err := oraclewazero.RegisterWithRuntime(ctx, rt, e.dispatcher, adapterOpts...); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases resources held by the executor, including every loaded contract.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Dispatcher returns the dispatcher behind call_chain_extension.
func (e *Executor) Dispatcher() *hostfuncs.Dispatcher {
	return e.dispatcher
}

// Instance is an instantiated contract.
type Instance struct {
	module api.Module
	logger *slog.Logger
	name   string
}

// LoadContract compiles and instantiates a contract under name. Reactor
// modules get their _initialize export called.
func (e *Executor) LoadContract(ctx context.Context, name string, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile contract %q: %w", name, err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate contract %q: %w", name, err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	e.logger.DebugContext(ctx, "host: contract loaded", "contract", name)
	return &Instance{module: mod, logger: e.logger, name: name}, nil
}

// Name returns the contract name given to LoadContract.
func (i *Instance) Name() string {
	return i.name
}

// Close releases the contract instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
