package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reglet-dev/reglet-oracle/application/node"
	"github.com/reglet-dev/reglet-oracle/config"
	"github.com/reglet-dev/reglet-oracle/host"
	"github.com/reglet-dev/reglet-oracle/infrastructure/httpapi"
	"github.com/reglet-dev/reglet-oracle/infrastructure/metrics"
	oraclewazero "github.com/reglet-dev/reglet-oracle/infrastructure/wazero"
	sdklog "github.com/reglet-dev/reglet-oracle/log"
)

// commonFlags are accepted by every command that reads configuration.
type commonFlags struct {
	configPath string
	envPath    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to the YAML configuration file")
	fs.StringVar(&c.envPath, "env", "", "path to a .env file (default: ./.env if present)")
}

// load reads the configuration and builds the process logger from it.
func (c *commonFlags) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(c.envPath); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := sdklog.NewLogger(sdklog.LoggerConfig{
		Output: stderr,
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runContract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	contractPath := fs.String("contract", "", "path to the contract .wasm (overrides contract.path)")
	export := fs.String("export", "", "entry point to call (overrides contract.export)")
	inputHex := fs.String("input", "", "hex-encoded input passed to the entry point")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := common.load(stderr)
	if err != nil {
		return err
	}
	if *contractPath != "" {
		cfg.Contract.Path = *contractPath
	}
	if *export != "" {
		cfg.Contract.Export = *export
	}
	if cfg.Contract.Path == "" {
		return errors.New("no contract given: set -contract or contract.path")
	}
	input, err := hex.DecodeString(strings.TrimPrefix(*inputHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid -input: %w", err)
	}

	n, err := node.Build(ctx, cfg, node.WithLogger(logger))
	if err != nil {
		return err
	}
	defer n.Close()

	if n.Feeder != nil {
		if _, err := n.Feeder.RunOnce(ctx); err != nil {
			logger.WarnContext(ctx, "oracle-host: feeder run failed", "error", err)
		}
	}

	out, err := callContract(ctx, n, logger, input)
	if err != nil {
		return err
	}
	return printResult(stdout, out)
}

// callContract loads the configured contract into a fresh executor and calls
// its entry point under the contract timeout.
func callContract(ctx context.Context, n *node.Node, logger *slog.Logger, input []byte) ([]byte, error) {
	cfg := n.Config.Contract
	wasm, err := os.ReadFile(filepath.Clean(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to read contract: %w", err)
	}

	adapterOpts := []oraclewazero.AdapterOption{oraclewazero.WithStorage(n.Store)}
	if cfg.MaxRequestSize > 0 {
		adapterOpts = append(adapterOpts, oraclewazero.WithMaxRequestSize(cfg.MaxRequestSize))
	}
	exec, err := host.NewExecutor(ctx,
		host.WithLogger(logger),
		host.WithDispatcher(n.Dispatcher),
		host.WithMemoryLimitPages(cfg.MemoryLimitPages),
		host.WithAdapterOptions(adapterOpts...),
	)
	if err != nil {
		return nil, err
	}
	defer exec.Close(ctx)

	name := strings.TrimSuffix(filepath.Base(cfg.Path), filepath.Ext(cfg.Path))
	inst, err := exec.LoadContract(ctx, name, wasm)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if d := cfg.Timeout.Std(); d > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	start := time.Now()
	out, err := inst.Call(callCtx, cfg.Export, input)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", name, cfg.Export, err)
	}
	logger.InfoContext(ctx, "oracle-host: contract call finished",
		"contract", name, "export", cfg.Export, "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

// printResult writes JSON results as is and anything else as hex.
func printResult(w io.Writer, out []byte) error {
	if json.Valid(out) {
		_, err := fmt.Fprintf(w, "%s\n", out)
		return err
	}
	_, err := fmt.Fprintf(w, "0x%s\n", hex.EncodeToString(out))
	return err
}

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := common.load(stderr)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	m := metrics.New()
	n, err := node.Build(ctx, cfg, node.WithLogger(logger), node.WithMetrics(m))
	if err != nil {
		return err
	}
	defer n.Close()

	if err := n.StartFeeder(ctx); err != nil {
		return err
	}

	api := httpapi.New(n.Extension(), n.Store, httpapi.WithMetrics(m), httpapi.WithLogger(logger))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "oracle-host: listening", "addr", cfg.Server.Addr, "protocol", n.Dispatcher.Version())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.InfoContext(shutdownCtx, "oracle-host: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func printSchema(w io.Writer) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", schema)
	return err
}
