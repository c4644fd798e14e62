// Package node assembles an oracle host from its configuration: the data
// source (optionally cached), host storage, the extension dispatcher with its
// middleware chain and the scheduled price feeder.
package node

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/reglet-dev/reglet-oracle/config"
	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
	"github.com/reglet-dev/reglet-oracle/infrastructure/datasource"
	"github.com/reglet-dev/reglet-oracle/infrastructure/feeder"
	"github.com/reglet-dev/reglet-oracle/infrastructure/metrics"
	"github.com/reglet-dev/reglet-oracle/infrastructure/storage"
)

// Store is host storage as the node uses it: read by contracts, written by
// the feeder.
type Store interface {
	ports.StorageReader
	ports.StorageWriter
}

// Node holds the wired components of an oracle host.
type Node struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Source     ports.DataSource
	Store      Store
	Dispatcher *hostfuncs.Dispatcher
	// Feeder is nil when the feeder is disabled.
	Feeder *feeder.Feeder

	closers []func() error
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	redis   redis.UniversalClient
	store   Store
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics instruments the dispatcher and the feeder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *buildOptions) {
		o.metrics = m
	}
}

// WithRedisClient uses client for the redis cache instead of dialing
// cfg.Cache.RedisAddr. The node does not close it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *buildOptions) {
		o.redis = client
	}
}

// WithStore overrides the configured storage backend.
func WithStore(s Store) Option {
	return func(o *buildOptions) {
		o.store = s
	}
}

// Build wires a Node from cfg. On error every component opened so far is
// closed again.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Node, error) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	n := &Node{Config: cfg, Logger: o.logger, Metrics: o.metrics}
	if err := n.build(ctx, o); err != nil {
		_ = n.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) build(ctx context.Context, o buildOptions) error {
	cfg := n.Config
	version, err := cfg.ProtocolVersion()
	if err != nil {
		return &domainerrors.ConfigError{Field: "protocol", Err: err}
	}

	source, err := n.buildSource(cfg.Source)
	if err != nil {
		return err
	}
	n.Source = n.wrapCache(source, cfg.Cache, o.redis)

	if o.store != nil {
		n.Store = o.store
	} else if n.Store, err = n.buildStore(ctx, cfg.Storage); err != nil {
		return err
	}

	n.Dispatcher, err = hostfuncs.NewDispatcher(
		hostfuncs.WithProtocol(version),
		hostfuncs.WithLogger(n.Logger),
		hostfuncs.WithMiddleware(n.middleware()...),
		hostfuncs.WithBundle(hostfuncs.OracleBundle(n.Source)),
	)
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	if cfg.Feeder.Enabled {
		fopts := []feeder.Option{feeder.WithLogger(n.Logger)}
		if n.Metrics != nil {
			fopts = append(fopts, feeder.WithObserver(n.Metrics.ObserveFeederRun))
		}
		n.Feeder = feeder.New(n.Source, n.Store, cfg.Feeder.Feeds, fopts...)
	}
	return nil
}

func (n *Node) buildSource(cfg config.SourceConfig) (ports.DataSource, error) {
	switch cfg.Kind {
	case "", "static":
		data := make(map[entities.DataID][]byte, len(cfg.Static))
		for i, entry := range cfg.Static {
			value, err := hex.DecodeString(strings.TrimPrefix(entry.Value, "0x"))
			if err != nil {
				return nil, &domainerrors.ConfigError{Field: fmt.Sprintf("source.static[%d].value", i), Err: err}
			}
			data[entry.ID] = value
		}
		src := datasource.NewStaticSource(data)
		src.SetCurrent(cfg.Current)
		return src, nil

	case "http":
		hopts := []datasource.HTTPOption{
			datasource.WithHTTPLogger(n.Logger),
			datasource.WithEgressGuard(
				datasource.WithAllowedHosts(cfg.AllowedHosts...),
				datasource.WithPrivateNetworks(cfg.AllowPrivate),
			),
		}
		if cfg.Selector != "" {
			hopts = append(hopts, datasource.WithSelector(cfg.Selector))
		}
		if cfg.Timeout > 0 {
			hopts = append(hopts, datasource.WithTimeout(cfg.Timeout.Std()))
		}
		if cfg.MaxBodySize > 0 {
			hopts = append(hopts, datasource.WithMaxBodySize(cfg.MaxBodySize))
		}
		if cfg.Current != 0 {
			hopts = append(hopts, datasource.WithCurrentDataID(cfg.Current))
		}
		for k, v := range cfg.Headers {
			hopts = append(hopts, datasource.WithHeader(k, v))
		}
		src, err := datasource.NewHTTPSource(cfg.URL, hopts...)
		if err != nil {
			return nil, &domainerrors.ConfigError{Field: "source.url", Err: err}
		}
		return src, nil

	default:
		return nil, &domainerrors.ConfigError{Field: "source.kind", Err: fmt.Errorf("unknown source %q", cfg.Kind)}
	}
}

func (n *Node) wrapCache(source ports.DataSource, cfg config.CacheConfig, client redis.UniversalClient) ports.DataSource {
	var cache ports.Cache
	switch cfg.Kind {
	case "memory":
		cache = datasource.NewMemoryCache(cfg.TTL.Std())
	case "redis":
		if client == nil {
			c := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			n.closers = append(n.closers, c.Close)
			client = c
		}
		cache = datasource.NewRedisCache(client, cfg.TTL.Std())
	default:
		return source
	}
	return datasource.NewCachedSource(source, cache, cfg.Prefix, n.Logger)
}

func (n *Node) buildStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(storage.WithPath(cfg.Path)), nil
	case "sql":
		s, err := storage.OpenSQLStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, s.Close)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, &domainerrors.ConfigError{Field: "storage.kind", Err: fmt.Errorf("unknown storage %q", cfg.Kind)}
	}
}

// middleware returns the dispatcher chain, outermost first.
func (n *Node) middleware() []hostfuncs.Middleware {
	mw := []hostfuncs.Middleware{
		hostfuncs.PanicRecoveryMiddleware(),
		hostfuncs.LoggingMiddleware(n.Logger),
	}
	if n.Metrics != nil {
		mw = append(mw, n.Metrics.Middleware())
	}
	if rl := n.Config.RateLimit; rl.RPS > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		mw = append(mw, hostfuncs.RateLimitMiddleware(rate.NewLimiter(rate.Limit(rl.RPS), burst)))
	}
	if d := n.Config.Source.Timeout.Std(); d > 0 {
		mw = append(mw, hostfuncs.TimeoutMiddleware(d))
	}
	return mw
}

// Extension returns an in-process extension over the node's dispatcher.
func (n *Node) Extension() *hostfuncs.LoopbackExtension {
	return hostfuncs.NewLoopbackExtension(n.Dispatcher)
}

// StartFeeder starts the scheduled feeder, running it once first so storage
// is populated before the first contract call. It is a no-op when the feeder
// is disabled.
func (n *Node) StartFeeder(ctx context.Context) error {
	if n.Feeder == nil {
		return nil
	}
	if _, err := n.Feeder.RunOnce(ctx); err != nil {
		n.Logger.WarnContext(ctx, "node: initial feeder run failed", "error", err)
	}
	return n.Feeder.Start(ctx, n.Config.Feeder.Schedule)
}

// Close stops the feeder and releases every opened backend.
func (n *Node) Close() error {
	if n.Feeder != nil {
		n.Feeder.Stop()
	}
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil
	return errors.Join(errs...)
}
