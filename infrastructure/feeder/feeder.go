package feeder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/storagekey"
	"github.com/reglet-dev/reglet-oracle/wireformat"
)

// DefaultSchedule runs the feeder every minute.
const DefaultSchedule = "@every 1m"

// Feed describes one price the feeder maintains.
type Feed struct {
	Symbol   string          `yaml:"symbol" json:"symbol" validate:"required"`
	DataID   entities.DataID `yaml:"data_id" json:"data_id"`
	Decimals uint8           `yaml:"decimals" json:"decimals" validate:"lte=18"`
}

// Feeder periodically fetches prices from a data source and writes them to
// host storage: the full snapshot under storagekey.PriceSnapshotKey and one
// entry per feed under storagekey.PriceQuoteKey.
type Feeder struct {
	source   ports.DataSource
	store    ports.StorageWriter
	logger   *slog.Logger
	now      func() time.Time
	cron     *cron.Cron
	observer func(time.Duration, error)
	feeds    []Feed

	mu   sync.Mutex
	last entities.PriceSnapshot
}

// Option configures a Feeder.
type Option func(*Feeder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feeder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Feeder) {
		f.now = now
	}
}

// WithObserver registers a function called after every scheduled run.
func WithObserver(fn func(time.Duration, error)) Option {
	return func(f *Feeder) {
		f.observer = fn
	}
}

// New creates a Feeder for feeds.
func New(source ports.DataSource, store ports.StorageWriter, feeds []Feed, opts ...Option) *Feeder {
	f := &Feeder{
		source: source,
		store:  store,
		feeds:  feeds,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RunOnce fetches every feed and writes the results. A feed that fails to
// fetch or parse keeps its previous quote; the snapshot is written as long as
// the store accepts it.
func (f *Feeder) RunOnce(ctx context.Context) (entities.PriceSnapshot, error) {
	now := uint64(f.now().Unix())

	f.mu.Lock()
	previous := f.last
	f.mu.Unlock()

	snapshot := entities.PriceSnapshot{UpdatedAt: now}
	for _, feed := range f.feeds {
		q, err := f.fetch(ctx, feed, now)
		if err != nil {
			f.logger.WarnContext(ctx, "feeder: price update failed",
				"symbol", feed.Symbol, "data_id", feed.DataID, "error", err)
			if old, ok := previous.Quote(feed.DataID); ok {
				snapshot.Quotes = append(snapshot.Quotes, old)
			}
			continue
		}

		if err := f.store.WriteStorage(ctx, storagekey.PriceQuoteKey(feed.DataID), wireformat.EncodePriceQuoteValue(q)); err != nil {
			return entities.PriceSnapshot{}, fmt.Errorf("write quote %s: %w", feed.Symbol, err)
		}
		snapshot.Quotes = append(snapshot.Quotes, q)
	}

	key := storagekey.PriceSnapshotKey()
	if err := f.store.WriteStorage(ctx, key.Bytes(), wireformat.EncodePriceSnapshot(snapshot)); err != nil {
		return entities.PriceSnapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	f.mu.Lock()
	f.last = snapshot
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "feeder: snapshot written", "key", key.Hex(), "quotes", len(snapshot.Quotes))
	return snapshot, nil
}

func (f *Feeder) fetch(ctx context.Context, feed Feed, now uint64) (entities.PriceQuote, error) {
	raw, err := f.source.Fetch(ctx, feed.DataID)
	if err != nil {
		return entities.PriceQuote{}, err
	}
	price, err := ParseFixedPoint(string(raw), feed.Decimals)
	if err != nil {
		return entities.PriceQuote{}, err
	}
	return entities.PriceQuote{
		Symbol:    feed.Symbol,
		DataID:    feed.DataID,
		Price:     price,
		Decimals:  feed.Decimals,
		Timestamp: now,
	}, nil
}

// Last returns the most recently written snapshot.
func (f *Feeder) Last() entities.PriceSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Start schedules RunOnce on a cron schedule (e.g. "@every 30s" or
// "*/5 * * * *") and returns immediately.
func (f *Feeder) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { f.scheduled(ctx) }); err != nil {
		return fmt.Errorf("invalid feeder schedule %q: %w", schedule, err)
	}
	f.cron = c
	c.Start()
	return nil
}

func (f *Feeder) scheduled(ctx context.Context) {
	start := time.Now()
	_, err := f.RunOnce(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "feeder: run failed", "error", err)
	}
	if f.observer != nil {
		f.observer(time.Since(start), err)
	}
}

// Stop stops the schedule and waits for a running update to finish.
func (f *Feeder) Stop() {
	if f.cron == nil {
		return
	}
	<-f.cron.Stop().Done()
}
