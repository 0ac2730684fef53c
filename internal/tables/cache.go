// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tables

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/pkg/errutil"
)

// Listener abstracts a change-notification feed (PostgreSQL LISTEN/NOTIFY in production).
// The returned channel emits notification payloads and closes when ctx is cancelled.
type Listener interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// CacheOption configures Cache behavior.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	stalenessThreshold time.Duration
	lastUpdateGauge    prometheus.Gauge
	failureCounter     prometheus.Counter
	entriesGauge       *prometheus.GaugeVec
	logger             *slog.Logger
}

// WithStalenessThreshold sets the duration after which a loaded cache is considered stale.
// Zero disables staleness detection.
func WithStalenessThreshold(d time.Duration) CacheOption {
	return func(c *cacheConfig) {
		c.stalenessThreshold = d
	}
}

// WithLastUpdateGauge sets the gauge recording the last successful reload timestamp.
func WithLastUpdateGauge(g prometheus.Gauge) CacheOption {
	return func(c *cacheConfig) {
		c.lastUpdateGauge = g
	}
}

// WithReloadFailureCounter sets the counter incremented on every failed reload.
func WithReloadFailureCounter(ctr prometheus.Counter) CacheOption {
	return func(c *cacheConfig) {
		c.failureCounter = ctr
	}
}

// WithEntriesGauge sets the gauge vector (label "kind") recording snapshot sizes.
func WithEntriesGauge(g *prometheus.GaugeVec) CacheOption {
	return func(c *cacheConfig) {
		c.entriesGauge = g
	}
}

// WithLogger sets the logger used by background reload loops.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *cacheConfig) {
		c.logger = l
	}
}

// Cache serves credential and permission lookups from the current Snapshot
// and swaps in a new one on Reload.
type Cache struct {
	source Source
	cfg    cacheConfig

	mu       sync.RWMutex
	snapshot *Snapshot

	// lastUpdate stores the Unix timestamp in nanoseconds of the last successful reload.
	// Zero means no reload has occurred.
	lastUpdate atomic.Int64

	wg sync.WaitGroup
}

// NewCache creates a Cache backed by src. Call Reload to populate it before use;
// until then every lookup misses.
func NewCache(src Source, opts ...CacheOption) *Cache {
	cfg := cacheConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Cache{
		source:   src,
		cfg:      cfg,
		snapshot: emptySnapshot(),
	}
}

// Snapshot returns the current snapshot. Snapshots are immutable.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Reload loads the source, builds a new snapshot and swaps it in.
// On failure the previous snapshot stays in place.
func (c *Cache) Reload(ctx context.Context) error {
	if err := c.reload(ctx); err != nil {
		if c.cfg.failureCounter != nil {
			c.cfg.failureCounter.Inc()
		}
		return err
	}
	return nil
}

func (c *Cache) reload(ctx context.Context) error {
	t, err := c.source.Load(ctx)
	if err != nil {
		return oops.In("tables").Code("TABLES_RELOAD_FAILED").With("source", c.source.Name()).Wrap(err)
	}
	snap, err := NewSnapshot(c.source.Name(), t)
	if err != nil {
		return oops.In("tables").Code("TABLES_RELOAD_FAILED").With("source", c.source.Name()).Wrap(err)
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	now := time.Now()
	c.lastUpdate.Store(now.UnixNano())

	if c.cfg.lastUpdateGauge != nil {
		c.cfg.lastUpdateGauge.Set(float64(now.Unix()))
	}
	if c.cfg.entriesGauge != nil {
		c.cfg.entriesGauge.WithLabelValues("credentials").Set(float64(snap.Identities()))
		c.cfg.entriesGauge.WithLabelValues("resources").Set(float64(snap.Resources()))
	}
	return nil
}

// Loaded reports whether at least one reload has succeeded.
func (c *Cache) Loaded() bool {
	return c.lastUpdate.Load() != 0
}

// LastUpdate returns the time of the last successful reload, or the zero time.
func (c *Cache) LastUpdate() time.Time {
	last := c.lastUpdate.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last)
}

// IsStale reports whether the cache was never loaded, or was last loaded
// longer ago than the staleness threshold.
func (c *Cache) IsStale() bool {
	last := c.lastUpdate.Load()
	if last == 0 {
		return true
	}
	if c.cfg.stalenessThreshold <= 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) > c.cfg.stalenessThreshold
}

// Ticket implements realm.CredentialLookup against the current snapshot.
func (c *Cache) Ticket(ctx context.Context, authid string) (string, bool, error) {
	return c.Snapshot().Ticket(ctx, authid)
}

// Permission implements realm.PermissionLookup against the current snapshot.
func (c *Cache) Permission(ctx context.Context, resource, authid string) (realm.Permission, bool, error) {
	return c.Snapshot().Permission(ctx, resource, authid)
}

// StartWithListener spawns a goroutine that reloads on every notification.
// The goroutine exits when ctx is cancelled or the channel closes.
func (c *Cache) StartWithListener(ctx context.Context, listener Listener) error {
	ch, err := listener.Listen(ctx)
	if err != nil {
		return oops.In("tables").Code("TABLES_LISTEN_FAILED").With("source", c.source.Name()).Wrap(err)
	}

	c.wg.Add(1)
	go c.listenLoop(ctx, ch)
	return nil
}

// StartPolling spawns a goroutine that reloads every interval until ctx is cancelled.
func (c *Cache) StartPolling(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return oops.In("tables").Code("TABLES_INVALID_INTERVAL").With("interval", interval.String()).
			Errorf("poll interval must be positive")
	}

	c.wg.Add(1)
	go c.pollLoop(ctx, interval)
	return nil
}

// Wait blocks until all background goroutines have exited.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) listenLoop(ctx context.Context, ch <-chan string) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			c.cfg.logger.DebugContext(ctx, "tables change notification", "payload", payload)
			if err := c.Reload(ctx); err != nil {
				errutil.LogErrorContext(ctx, c.cfg.logger, "tables reload on notification failed", err)
			}
		}
	}
}

func (c *Cache) pollLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Reload(ctx); err != nil {
				errutil.LogErrorContext(ctx, c.cfg.logger, "tables reload on poll failed", err)
			}
		}
	}
}

// Verify interfaces are satisfied.
var (
	_ realm.CredentialLookup = (*Cache)(nil)
	_ realm.PermissionLookup = (*Cache)(nil)
)
