// Package catalog owns the in-memory pricing snapshot a storefront session
// prices against.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/zap"
)

type Origin string

const (
	OriginLive          Origin = "live"
	OriginLastKnownGood Origin = "last_known_good"
	OriginDefaults      Origin = "defaults"
)

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	entries  map[vipdomain.ServiceType]vipdomain.PricingEntry
	Origin   Origin
	Loaded   bool
	LoadedAt time.Time
}

func (s *Snapshot) Lookup(serviceType vipdomain.ServiceType) (vipdomain.PricingEntry, bool) {
	if s == nil {
		return vipdomain.PricingEntry{}, false
	}
	entry, ok := s.entries[serviceType]
	return entry, ok
}

// Entries lists the snapshot in catalog order.
func (s *Snapshot) Entries() []vipdomain.PricingEntry {
	if s == nil {
		return nil
	}
	out := make([]vipdomain.PricingEntry, 0, len(s.entries))
	for _, st := range vipdomain.AllServiceTypes {
		if entry, ok := s.entries[st]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// Catalog holds the current snapshot for one pricing scope. Readers always
// see a complete snapshot; fetches are serialised.
type Catalog struct {
	source vipdomain.PricingSource
	user   vipdomain.UserContext
	cfg    *config.CatalogConfigHolder
	clock  clock.Clock
	log    *zap.Logger

	mu       sync.Mutex
	current  atomic.Pointer[Snapshot]
	lastLive atomic.Pointer[Snapshot]
}

func New(source vipdomain.PricingSource, user vipdomain.UserContext, cfg *config.CatalogConfigHolder, clk clock.Clock, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Catalog{
		source: source,
		user:   user,
		cfg:    cfg,
		clock:  clk,
		log:    log.Named("catalog").With(zap.String("role", user.Role)),
	}
	c.current.Store(c.defaultsSnapshot())
	return c
}

func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

func (c *Catalog) Lookup(serviceType vipdomain.ServiceType) (vipdomain.PricingEntry, bool) {
	return c.Snapshot().Lookup(serviceType)
}

func (c *Catalog) Role() string {
	return c.user.Role
}

// Load fetches only if no live catalog has been loaded yet.
func (c *Catalog) Load(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap := c.current.Load(); snap.Loaded {
		return snap, nil
	}
	return c.fetchLocked(ctx)
}

// Refresh always re-fetches. On failure the previous live snapshot, or the
// defaults, stay published and the error wraps ErrCatalogUnavailable.
func (c *Catalog) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchLocked(ctx)
}

// StaleAfter reports whether the snapshot should be refreshed at now.
func (c *Catalog) StaleAfter(now time.Time) bool {
	snap := c.current.Load()
	if !snap.Loaded {
		return true
	}
	return now.Sub(snap.LoadedAt) >= c.cfg.Get().RefreshInterval
}

func (c *Catalog) fetchLocked(ctx context.Context) (*Snapshot, error) {
	if c.source == nil {
		return c.fallbackLocked(fmt.Errorf("%w: no pricing source", vipdomain.ErrCatalogUnavailable))
	}

	entries, err := c.source.Fetch(ctx, c.user)
	if err != nil {
		return c.fallbackLocked(fmt.Errorf("%w: %v", vipdomain.ErrCatalogUnavailable, err))
	}

	live, err := c.buildLive(entries)
	if err != nil {
		return c.fallbackLocked(fmt.Errorf("%w: %v", vipdomain.ErrCatalogUnavailable, err))
	}

	c.current.Store(live)
	c.lastLive.Store(live)
	c.log.Debug("catalog loaded", zap.Int("entries", len(live.entries)))
	return live, nil
}

func (c *Catalog) fallbackLocked(cause error) (*Snapshot, error) {
	if prev := c.lastLive.Load(); prev != nil {
		snap := *prev
		snap.Origin = OriginLastKnownGood
		c.current.Store(&snap)
		c.log.Warn("catalog fetch failed, serving last known good", zap.Error(cause))
		return &snap, cause
	}

	snap := c.defaultsSnapshot()
	c.current.Store(snap)
	c.log.Warn("catalog fetch failed, serving defaults", zap.Error(cause))
	return snap, cause
}

func (c *Catalog) buildLive(fetched []vipdomain.PricingEntry) (*Snapshot, error) {
	entries := make(map[vipdomain.ServiceType]vipdomain.PricingEntry, len(vipdomain.AllServiceTypes))
	for _, entry := range fetched {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry.ServiceType, err)
		}
		if _, dup := entries[entry.ServiceType]; dup {
			return nil, fmt.Errorf("duplicate entry %q", entry.ServiceType)
		}
		entry.Fallback = false
		entries[entry.ServiceType] = entry
	}

	for st, entry := range c.defaultEntries() {
		if _, ok := entries[st]; !ok {
			entries[st] = entry
		}
	}

	return &Snapshot{
		entries:  entries,
		Origin:   OriginLive,
		Loaded:   true,
		LoadedAt: c.clock.Now(),
	}, nil
}

func (c *Catalog) defaultsSnapshot() *Snapshot {
	return &Snapshot{entries: c.defaultEntries(), Origin: OriginDefaults}
}

func (c *Catalog) defaultEntries() map[vipdomain.ServiceType]vipdomain.PricingEntry {
	return DefaultEntries(c.cfg.Get())
}

// DefaultEntries converts configured fallback prices into catalog entries.
// Unknown service types in the config are skipped.
func DefaultEntries(cfg config.CatalogConfig) map[vipdomain.ServiceType]vipdomain.PricingEntry {
	out := make(map[vipdomain.ServiceType]vipdomain.PricingEntry, len(cfg.Defaults))
	for _, d := range cfg.Defaults {
		st, err := vipdomain.ParseServiceType(d.ServiceType)
		if err != nil {
			continue
		}
		out[st] = vipdomain.PricingEntry{
			ServiceType:  st,
			Price:        decimal.NewFromFloat(d.Price).Round(2),
			IsDailyPrice: d.IsDailyPrice,
			DurationDays: d.DurationDays,
			Fallback:     true,
		}
	}
	return out
}
