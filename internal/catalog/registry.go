package catalog

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/smallbiznis/autobazaar/internal/authorization"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultRegistrySize = 64

type RegistryParams struct {
	fx.In

	Config        config.Config
	CatalogConfig *config.CatalogConfigHolder
	Source        vipdomain.PricingSource
	Clock         clock.Clock
	Log           *zap.Logger
}

// PricingRole maps a caller role to the role whose prices it pays. Only
// dealer, admin and system have their own prices; every other role, user
// included, gets the generic catalog ("").
func PricingRole(role string) string {
	switch role = strings.ToLower(strings.TrimSpace(role)); role {
	case authorization.RoleDealer, authorization.RoleAdmin, authorization.RoleSystem:
		return role
	}
	return ""
}

// Registry keeps one Catalog per pricing role. Least recently used roles are
// evicted and reload on next use.
type Registry struct {
	source vipdomain.PricingSource
	cfg    *config.CatalogConfigHolder
	clock  clock.Clock
	log    *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *Catalog]
}

func NewRegistry(p RegistryParams) (*Registry, error) {
	size := p.Config.CatalogRegistrySize
	if size <= 0 {
		size = defaultRegistrySize
	}
	log := p.Log.Named("catalog.registry")
	cache, err := lru.NewWithEvict[string, *Catalog](size, func(role string, _ *Catalog) {
		log.Debug("catalog evicted", zap.String("role", role))
	})
	if err != nil {
		return nil, err
	}
	return &Registry{
		source: p.Source,
		cfg:    p.CatalogConfig,
		clock:  p.Clock,
		log:    p.Log,
		cache:  cache,
	}, nil
}

// For returns the catalog for the caller's role, creating it on first use.
func (r *Registry) For(user vipdomain.UserContext) *Catalog {
	role := PricingRole(user.Role)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache.Get(role); ok {
		return c
	}
	c := New(r.source, vipdomain.UserContext{Role: role}, r.cfg, r.clock, r.log)
	r.cache.Add(role, c)
	return c
}

// Catalogs lists the registered catalogs, oldest first.
func (r *Registry) Catalogs() []*Catalog {
	return r.cache.Values()
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Affected returns the registered catalogs priced by rows of role. Generic
// rows ("") back every catalog.
func (r *Registry) Affected(role string) []*Catalog {
	role = PricingRole(role)
	if role == "" {
		return r.Catalogs()
	}
	if c, ok := r.cache.Peek(role); ok {
		return []*Catalog{c}
	}
	return nil
}
