package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/observability/logger"
	"github.com/smallbiznis/autobazaar/internal/observability/metrics"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPricingEntryNotFound = errors.New("pricing_entry_not_found")
	ErrInvalidRole          = errors.New("invalid_role")
)

type ManagerParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     catalogdomain.Repository
	Registry *Registry
	Metrics  *metrics.Metrics `optional:"true"`
}

// Manager edits persisted prices and republishes the catalogs they feed.
type Manager struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     catalogdomain.Repository
	registry *Registry
	metrics  *metrics.Metrics
}

func NewManager(p ManagerParams) *Manager {
	return &Manager{
		db:       p.DB,
		log:      p.Log.Named("catalog.manager"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		registry: p.Registry,
		metrics:  p.Metrics,
	}
}

// List returns the active rows stored for role exactly, without generic rows
// filled in.
func (m *Manager) List(ctx context.Context, role string) ([]catalogdomain.PricingEntryRow, error) {
	role, err := storedRole(role)
	if err != nil {
		return nil, err
	}
	return m.repo.ListActive(ctx, m.db, role)
}

// Upsert stores entry as the active price of its service type for role.
func (m *Manager) Upsert(ctx context.Context, role string, entry vipdomain.PricingEntry) error {
	if !entry.ServiceType.Valid() {
		return vipdomain.ErrUnknownServiceType
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	role, err := storedRole(role)
	if err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	row := &catalogdomain.PricingEntryRow{
		ID:           m.genID.Generate(),
		ServiceType:  string(entry.ServiceType),
		Role:         role,
		Price:        entry.Price.Round(2),
		IsDailyPrice: entry.IsDailyPrice,
		DurationDays: entry.DurationDays,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.repo.Upsert(ctx, m.db, row); err != nil {
		return err
	}

	logger.WithContext(ctx, m.log).Info("pricing entry stored",
		zap.String("service_type", row.ServiceType),
		zap.String("role", role),
		zap.String("price", row.Price.StringFixed(2)),
	)
	m.republish(ctx, role)
	return nil
}

// Deactivate removes the role's price for serviceType. Catalogs of that role
// fall back to generic pricing on their next fetch.
func (m *Manager) Deactivate(ctx context.Context, role string, serviceType vipdomain.ServiceType) error {
	if !serviceType.Valid() {
		return vipdomain.ErrUnknownServiceType
	}
	role, err := storedRole(role)
	if err != nil {
		return err
	}
	ok, err := m.repo.Deactivate(ctx, m.db, string(serviceType), role, m.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrPricingEntryNotFound
	}

	logger.WithContext(ctx, m.log).Info("pricing entry deactivated",
		zap.String("service_type", string(serviceType)),
		zap.String("role", role),
	)
	m.republish(ctx, role)
	return nil
}

// republish refreshes the catalogs priced by role. A failed refresh keeps
// serving the previous snapshot and is only logged.
func (m *Manager) republish(ctx context.Context, role string) {
	for _, c := range m.registry.Affected(role) {
		snap, err := c.Refresh(ctx)
		if err != nil {
			m.log.Warn("catalog refresh after price change failed",
				zap.String("catalog_role", c.Role()),
				zap.Error(err),
			)
		}
		if snap != nil {
			m.metrics.RecordCatalogRefresh(ctx, c.Role(), string(snap.Origin))
		}
	}
}

// storedRole accepts generic pricing ("") and the roles that carry their own
// prices.
func storedRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && PricingRole(role) != role {
		return "", ErrInvalidRole
	}
	return role, nil
}
