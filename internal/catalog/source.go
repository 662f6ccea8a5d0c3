package catalog

import (
	"context"

	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type SourceParams struct {
	fx.In

	DB   *gorm.DB
	Repo catalogdomain.Repository
}

// DBSource serves the catalog from vip_pricing_entries.
type DBSource struct {
	db   *gorm.DB
	repo catalogdomain.Repository
}

func NewDBSource(p SourceParams) *DBSource {
	return &DBSource{db: p.DB, repo: p.Repo}
}

// Fetch returns generic pricing with every service type that has a row for
// the caller's role replaced by that row. Role rows are never merged field by
// field with generic rows.
func (s *DBSource) Fetch(ctx context.Context, user vipdomain.UserContext) ([]vipdomain.PricingEntry, error) {
	role := PricingRole(user.Role)
	roles := []string{""}
	if role != "" {
		roles = append(roles, role)
	}

	rows, err := s.repo.ListActive(ctx, s.db, roles...)
	if err != nil {
		return nil, err
	}

	generic := make(map[string]catalogdomain.PricingEntryRow, len(rows))
	scoped := make(map[string]catalogdomain.PricingEntryRow)
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, seen := generic[row.ServiceType]; !seen {
			if _, seen := scoped[row.ServiceType]; !seen {
				order = append(order, row.ServiceType)
			}
		}
		if row.Role == "" {
			generic[row.ServiceType] = row
		} else {
			scoped[row.ServiceType] = row
		}
	}

	entries := make([]vipdomain.PricingEntry, 0, len(order))
	for _, st := range order {
		if row, ok := scoped[st]; ok {
			entries = append(entries, row.Entry())
			continue
		}
		entries = append(entries, generic[st].Entry())
	}
	return entries, nil
}
