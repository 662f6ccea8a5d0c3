package catalog

import (
	"github.com/smallbiznis/autobazaar/internal/catalog/repository"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(NewDBSource, fx.As(new(vipdomain.PricingSource))),
	),
	fx.Provide(NewRegistry),
	fx.Provide(NewManager),
)
