package listing

import (
	listingdomain "github.com/smallbiznis/autobazaar/internal/listing/domain"
	"github.com/smallbiznis/autobazaar/internal/listing/repository"
	"github.com/smallbiznis/autobazaar/internal/listing/service"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s listingdomain.Service) vipdomain.ListingStore { return s }),
)
