package activation

import (
	"github.com/smallbiznis/autobazaar/internal/activation/repository"
	"github.com/smallbiznis/autobazaar/internal/activation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
