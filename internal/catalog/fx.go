package catalog

import (
	"github.com/jose32011/beatbazaar/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(service.NewService),
)
