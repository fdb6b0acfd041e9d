package purchase

import (
	"github.com/jose32011/beatbazaar/internal/purchase/repository"
	"github.com/jose32011/beatbazaar/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
