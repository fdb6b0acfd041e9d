package dedup

import (
	"github.com/jose32011/beatbazaar/internal/dedup/repository"
	"github.com/jose32011/beatbazaar/internal/dedup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dedup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
