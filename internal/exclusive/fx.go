package exclusive

import (
	"github.com/jose32011/beatbazaar/internal/exclusive/repository"
	"github.com/jose32011/beatbazaar/internal/exclusive/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exclusive.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
