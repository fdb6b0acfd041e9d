package verification

import (
	"github.com/jose32011/beatbazaar/internal/verification/repository"
	"github.com/jose32011/beatbazaar/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
