package audit

import (
	"github.com/jose32011/beatbazaar/internal/audit/repository"
	"github.com/jose32011/beatbazaar/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
