package providers

import (
	"github.com/jose32011/beatbazaar/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
