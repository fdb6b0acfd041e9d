package observability

import (
	"github.com/jose32011/beatbazaar/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(metrics.New),
)
