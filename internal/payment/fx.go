package payment

import (
	"github.com/jose32011/beatbazaar/internal/payment/repository"
	paymentservice "github.com/jose32011/beatbazaar/internal/payment/service"
	"github.com/jose32011/beatbazaar/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
