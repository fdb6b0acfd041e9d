package migration

import (
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	catalogdomain "github.com/jose32011/beatbazaar/internal/catalog/domain"
	"github.com/jose32011/beatbazaar/internal/config"
	exclusivedomain "github.com/jose32011/beatbazaar/internal/exclusive/domain"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/internal/seed"
	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations target postgres. Other dialects (sqlite in
		// tests, mysql) get the schema from the models directly.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&catalogdomain.Beat{},
				&purchasedomain.Purchase{},
				&paymentdomain.PaymentRecord{},
				&paymentdomain.EventRecord{},
				&exclusivedomain.ExclusivePurchaseRequest{},
				&verificationdomain.VerificationCode{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoBeats(conn)
		}
		return nil
	}),
)
