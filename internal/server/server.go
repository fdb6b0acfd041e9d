package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jose32011/beatbazaar/internal/audit"
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	"github.com/jose32011/beatbazaar/internal/catalog"
	catalogdomain "github.com/jose32011/beatbazaar/internal/catalog/domain"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/dedup"
	dedupdomain "github.com/jose32011/beatbazaar/internal/dedup/domain"
	"github.com/jose32011/beatbazaar/internal/exclusive"
	exclusivedomain "github.com/jose32011/beatbazaar/internal/exclusive/domain"
	"github.com/jose32011/beatbazaar/internal/logger"
	"github.com/jose32011/beatbazaar/internal/observability"
	obsmetrics "github.com/jose32011/beatbazaar/internal/observability/metrics"
	"github.com/jose32011/beatbazaar/internal/payment"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	"github.com/jose32011/beatbazaar/internal/payment/webhook"
	"github.com/jose32011/beatbazaar/internal/providers"
	"github.com/jose32011/beatbazaar/internal/purchase"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/internal/ratelimit"
	"github.com/jose32011/beatbazaar/internal/verification"
	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.Module,
	fx.Provide(registerGin),
	audit.Module,
	catalog.Module,
	purchase.Module,
	payment.Module,
	exclusive.Module,
	verification.Module,
	dedup.Module,
	providers.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	catalogSvc      catalogdomain.Service
	purchaseSvc     purchasedomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      *webhook.Service
	exclusiveSvc    exclusivedomain.Service
	verificationSvc verificationdomain.Service
	dedupSvc        dedupdomain.Service
	auditSvc        auditdomain.Service
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	CatalogSvc      catalogdomain.Service
	PurchaseSvc     purchasedomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      *webhook.Service
	ExclusiveSvc    exclusivedomain.Service
	VerificationSvc verificationdomain.Service
	DedupSvc        dedupdomain.Service
	AuditSvc        auditdomain.Service
	Metrics         *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		catalogSvc:      p.CatalogSvc,
		purchaseSvc:     p.PurchaseSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		exclusiveSvc:    p.ExclusiveSvc,
		verificationSvc: p.VerificationSvc,
		dedupSvc:        p.DedupSvc,
		auditSvc:        p.AuditSvc,
		metrics:         p.Metrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/beats", s.ListBeats)
	api.GET("/beats/:slug", s.GetBeat)

	api.POST("/checkout", s.Checkout)
	api.GET("/purchases", s.ListPurchases)
	api.GET("/purchases/:id", s.GetPurchase)
	api.GET("/purchases/:id/payments", s.ListPurchasePayments)

	api.POST("/password-reset/request", s.RequestPasswordReset)
	api.POST("/password-reset/verify", s.VerifyPasswordReset)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.PaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())

	admin.GET("/exclusive-requests", s.ListPendingExclusiveRequests)
	admin.GET("/exclusive-requests/:id", s.GetExclusiveRequest)
	admin.POST("/exclusive-requests/:id/approve", s.ApproveExclusiveRequest)
	admin.POST("/exclusive-requests/:id/reject", s.RejectExclusiveRequest)
	admin.POST("/exclusive-requests/:id/complete", s.CompleteExclusiveRequest)

	admin.POST("/payments/:id/refund", s.RefundPayment)
	admin.POST("/purchases/:id/notes", s.AppendPurchaseNote)

	admin.GET("/duplicates", s.ListDuplicateGroups)
	admin.POST("/duplicates/resolve", s.ResolveDuplicateGroup)
	admin.POST("/duplicates/sweep", s.SweepDuplicates)

	admin.GET("/audit-logs", s.ListAuditLogs)
}
