// Package webhook ingests payment-provider callbacks. Deliveries are
// at-least-once and untrusted: every event is recorded exactly once by
// (provider, event id), validated against the open payment record, and
// anomalies are acknowledged rather than bounced back to the provider.
package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/payment/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Callback is the normalized provider notification.
type Callback struct {
	EventID       string `json:"event_id"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
}

// Result reports what ingestion did with a callback, for the handler's log
// line and the provider acknowledgment.
type Result struct {
	Duplicate bool   `json:"duplicate"`
	Anomaly   string `json:"anomaly,omitempty"`
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	PaymentSvc domain.Service
	Cfg        config.Config
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	paymentSvc domain.Service
	txTimeout  time.Duration
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		txTimeout:  time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

// Ingest processes one provider callback. Returned errors mean the payload
// itself was unusable; business anomalies come back in Result and are acked.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte) (Result, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || !json.Valid(payload) {
		return Result{}, domain.ErrInvalidPayload
	}

	var cb Callback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return Result{}, domain.ErrInvalidPayload
	}
	if cb.Reference == "" || cb.TransactionID == "" {
		return Result{}, domain.ErrInvalidPayload
	}
	if cb.Status != domain.EventStatusApproved && cb.Status != domain.EventStatusFailed {
		return Result{}, domain.ErrInvalidPayload
	}

	// Providers that omit an event id are deduplicated by logical outcome,
	// the (transactionId, status) pair.
	eventID := strings.TrimSpace(cb.EventID)
	if eventID == "" {
		eventID = cb.TransactionID + ":" + cb.Status
	}

	event := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: eventID,
		TransactionID:   cb.TransactionID,
		Reference:       cb.Reference,
		Status:          cb.Status,
		AmountCents:     cb.AmountCents,
		Currency:        strings.ToUpper(strings.TrimSpace(cb.Currency)),
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      s.clock.Now(),
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &event)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		s.log.Info("duplicate payment event ignored",
			zap.String("provider", provider),
			zap.String("provider_event_id", eventID),
		)
		return Result{Duplicate: true}, nil
	}

	anomaly := s.apply(ctx, provider, event, cb)
	if err := s.repo.MarkEventProcessed(ctx, s.db, event.ID, s.clock.Now()); err != nil {
		s.log.Warn("payment event not marked processed", zap.Error(err))
	}
	if anomaly != "" {
		return Result{Anomaly: anomaly}, nil
	}
	return Result{}, nil
}

// apply resolves the callback to a payment record and drives the payment
// service. Returns a non-empty anomaly code when the event cannot be
// trusted or matched; those are logged and acknowledged, since the
// provider will not usefully retry a permanent mismatch.
func (s *Service) apply(ctx context.Context, provider string, event domain.EventRecord, cb Callback) string {
	var record *domain.PaymentRecord
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		found, err := s.repo.FindByReferenceForUpdate(ctx, tx, cb.Reference)
		if err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		s.log.Error("payment event lookup failed", zap.Error(err))
		return "lookup_failed"
	}
	if record == nil {
		s.log.Warn("payment event for unknown reference",
			zap.String("provider", provider),
			zap.String("reference", cb.Reference),
			zap.String("transaction_id", cb.TransactionID),
		)
		return domain.ErrUnknownReference.Error()
	}

	if cb.Status == domain.EventStatusApproved {
		if cb.AmountCents != record.AmountCents || event.Currency != record.Currency {
			s.log.Warn("payment event amount mismatch",
				zap.String("provider", provider),
				zap.String("reference", cb.Reference),
				zap.Int64("expected_cents", record.AmountCents),
				zap.Int64("got_cents", cb.AmountCents),
				zap.String("expected_currency", record.Currency),
				zap.String("got_currency", event.Currency),
			)
			return domain.ErrAmountMismatch.Error()
		}

		if _, err := s.paymentSvc.Confirm(ctx, domain.ConfirmRequest{
			PaymentID:     record.ID,
			TransactionID: cb.TransactionID,
			ApprovedBy:    "provider:" + provider,
		}); err != nil {
			s.log.Warn("payment confirmation anomaly",
				zap.String("provider", provider),
				zap.String("reference", cb.Reference),
				zap.Error(err),
			)
			return err.Error()
		}
		return ""
	}

	if _, err := s.paymentSvc.Fail(ctx, record.ID, cb.Reason); err != nil {
		s.log.Warn("payment failure anomaly",
			zap.String("provider", provider),
			zap.String("reference", cb.Reference),
			zap.Error(err),
		)
		return err.Error()
	}
	return ""
}
