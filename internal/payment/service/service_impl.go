package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/payment/domain"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	purchaseRepo purchasedomain.Repository
	ledger       purchasedomain.Service
	audit        auditdomain.Service
	txTimeout    time.Duration
}

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	PurchaseRepo purchasedomain.Repository
	Ledger       purchasedomain.Service
	Audit        auditdomain.Service
	Cfg          config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		purchaseRepo: p.PurchaseRepo,
		ledger:       p.Ledger,
		audit:        p.Audit,
		txTimeout:    time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (domain.PaymentRecord, error) {
	if req.PurchaseID == 0 || strings.TrimSpace(req.CustomerID) == "" || req.AmountCents <= 0 {
		return domain.PaymentRecord{}, domain.ErrInvalidRequest
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.clock.Now()
	record := domain.PaymentRecord{
		ID:            s.genID.Generate(),
		PurchaseID:    req.PurchaseID,
		CustomerID:    req.CustomerID,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		Method:        req.Method,
		Status:        domain.PaymentStatusPending,
		BankReference: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		purchase, err := s.ledger.Get(ctx, req.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status.Terminal() {
			return purchasedomain.ErrPurchaseNotPending
		}

		open, err := s.repo.FindOpenByPurchase(ctx, tx, req.PurchaseID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrPaymentAlreadyOpen
		}

		return s.repo.Insert(ctx, tx, &record)
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	return record, nil
}

func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (domain.PaymentRecord, error) {
	if req.PaymentID == 0 {
		return domain.PaymentRecord{}, domain.ErrInvalidRequest
	}

	var record domain.PaymentRecord
	var lateApproval bool
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrPaymentNotFound
		}

		switch found.Status {
		case domain.PaymentStatusApproved:
			// Duplicate provider callback. Keep the original stamps.
			record = *found
			return nil
		case domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()

		purchase, err := s.purchaseRepo.FindByIDForUpdate(ctx, tx, found.PurchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return purchasedomain.ErrPurchaseNotFound
		}
		if purchase.Status == purchasedomain.PurchaseStatusRejected {
			// A late provider approval must never leave an approved record
			// on a rejected purchase. Fail the record and keep the anomaly
			// visible on its notes.
			notes := found.Notes
			if notes != "" {
				notes += "\n"
			}
			notes += "provider approval received after purchase rejection"
			if err := s.repo.Update(ctx, tx, found.ID, map[string]any{
				"status":     domain.PaymentStatusFailed,
				"notes":      notes,
				"updated_at": now,
			}); err != nil {
				return err
			}
			found.Status = domain.PaymentStatusFailed
			found.Notes = notes
			record = *found
			lateApproval = true
			return nil
		}

		approvedBy := strings.TrimSpace(req.ApprovedBy)
		updates := map[string]any{
			"status":         domain.PaymentStatusApproved,
			"transaction_id": req.TransactionID,
			"approved_at":    now,
			"approved_by":    approvedBy,
			"updated_at":     now,
		}
		if err := s.repo.Update(ctx, tx, found.ID, updates); err != nil {
			return err
		}

		found.Status = domain.PaymentStatusApproved
		found.TransactionID = req.TransactionID
		found.ApprovedAt = &now
		found.ApprovedBy = &approvedBy
		record = *found
		return nil
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if lateApproval {
		s.log.Warn("payment approval against rejected purchase",
			zap.Int64("payment_id", record.ID.Int64()),
			zap.Int64("purchase_id", record.PurchaseID.Int64()),
			zap.String("transaction_id", req.TransactionID),
		)
		return record, purchasedomain.ErrInvalidTransition
	}

	// Advancing the ledger is its own idempotent transaction: if the process
	// dies between the two, the provider's redelivery converges the state.
	if _, err := s.ledger.RecordPayment(ctx, record.PurchaseID, purchasedomain.OutcomeSuccess); err != nil {
		if errors.Is(err, purchasedomain.ErrInvalidTransition) {
			s.log.Warn("payment confirmed against terminal purchase",
				zap.Int64("payment_id", record.ID.Int64()),
				zap.Int64("purchase_id", record.PurchaseID.Int64()),
				zap.String("transaction_id", record.TransactionID),
			)
			return record, purchasedomain.ErrInvalidTransition
		}
		return record, err
	}
	return record, nil
}

func (s *Service) Fail(ctx context.Context, paymentID snowflake.ID, reason string) (domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrPaymentNotFound
		}

		switch found.Status {
		case domain.PaymentStatusFailed:
			record = *found
			return nil
		case domain.PaymentStatusApproved, domain.PaymentStatusRefunded:
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		notes := found.Notes
		if reason != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += reason
		}
		if err := s.repo.Update(ctx, tx, found.ID, map[string]any{
			"status":     domain.PaymentStatusFailed,
			"notes":      notes,
			"updated_at": now,
		}); err != nil {
			return err
		}

		found.Status = domain.PaymentStatusFailed
		found.Notes = notes
		record = *found
		return nil
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if _, err := s.ledger.RecordPayment(ctx, record.PurchaseID, purchasedomain.OutcomeFailure); err != nil {
		if errors.Is(err, purchasedomain.ErrInvalidTransition) {
			// Terminal purchase; the failure is an anomaly, not a retry.
			s.log.Warn("payment failure against terminal purchase",
				zap.Int64("payment_id", record.ID.Int64()),
				zap.Int64("purchase_id", record.PurchaseID.Int64()),
			)
			return record, nil
		}
		return record, err
	}
	return record, nil
}

func (s *Service) Refund(ctx context.Context, paymentID snowflake.ID, adminID string, note string) (domain.PaymentRecord, error) {
	if strings.TrimSpace(adminID) == "" {
		return domain.PaymentRecord{}, domain.ErrInvalidRequest
	}

	var record domain.PaymentRecord
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		found, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrPaymentNotFound
		}
		if found.Status != domain.PaymentStatusApproved {
			return domain.ErrPaymentNotApproved
		}

		now := s.clock.Now()
		notes := found.Notes
		entry := "refunded by " + adminID
		if note != "" {
			entry += ": " + note
		}
		if notes != "" {
			notes += "\n"
		}
		notes += entry

		if err := s.repo.Update(ctx, tx, found.ID, map[string]any{
			"status":     domain.PaymentStatusRefunded,
			"notes":      notes,
			"updated_at": now,
		}); err != nil {
			return err
		}

		found.Status = domain.PaymentStatusRefunded
		found.Notes = notes
		record = *found
		return nil
	})
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	// The purchase keeps its completed status; the refund is visible on its
	// notes for the operator who decides any follow-up.
	if err := s.ledger.AppendNote(ctx, record.PurchaseID, "payment "+record.BankReference+" refunded by "+adminID); err != nil {
		s.log.Warn("refund note not recorded on purchase",
			zap.Int64("purchase_id", record.PurchaseID.Int64()),
			zap.Error(err),
		)
	}

	targetID := record.ID.String()
	if err := s.audit.Record(ctx, auditdomain.ActorTypeAdmin, &adminID, "payment.refund", "payment_record", &targetID, map[string]any{
		"purchase_id":    record.PurchaseID.String(),
		"bank_reference": record.BankReference,
		"amount_cents":   record.AmountCents,
	}); err != nil {
		s.log.Warn("refund audit record failed", zap.Error(err))
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, paymentID snowflake.ID) (domain.PaymentRecord, error) {
	record, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if record == nil {
		return domain.PaymentRecord{}, domain.ErrPaymentNotFound
	}
	return *record, nil
}

func (s *Service) GetApprovedByPurchase(ctx context.Context, purchaseID snowflake.ID) (domain.PaymentRecord, error) {
	record, err := s.repo.FindApprovedByPurchase(ctx, s.db, purchaseID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if record == nil {
		return domain.PaymentRecord{}, domain.ErrPaymentNotFound
	}
	return *record, nil
}

func (s *Service) ListByPurchase(ctx context.Context, purchaseID snowflake.ID) ([]domain.PaymentRecord, error) {
	return s.repo.ListByPurchase(ctx, s.db, purchaseID)
}
