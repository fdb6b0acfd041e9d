// Package service implements the exclusive-purchase approval workflow. It
// is the authority for exclusive beats: approval, finalization and sibling
// rejection all run here, in single transactions spanning the request and
// purchase tables so no interleaving can produce two winners.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/exclusive/domain"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	purchaseRepo purchasedomain.Repository
	paymentRepo  paymentdomain.Repository
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
	PaymentRepo  paymentdomain.Repository
	Audit        auditdomain.Service
	Cfg          config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("exclusive.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		purchaseRepo: p.PurchaseRepo,
		paymentRepo:  p.PaymentRepo,
		audit:        p.Audit,
		txTimeout:    time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (domain.ExclusivePurchaseRequest, error) {
	if strings.TrimSpace(req.UserID) == "" || req.BeatID == 0 || req.PurchaseID == 0 {
		return domain.ExclusivePurchaseRequest{}, domain.ErrInvalidRequest
	}

	now := s.clock.Now()
	request := domain.ExclusivePurchaseRequest{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		BeatID:        req.BeatID,
		PurchaseID:    req.PurchaseID,
		AmountCents:   req.AmountCents,
		Status:        domain.RequestStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &request)
	})
	if err != nil {
		return domain.ExclusivePurchaseRequest{}, err
	}
	return request, nil
}

func (s *Service) Approve(ctx context.Context, requestID snowflake.ID, adminID string) (domain.ExclusivePurchaseRequest, error) {
	if strings.TrimSpace(adminID) == "" {
		return domain.ExclusivePurchaseRequest{}, domain.ErrInvalidRequest
	}

	var result domain.ExclusivePurchaseRequest
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		request, err := s.repo.FindByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return domain.ErrRequestNotFound
		}
		if request.Status != domain.RequestStatusPending {
			return domain.ErrRequestNotPending
		}

		// Locking the whole beat keeps two concurrent approvals from both
		// passing the no-other-winner check.
		siblings, err := s.repo.ListByBeatForUpdate(ctx, tx, request.BeatID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.ID == request.ID {
				continue
			}
			if sibling.Status == domain.RequestStatusApproved || sibling.Status == domain.RequestStatusCompleted {
				return purchasedomain.ErrExclusivityViolation
			}
		}

		now := s.clock.Now()
		if err := s.repo.Update(ctx, tx, request.ID, map[string]any{
			"status":      domain.RequestStatusApproved,
			"approved_by": adminID,
			"approved_at": now,
			"updated_at":  now,
		}); err != nil {
			return err
		}

		purchase, err := s.purchaseRepo.FindByIDForUpdate(ctx, tx, request.PurchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return purchasedomain.ErrPurchaseNotFound
		}
		if purchase.Status != purchasedomain.PurchaseStatusPending {
			return purchasedomain.ErrInvalidTransition
		}
		if err := s.purchaseRepo.UpdateStatus(ctx, tx, purchase.ID, purchasedomain.PurchaseStatusApproved, &adminID, &now); err != nil {
			return err
		}

		request.Status = domain.RequestStatusApproved
		request.ApprovedBy = &adminID
		request.ApprovedAt = &now
		result = *request
		return nil
	})
	if err != nil {
		return domain.ExclusivePurchaseRequest{}, err
	}
	s.recordDecision(ctx, adminID, "exclusive.approve", result)
	return result, nil
}

func (s *Service) ConfirmAndComplete(ctx context.Context, requestID snowflake.ID, adminID string) (domain.ExclusivePurchaseRequest, error) {
	var result domain.ExclusivePurchaseRequest
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		request, err := s.repo.FindByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return domain.ErrRequestNotFound
		}
		if request.Status == domain.RequestStatusCompleted {
			// Replayed completion.
			result = *request
			return nil
		}
		if request.Status != domain.RequestStatusApproved {
			return domain.ErrRequestNotApproved
		}

		payment, err := s.paymentRepo.FindApprovedByPurchase(ctx, tx, request.PurchaseID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotApproved
		}

		now := s.clock.Now()
		if err := s.finalizePurchases(ctx, tx, request.BeatID, request.PurchaseID, adminID, now); err != nil {
			return err
		}
		if err := s.rejectSiblingRequests(ctx, tx, request, adminID, now); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, tx, request.ID, map[string]any{
			"status":       domain.RequestStatusCompleted,
			"payment_id":   payment.ID,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		request.Status = domain.RequestStatusCompleted
		request.PaymentID = &payment.ID
		request.CompletedAt = &now
		result = *request
		return nil
	})
	if err != nil {
		return domain.ExclusivePurchaseRequest{}, err
	}
	s.recordDecision(ctx, adminID, "exclusive.complete", result)
	return result, nil
}

// finalizePurchases completes the winner and rejects every other
// non-terminal purchase of the beat under one row-lock sweep.
func (s *Service) finalizePurchases(ctx context.Context, tx *gorm.DB, beatID, winnerID snowflake.ID, adminID string, now time.Time) error {
	purchases, err := s.purchaseRepo.ListByBeatForUpdate(ctx, tx, beatID)
	if err != nil {
		return err
	}

	var winner *purchasedomain.Purchase
	for i := range purchases {
		if purchases[i].ID == winnerID {
			winner = &purchases[i]
			continue
		}
		if purchases[i].Status == purchasedomain.PurchaseStatusCompleted {
			return purchasedomain.ErrExclusivityViolation
		}
	}
	if winner == nil {
		return purchasedomain.ErrPurchaseNotFound
	}
	if winner.Status == purchasedomain.PurchaseStatusRejected {
		return purchasedomain.ErrInvalidTransition
	}

	admin := &adminID
	if strings.TrimSpace(adminID) == "" {
		admin = nil
	}

	if winner.Status != purchasedomain.PurchaseStatusCompleted {
		if err := s.purchaseRepo.UpdateStatus(ctx, tx, winner.ID, purchasedomain.PurchaseStatusCompleted, admin, &now); err != nil {
			return err
		}
	}
	for i := range purchases {
		p := purchases[i]
		if p.ID == winnerID || p.Status.Terminal() {
			continue
		}
		if err := s.purchaseRepo.UpdateStatus(ctx, tx, p.ID, purchasedomain.PurchaseStatusRejected, admin, &now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) rejectSiblingRequests(ctx context.Context, tx *gorm.DB, winner *domain.ExclusivePurchaseRequest, adminID string, now time.Time) error {
	siblings, err := s.repo.ListByBeatForUpdate(ctx, tx, winner.BeatID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.ID == winner.ID || sibling.Status.Terminal() {
			continue
		}
		if err := s.repo.Update(ctx, tx, sibling.ID, map[string]any{
			"status":      domain.RequestStatusRejected,
			"admin_notes": appendNote(sibling.AdminNotes, "beat sold exclusively to another buyer"),
			"approved_by": adminID,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		s.log.Info("exclusive request rejected by finalization",
			zap.Int64("request_id", sibling.ID.Int64()),
			zap.Int64("beat_id", winner.BeatID.Int64()),
		)
	}
	return nil
}

func (s *Service) Reject(ctx context.Context, requestID snowflake.ID, adminID string, reason string) (domain.ExclusivePurchaseRequest, error) {
	if strings.TrimSpace(adminID) == "" {
		return domain.ExclusivePurchaseRequest{}, domain.ErrInvalidRequest
	}

	var result domain.ExclusivePurchaseRequest
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		request, err := s.repo.FindByIDForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return domain.ErrRequestNotFound
		}
		if request.Status.Terminal() {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		if err := s.repo.Update(ctx, tx, request.ID, map[string]any{
			"status":      domain.RequestStatusRejected,
			"admin_notes": appendNote(request.AdminNotes, reason),
			"approved_by": adminID,
			"updated_at":  now,
		}); err != nil {
			return err
		}

		purchase, err := s.purchaseRepo.FindByIDForUpdate(ctx, tx, request.PurchaseID)
		if err != nil {
			return err
		}
		if purchase != nil && !purchase.Status.Terminal() {
			if err := s.purchaseRepo.UpdateStatus(ctx, tx, purchase.ID, purchasedomain.PurchaseStatusRejected, &adminID, &now); err != nil {
				return err
			}
		}

		request.Status = domain.RequestStatusRejected
		result = *request
		return nil
	})
	if err != nil {
		return domain.ExclusivePurchaseRequest{}, err
	}
	s.recordDecision(ctx, adminID, "exclusive.reject", result)
	return result, nil
}

func (s *Service) Get(ctx context.Context, requestID snowflake.ID) (domain.ExclusivePurchaseRequest, error) {
	request, err := s.repo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return domain.ExclusivePurchaseRequest{}, err
	}
	if request == nil {
		return domain.ExclusivePurchaseRequest{}, domain.ErrRequestNotFound
	}
	return *request, nil
}

func (s *Service) ListPending(ctx context.Context) ([]domain.ExclusivePurchaseRequest, error) {
	return s.repo.ListPending(ctx, s.db)
}

// recordDecision writes the admin decision to the audit trail. An audit
// miss never undoes the decision itself.
func (s *Service) recordDecision(ctx context.Context, adminID, action string, request domain.ExclusivePurchaseRequest) {
	targetID := request.ID.String()
	err := s.audit.Record(ctx, auditdomain.ActorTypeAdmin, &adminID, action, "exclusive_request", &targetID, map[string]any{
		"beat_id":     request.BeatID.String(),
		"purchase_id": request.PurchaseID.String(),
		"user_id":     request.UserID,
		"status":      string(request.Status),
	})
	if err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func appendNote(notes, entry string) string {
	if entry == "" {
		return notes
	}
	if notes == "" {
		return entry
	}
	return notes + "\n" + entry
}
