package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	txTimeout time.Duration
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Cfg   config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("purchase.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		txTimeout: time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Purchase, error) {
	if strings.TrimSpace(req.UserID) == "" || req.BeatID == 0 {
		return domain.Purchase{}, domain.ErrInvalidRequest
	}

	purchase := domain.Purchase{
		ID:           s.genID.Generate(),
		UserID:       req.UserID,
		BeatID:       req.BeatID,
		BeatTitle:    req.BeatTitle,
		BeatProducer: req.BeatProducer,
		BeatAudioURL: req.BeatAudioURL,
		BeatImageURL: req.BeatImageURL,
		AmountCents:  req.AmountCents,
		Exclusive:    req.Exclusive,
		Status:       domain.PurchaseStatusPending,
		PurchasedAt:  s.clock.Now(),
	}

	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		existing, err := s.repo.FindActiveByUserAndBeat(ctx, tx, req.UserID, req.BeatID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateActivePurchase
		}

		if req.Exclusive {
			completed, err := s.repo.FindCompletedByBeat(ctx, tx, req.BeatID)
			if err != nil {
				return err
			}
			if completed != nil {
				return domain.ErrDuplicateActivePurchase
			}
		}

		return s.repo.Insert(ctx, tx, &purchase)
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return purchase, nil
}

func (s *Service) RecordPayment(ctx context.Context, purchaseID snowflake.ID, outcome domain.PaymentOutcome) (domain.Purchase, error) {
	if outcome != domain.OutcomeSuccess && outcome != domain.OutcomeFailure {
		return domain.Purchase{}, domain.ErrInvalidRequest
	}

	var result domain.Purchase
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		purchase, err := s.repo.FindByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return domain.ErrPurchaseNotFound
		}

		next, changed, err := s.nextStatus(*purchase, outcome)
		if err != nil {
			return err
		}
		if !changed {
			// At-least-once deliveries replay the same outcome.
			result = *purchase
			return nil
		}

		if next == domain.PurchaseStatusCompleted && purchase.Exclusive {
			// Completing an exclusive purchase must reject every sibling in
			// the same transaction.
			if err := s.finalizeExclusiveTx(ctx, tx, purchase.BeatID, purchase.ID, nil); err != nil {
				return err
			}
		} else if err := s.repo.UpdateStatus(ctx, tx, purchase.ID, next, nil, nil); err != nil {
			return err
		}

		purchase.Status = next
		result = *purchase
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return result, nil
}

// nextStatus applies the state table. changed=false marks an idempotent
// replay of an already-applied outcome.
func (s *Service) nextStatus(p domain.Purchase, outcome domain.PaymentOutcome) (domain.PurchaseStatus, bool, error) {
	switch outcome {
	case domain.OutcomeSuccess:
		switch p.Status {
		case domain.PurchaseStatusCompleted:
			return p.Status, false, nil
		case domain.PurchaseStatusRejected:
			return p.Status, false, domain.ErrInvalidTransition
		case domain.PurchaseStatusPending:
			if p.Exclusive {
				// Exclusive purchases wait for admin approval; the confirmed
				// payment is reflected on the payment record.
				return p.Status, false, nil
			}
			return domain.PurchaseStatusCompleted, true, nil
		case domain.PurchaseStatusApproved:
			return domain.PurchaseStatusCompleted, true, nil
		}
	case domain.OutcomeFailure:
		switch p.Status {
		case domain.PurchaseStatusRejected:
			return p.Status, false, nil
		case domain.PurchaseStatusCompleted:
			return p.Status, false, domain.ErrInvalidTransition
		case domain.PurchaseStatusPending, domain.PurchaseStatusApproved:
			return domain.PurchaseStatusRejected, true, nil
		}
	}
	return p.Status, false, domain.ErrInvalidTransition
}

func (s *Service) Approve(ctx context.Context, purchaseID snowflake.ID, adminID string) (domain.Purchase, error) {
	if strings.TrimSpace(adminID) == "" {
		return domain.Purchase{}, domain.ErrInvalidRequest
	}

	var result domain.Purchase
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		purchase, err := s.repo.FindByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return domain.ErrPurchaseNotFound
		}
		if purchase.Status != domain.PurchaseStatusPending {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, purchase.ID, domain.PurchaseStatusApproved, &adminID, &now); err != nil {
			return err
		}

		purchase.Status = domain.PurchaseStatusApproved
		purchase.ApprovedBy = &adminID
		purchase.ApprovedAt = &now
		result = *purchase
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return result, nil
}

func (s *Service) Reject(ctx context.Context, purchaseID snowflake.ID, adminID string, reason string) (domain.Purchase, error) {
	var result domain.Purchase
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		purchase, err := s.repo.FindByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return domain.ErrPurchaseNotFound
		}
		if purchase.Status.Terminal() {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, purchase.ID, domain.PurchaseStatusRejected, &adminID, &now); err != nil {
			return err
		}
		if reason != "" {
			if err := s.repo.AppendNote(ctx, tx, purchase.ID, reason); err != nil {
				return err
			}
		}

		purchase.Status = domain.PurchaseStatusRejected
		result = *purchase
		return nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return result, nil
}

func (s *Service) FinalizeExclusive(ctx context.Context, beatID, winnerID snowflake.ID, adminID string) error {
	var admin *string
	if strings.TrimSpace(adminID) != "" {
		admin = &adminID
	}
	return db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		return s.finalizeExclusiveTx(ctx, tx, beatID, winnerID, admin)
	})
}

// finalizeExclusiveTx completes the winner and rejects all other
// non-terminal purchases of the beat. Safe to replay: a winner that is
// already completed short-circuits after sibling cleanup.
func (s *Service) finalizeExclusiveTx(ctx context.Context, tx *gorm.DB, beatID, winnerID snowflake.ID, adminID *string) error {
	siblings, err := s.repo.ListByBeatForUpdate(ctx, tx, beatID)
	if err != nil {
		return err
	}

	var winner *domain.Purchase
	for i := range siblings {
		if siblings[i].ID == winnerID {
			winner = &siblings[i]
			continue
		}
		if siblings[i].Status == domain.PurchaseStatusCompleted {
			// Another purchase already won. Never produce two winners.
			return domain.ErrExclusivityViolation
		}
	}
	if winner == nil {
		return domain.ErrPurchaseNotFound
	}
	if winner.Status == domain.PurchaseStatusRejected {
		return domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	if winner.Status != domain.PurchaseStatusCompleted {
		if err := s.repo.UpdateStatus(ctx, tx, winner.ID, domain.PurchaseStatusCompleted, adminID, &now); err != nil {
			return err
		}
	}

	for i := range siblings {
		sibling := siblings[i]
		if sibling.ID == winnerID || sibling.Status.Terminal() {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, tx, sibling.ID, domain.PurchaseStatusRejected, adminID, &now); err != nil {
			return err
		}
		s.log.Info("exclusive purchase rejected by finalization",
			zap.Int64("purchase_id", sibling.ID.Int64()),
			zap.Int64("beat_id", beatID.Int64()),
			zap.Int64("winner_id", winnerID.Int64()),
		)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, purchaseID snowflake.ID) (domain.Purchase, error) {
	purchase, err := s.repo.FindByID(ctx, s.db, purchaseID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if purchase == nil {
		return domain.Purchase{}, domain.ErrPurchaseNotFound
	}
	return *purchase, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return s.repo.ListByUser(ctx, s.db, userID)
}

func (s *Service) AppendNote(ctx context.Context, purchaseID snowflake.ID, note string) error {
	return db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		return s.repo.AppendNote(ctx, tx, purchaseID, note)
	})
}
