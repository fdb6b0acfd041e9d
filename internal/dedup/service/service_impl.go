package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/dedup/domain"
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

	repo      domain.Repository
	purchases purchasedomain.Repository
	payments  paymentdomain.Repository
	audit     auditdomain.Service
	txTimeout time.Duration
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Purchases purchasedomain.Repository
	Payments  paymentdomain.Repository
	Audit     auditdomain.Service
	Cfg       config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("dedup.service"),
		repo:      p.Repo,
		purchases: p.Purchases,
		payments:  p.Payments,
		audit:     p.Audit,
		txTimeout: time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

func (s *Service) FindDuplicateGroups(ctx context.Context) ([]domain.DuplicateGroup, error) {
	keys, err := s.repo.FindDuplicateKeys(ctx, s.db)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.DuplicateGroup, 0, len(keys))
	for _, key := range keys {
		items, err := s.listGroup(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if len(items) < 2 {
			continue
		}
		groups = append(groups, domain.DuplicateGroup{Key: key, Purchases: items})
	}
	return groups, nil
}

func (s *Service) ResolveGroup(ctx context.Context, key domain.GroupKey) (domain.Resolution, error) {
	if strings.TrimSpace(key.UserID) == "" || key.BeatID == 0 {
		return domain.Resolution{}, domain.ErrInvalidRequest
	}

	resolution := domain.Resolution{Key: key}
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		items, err := s.purchases.ListByUserAndBeatForUpdate(ctx, tx, key.UserID, key.BeatID)
		if err != nil {
			return err
		}
		if len(items) < 2 {
			// Already resolved. Re-running is a no-op.
			if len(items) == 1 {
				resolution.CanonicalID = items[0].ID
			}
			return nil
		}

		canonical, err := pickCanonical(items)
		if err != nil {
			resolution.Skipped = true
			resolution.Reason = "multiple completed purchases; pick a winner manually"
			return err
		}
		resolution.CanonicalID = canonical

		for _, item := range items {
			if item.ID == canonical {
				continue
			}
			deleted, err := s.payments.DeleteByPurchase(ctx, tx, item.ID)
			if err != nil {
				return err
			}
			if err := s.purchases.Delete(ctx, tx, item.ID); err != nil {
				return err
			}
			resolution.DeletedPayments += int(deleted)
			resolution.DeletedPurchases++
		}
		return nil
	})
	if err != nil {
		if resolution.Skipped {
			s.log.Warn("duplicate group needs manual resolution",
				zap.String("user_id", key.UserID),
				zap.Int64("beat_id", int64(key.BeatID)),
			)
			return resolution, err
		}
		return domain.Resolution{Key: key}, err
	}

	if resolution.DeletedPurchases > 0 {
		s.log.Info("duplicate purchases removed",
			zap.String("user_id", key.UserID),
			zap.Int64("beat_id", int64(key.BeatID)),
			zap.String("canonical_id", resolution.CanonicalID.String()),
			zap.Int("deleted_purchases", resolution.DeletedPurchases),
			zap.Int("deleted_payments", resolution.DeletedPayments),
		)
	}
	return resolution, nil
}

func (s *Service) Sweep(ctx context.Context, adminID string) (domain.SweepReport, error) {
	if strings.TrimSpace(adminID) == "" {
		return domain.SweepReport{}, domain.ErrInvalidRequest
	}

	keys, err := s.repo.FindDuplicateKeys(ctx, s.db)
	if err != nil {
		return domain.SweepReport{}, err
	}

	report := domain.SweepReport{GroupsFound: len(keys)}
	for _, key := range keys {
		resolution, err := s.ResolveGroup(ctx, key)
		if err != nil {
			report.GroupsFailed++
			if !resolution.Skipped {
				resolution = domain.Resolution{Key: key, Skipped: true, Reason: err.Error()}
			}
		} else {
			report.GroupsSwept++
		}
		report.Resolutions = append(report.Resolutions, resolution)
	}

	targetType := "purchase_group"
	if auditErr := s.audit.Record(ctx, auditdomain.ActorTypeAdmin, &adminID, "dedup.sweep", targetType, nil, map[string]any{
		"groups_found":  report.GroupsFound,
		"groups_swept":  report.GroupsSwept,
		"groups_failed": report.GroupsFailed,
	}); auditErr != nil {
		s.log.Warn("sweep audit record failed", zap.Error(auditErr))
	}

	return report, nil
}

func (s *Service) listGroup(ctx context.Context, conn *gorm.DB, key domain.GroupKey) ([]purchasedomain.Purchase, error) {
	var items []purchasedomain.Purchase
	err := conn.WithContext(ctx).
		Where("user_id = ? AND beat_id = ?", key.UserID, key.BeatID).
		Order("purchased_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// pickCanonical keeps the sole completed purchase when one exists,
// otherwise the earliest. More than one completed row is a business
// decision, not a mechanical one.
func pickCanonical(items []purchasedomain.Purchase) (snowflake.ID, error) {
	var completed []purchasedomain.Purchase
	for _, item := range items {
		if item.Status == purchasedomain.PurchaseStatusCompleted {
			completed = append(completed, item)
		}
	}
	switch len(completed) {
	case 0:
		return items[0].ID, nil
	case 1:
		return completed[0].ID, nil
	default:
		return 0, domain.ErrAmbiguousGroup
	}
}
