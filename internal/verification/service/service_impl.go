package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/ratelimit"
	"github.com/jose32011/beatbazaar/internal/verification/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeTTL = 15 * time.Minute

	// purgeRetention keeps expired codes around long enough that a late
	// Verify still gets code_expired rather than code_not_found.
	purgeRetention = 24 * time.Hour
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	notifier  domain.Notifier
	limiter   *ratelimit.CodeIssueLimiter
	txTimeout time.Duration
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Notifier domain.Notifier
	Limiter  *ratelimit.CodeIssueLimiter `optional:"true"`
	Cfg      config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("verification.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		notifier:  p.Notifier,
		limiter:   p.Limiter,
		txTimeout: time.Duration(p.Cfg.TxTimeoutSeconds) * time.Second,
	}
}

func (s *Service) Issue(ctx context.Context, userID string, codeType domain.CodeType) (domain.VerificationCode, error) {
	if strings.TrimSpace(userID) == "" || codeType == "" {
		return domain.VerificationCode{}, domain.ErrInvalidRequest
	}

	allowed, err := s.limiter.AllowIssue(ctx, userID)
	if err != nil {
		// Limiter outage must not block password resets.
		s.log.Warn("code issue limiter unavailable", zap.String("user_id", userID), zap.Error(err))
	} else if !allowed {
		return domain.VerificationCode{}, domain.ErrRateLimited
	}

	value, err := generateCode()
	if err != nil {
		return domain.VerificationCode{}, err
	}

	code := domain.VerificationCode{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Type:      codeType,
		Code:      value,
		ExpiresAt: s.clock.Now().Add(codeTTL),
		CreatedAt: s.clock.Now(),
	}

	err = db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		if err := s.repo.InvalidateUnused(ctx, tx, userID, codeType); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &code)
	})
	if err != nil {
		return domain.VerificationCode{}, err
	}

	if err := s.notifier.SendCode(ctx, userID, codeType, value); err != nil {
		// Single attempt. The code stays valid either way.
		s.log.Warn("verification code delivery failed",
			zap.String("user_id", userID),
			zap.String("type", string(codeType)),
			zap.Error(err),
		)
	}

	s.log.Info("verification code issued",
		zap.String("user_id", userID),
		zap.String("type", string(codeType)),
		zap.Time("expires_at", code.ExpiresAt),
	)
	return code, nil
}

func (s *Service) Verify(ctx context.Context, userID string, codeType domain.CodeType, code string) error {
	if strings.TrimSpace(userID) == "" || codeType == "" || strings.TrimSpace(code) == "" {
		return domain.ErrInvalidRequest
	}

	return db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		current, err := s.repo.FindUnusedForUpdate(ctx, tx, userID, codeType)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrCodeNotFound
		}
		if !s.clock.Now().Before(current.ExpiresAt) {
			return domain.ErrCodeExpired
		}
		if subtle.ConstantTimeCompare([]byte(current.Code), []byte(code)) != 1 {
			return domain.ErrCodeMismatch
		}
		return s.repo.MarkUsed(ctx, tx, current.ID)
	})
}

func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-purgeRetention)

	var purged int64
	err := db.Transact(ctx, s.db, s.txTimeout, func(tx *gorm.DB) error {
		var err error
		purged, err = s.repo.DeleteExpiredBefore(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info("expired verification codes purged", zap.Int64("count", purged))
	}
	return purged, nil
}

// generateCode draws a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}
