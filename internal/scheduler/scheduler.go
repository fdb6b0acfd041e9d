// Package scheduler runs the periodic housekeeping the store needs:
// garbage-collecting long-expired verification codes and reporting
// duplicate purchase groups so an operator can sweep them. The repair
// itself stays operator-triggered.
package scheduler

import (
	"context"
	"errors"
	"time"

	dedupdomain "github.com/jose32011/beatbazaar/internal/dedup/domain"
	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler configuration is invalid")

// Config controls the housekeeping interval.
type Config struct {
	RunInterval time.Duration
}

func DefaultConfig() Config {
	return Config{RunInterval: time.Hour}
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = DefaultConfig().RunInterval
	}
	return c
}

type Params struct {
	fx.In

	Log             *zap.Logger
	VerificationSvc verificationdomain.Service
	DedupSvc        dedupdomain.Service
	Config          Config `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	verificationSvc verificationdomain.Service
	dedupSvc        dedupdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.VerificationSvc == nil || p.DedupSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		verificationSvc: p.VerificationSvc,
		dedupSvc:        p.DedupSvc,
	}, nil
}

// RunForever ticks until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single housekeeping pass. Failures are logged and
// the next tick retries; nothing here is correctness-critical.
func (s *Scheduler) RunOnce(ctx context.Context) {
	purged, err := s.verificationSvc.PurgeExpired(ctx)
	if err != nil {
		s.log.Warn("expired code purge failed", zap.Error(err))
	} else if purged > 0 {
		s.log.Info("expired codes purged", zap.Int64("count", purged))
	}

	groups, err := s.dedupSvc.FindDuplicateGroups(ctx)
	if err != nil {
		s.log.Warn("duplicate scan failed", zap.Error(err))
		return
	}
	if len(groups) > 0 {
		s.log.Warn("duplicate purchase groups detected, sweep required",
			zap.Int("groups", len(groups)),
		)
	}
}
