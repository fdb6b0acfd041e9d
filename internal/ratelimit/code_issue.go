package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jose32011/beatbazaar/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyCodeIssueUser = "verify:issue:user:%s"

// CodeIssueLimiter throttles verification-code issuance per user. When
// Redis is not configured the limiter is disabled and every request is
// allowed, so single-node deployments work without extra infrastructure.
type CodeIssueLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCodeIssueLimiter(cfg config.Config) (*CodeIssueLimiter, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &CodeIssueLimiter{enabled: false}, nil
	}
	perMinute := cfg.CodeIssuePerMinute
	if perMinute <= 0 {
		perMinute = 3
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &CodeIssueLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(perMinute) / 60.0,
		burst:   perMinute,
	}, nil
}

func (l *CodeIssueLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowIssue reports whether userID may be issued another code right now.
func (l *CodeIssueLimiter) AllowIssue(ctx context.Context, userID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCodeIssueUser, strings.TrimSpace(userID)), l.rate, l.burst)
}
