package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrTransactionTimeout is returned when a store transaction exceeds its
// bounded deadline. Callers may retry.
var ErrTransactionTimeout = errors.New("transaction_timeout")

// Transact runs fn inside a transaction bounded by timeout. Deadline
// expiry surfaces as ErrTransactionTimeout rather than a raw context error.
func Transact(ctx context.Context, conn *gorm.DB, timeout time.Duration, fn func(tx *gorm.DB) error) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := conn.WithContext(tctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if IsTimeoutErr(err) {
		return ErrTransactionTimeout
	}
	return err
}
