package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsTimeoutErr reports whether a transaction was cut short by its deadline.
func IsTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// PostgreSQL lock_timeout / statement_timeout (error code 57014)
	if strings.Contains(err.Error(), "canceling statement due to statement timeout") {
		return true
	}
	// MySQL (error code 1205)
	if strings.Contains(err.Error(), "Lock wait timeout exceeded") {
		return true
	}
	return false
}
