// Package domain contains single-use verification codes for
// identity-sensitive actions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type CodeType string

const (
	CodeTypePasswordReset CodeType = "password-reset"
)

// VerificationCode is a short-lived numeric credential. Codes are inert
// after expiry but not purged eagerly; cleanup is best-effort.
type VerificationCode struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    string       `json:"user_id" gorm:"type:text;not null;index:idx_verification_codes_user_type"`
	Type      CodeType     `json:"type" gorm:"type:text;not null;index:idx_verification_codes_user_type"`
	Code      string       `json:"code" gorm:"type:text;not null"`
	ExpiresAt time.Time    `json:"expires_at" gorm:"not null;index"`
	Used      bool         `json:"used" gorm:"not null;default:false"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (VerificationCode) TableName() string { return "verification_codes" }
