// Package domain contains the beat catalog models read at checkout time.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// Beat is a catalog entry. Purchases copy the fields they need into a
// snapshot at checkout and never read the catalog row again, so edits or
// deletions here cannot corrupt purchase history.
type Beat struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	Title      string         `json:"title" gorm:"type:text;not null"`
	Slug       string         `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Producer   string         `json:"producer" gorm:"type:text;not null"`
	AudioURL   string         `json:"audio_url" gorm:"type:text;not null"`
	ImageURL   string         `json:"image_url" gorm:"type:text"`
	PriceCents int64          `json:"price_cents" gorm:"not null"`
	Exclusive  bool           `json:"exclusive" gorm:"not null;default:false"`
	Tags       pq.StringArray `json:"tags" gorm:"type:text[]"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"not null"`
}

func (Beat) TableName() string { return "beats" }

var ErrBeatNotFound = errors.New("beat_not_found")
