// Package seed provides demo catalog data for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/jose32011/beatbazaar/internal/catalog/domain"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type demoBeat struct {
	title      string
	producer   string
	audioURL   string
	imageURL   string
	priceCents int64
	exclusive  bool
	tags       []string
}

var demoBeats = []demoBeat{
	{"Midnight Drive", "Kato", "/media/audio/midnight-drive.mp3", "/media/img/midnight-drive.jpg", 2999, false, []string{"trap", "dark"}},
	{"Velvet Static", "Noum", "/media/audio/velvet-static.mp3", "/media/img/velvet-static.jpg", 1999, false, []string{"lofi", "chill"}},
	{"Cold Harbor", "Kato", "/media/audio/cold-harbor.mp3", "/media/img/cold-harbor.jpg", 3499, false, []string{"drill"}},
	{"One Take", "Riva", "/media/audio/one-take.mp3", "/media/img/one-take.jpg", 49999, true, []string{"boom-bap", "exclusive"}},
}

// EnsureDemoBeats inserts the demo catalog once; re-running on a seeded
// database is a no-op.
func EnsureDemoBeats(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, demo := range demoBeats {
			beatSlug := slug.Make(demo.title)

			var count int64
			if err := tx.Model(&catalogdomain.Beat{}).
				Where("slug = ?", beatSlug).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			now := time.Now().UTC()
			beat := catalogdomain.Beat{
				ID:         node.Generate(),
				Title:      demo.title,
				Slug:       beatSlug,
				Producer:   demo.producer,
				AudioURL:   demo.audioURL,
				ImageURL:   demo.imageURL,
				PriceCents: demo.priceCents,
				Exclusive:  demo.exclusive,
				Tags:       pq.StringArray(demo.tags),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&beat).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
