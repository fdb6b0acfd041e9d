package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("catalog.service"),
	}
}

func (s *Service) GetBeat(ctx context.Context, id snowflake.ID) (domain.Beat, error) {
	var beat domain.Beat
	err := s.db.WithContext(ctx).First(&beat, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Beat{}, domain.ErrBeatNotFound
		}
		return domain.Beat{}, err
	}
	return beat, nil
}

func (s *Service) GetBeatBySlug(ctx context.Context, slug string) (domain.Beat, error) {
	var beat domain.Beat
	err := s.db.WithContext(ctx).First(&beat, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Beat{}, domain.ErrBeatNotFound
		}
		return domain.Beat{}, err
	}
	return beat, nil
}

func (s *Service) ListBeats(ctx context.Context) ([]domain.Beat, error) {
	var beats []domain.Beat
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&beats).Error
	return beats, err
}
