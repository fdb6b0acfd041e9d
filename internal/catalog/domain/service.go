package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetBeat(ctx context.Context, id snowflake.ID) (Beat, error)
	GetBeatBySlug(ctx context.Context, slug string) (Beat, error)
	ListBeats(ctx context.Context) ([]Beat, error)
}
