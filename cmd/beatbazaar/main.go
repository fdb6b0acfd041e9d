package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/logger"
	"github.com/jose32011/beatbazaar/internal/migration"
	"github.com/jose32011/beatbazaar/internal/scheduler"
	"github.com/jose32011/beatbazaar/internal/server"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)

	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
