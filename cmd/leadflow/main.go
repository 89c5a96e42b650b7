package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nordleads/leadflow/internal/clock"
	"github.com/nordleads/leadflow/internal/config"
	"github.com/nordleads/leadflow/internal/migration"
	"github.com/nordleads/leadflow/internal/observability"
	"github.com/nordleads/leadflow/internal/server"
	"github.com/nordleads/leadflow/internal/sweeper"
	"github.com/nordleads/leadflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		sweeper.Module,
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
