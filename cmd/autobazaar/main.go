package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	"github.com/smallbiznis/autobazaar/internal/migration"
	"github.com/smallbiznis/autobazaar/internal/observability"
	"github.com/smallbiznis/autobazaar/internal/scheduler"
	"github.com/smallbiznis/autobazaar/internal/server"
	"github.com/smallbiznis/autobazaar/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domain modules behind it
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
