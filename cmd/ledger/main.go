package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/clinicore/ledger/internal/config"
	"github.com/clinicore/ledger/internal/migration"
	"github.com/clinicore/ledger/internal/observability"
	"github.com/clinicore/ledger/internal/scheduler"
	"github.com/clinicore/ledger/internal/server"
	"github.com/clinicore/ledger/pkg/db"
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
		scheduler.Module,
	)

	app.Run()
}

// RegisterSnowflake provides the process-wide ID generator.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
