package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billdesk/internal/clock"
	"github.com/smallbiznis/billdesk/internal/config"
	"github.com/smallbiznis/billdesk/internal/invoice"
	"github.com/smallbiznis/billdesk/internal/migration"
	"github.com/smallbiznis/billdesk/internal/observability"
	"github.com/smallbiznis/billdesk/internal/ratelimit"
	"github.com/smallbiznis/billdesk/internal/seed"
	"github.com/smallbiznis/billdesk/internal/server"
	"github.com/smallbiznis/billdesk/internal/tax"
	"github.com/smallbiznis/billdesk/internal/workspace"
	"github.com/smallbiznis/billdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,
		seed.Module,
		ratelimit.Module,

		// Domains
		workspace.Module,
		tax.Module,
		invoice.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
