package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/billdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(run),
)

func run(db *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
	if !cfg.SeedDemoData {
		return nil
	}
	if cfg.IsProduction() {
		log.Warn("demo data is never seeded in production")
		return nil
	}

	demo, err := EnsureDemoWorkspace(context.Background(), db, node)
	if err != nil {
		return err
	}

	log.Info("demo workspace ready",
		zap.String("workspace_id", demo.WorkspaceID.String()),
		zap.String("biller_id", demo.BillerID.String()),
		zap.String("client_id", demo.ClientID.String()),
		zap.Strings("service_ids", lo.Map(demo.ServiceIDs, func(id snowflake.ID, _ int) string { return id.String() })),
		zap.Strings("tax_ids", lo.Map(demo.TaxIDs, func(id snowflake.ID, _ int) string { return id.String() })),
	)
	return nil
}
