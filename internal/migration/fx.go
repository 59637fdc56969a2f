package migration

import (
	"strings"

	"github.com/smallbiznis/billdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(run),
)

func run(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.RunMigrations {
		log.Info("schema migrations disabled")
		return nil
	}

	if !strings.EqualFold(cfg.DBType, "postgres") {
		log.Info("migrating schema from models", zap.String("type", cfg.DBType))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("schema migrations applied")
	return nil
}
