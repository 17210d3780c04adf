package migration

import (
	"github.com/plantelhq/plantel/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module brings the schema up to date on startup: versioned SQL migrations
// on postgres, AutoMigrate from the models on any other driver.
var Module = fx.Module("migrations",
	fx.Invoke(func(cfg *config.Config, log *zap.Logger, conn *gorm.DB) error {
		if cfg.Database.Driver != "postgres" {
			log.Info("auto-migrating schema", zap.String("driver", cfg.Database.Driver))
			return AutoMigrate(conn)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
