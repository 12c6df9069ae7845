package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/esani/pantportal/internal/config"
	"github.com/esani/pantportal/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// SQL migrations target the production database; local sqlite
		// setups get the schema from the models instead.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if err := seed.EnsureQRSeries(conn, cfg.QR.Series); err != nil {
			return err
		}
		return seed.EnsureERPCatalogue(conn)
	}),
)
