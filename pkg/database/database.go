package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/pkg/config"
)

// Open connects to the configured driver and applies migrations when enabled.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres, "":
		db, err = NewPostgres(cfg)
	case config.DriverSQLite:
		db, err = NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}
