package db

import (
	"fmt"

	"infinite-experiment/dispatchboard/internal/config"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var PgDB *gormlib.DB

// InitORM opens the flight store database for the configured backend and
// migrates the flights table.
func InitORM(cfg *config.Config) (*gormlib.DB, error) {
	var dialector gormlib.Dialector
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.PostgresDSN())
	}

	db, err := gormlib.Open(dialector, &gormlib.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.StoreBackend, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	PgDB = db
	logging.Info("Connected to flight store via GORM", "backend", cfg.StoreBackend)
	return db, nil
}

// Migrate creates or updates the flights table.
func Migrate(db *gormlib.DB) error {
	if err := db.AutoMigrate(&gorm.Flight{}); err != nil {
		return fmt.Errorf("failed to migrate flights: %w", err)
	}
	return nil
}
