package db

import (
	"fmt"
	"time"

	"infinite-experiment/dispatchboard/internal/config"
	"infinite-experiment/dispatchboard/internal/constants"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	gormlib "gorm.io/gorm"
)

var DB *sqlx.DB

// InitSQLX opens the sqlx handle used for the resource pool and health checks.
// Postgres connects through lib/pq with retries; SQLite shares the GORM
// connection pool.
func InitSQLX(cfg *config.Config, orm *gormlib.DB) (*sqlx.DB, error) {
	var err error

	if cfg.StoreBackend == config.BackendSQLite {
		sqlDB, err := orm.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		DB = sqlx.NewDb(sqlDB, "sqlite3")
	} else {
		for i := 0; i < 10; i++ {
			DB, err = sqlx.Connect("postgres", cfg.PostgresDSN())
			if err == nil {
				break
			}
			time.Sleep(500 * time.Millisecond)
		}
		if err != nil {
			return nil, err
		}
	}

	if _, err := DB.Exec(constants.CreatePoolTable); err != nil {
		return nil, fmt.Errorf("failed to create resource_pool: %w", err)
	}
	return DB, nil
}
