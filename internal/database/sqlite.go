package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenSQLite opens a SQLite database for local development and tests and
// runs migrations. ":memory:" is private to one connection, so the pool is
// capped at a single connection.
func OpenSQLite(path string, lg zerolog.Logger, verbose bool) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), NewGormConfig(lg, verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
