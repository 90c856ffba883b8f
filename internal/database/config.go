package database

import (
	"fmt"
	"time"

	"ridealong/internal/config"
	"ridealong/internal/models"
	"ridealong/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// ReminderScanQueries prefix the dispatcher's periodic ride scan as postgres
// and sqlite quote it. The scan is kept out of the SQL log because it runs
// every few minutes.
var ReminderScanQueries = []string{
	`SELECT * FROM "ride" WHERE status =`,
	"SELECT * FROM `ride` WHERE status =",
}

// Open connects to postgres, configures the pool and runs migrations.
// The caller owns the returned handle and must close it on shutdown.
func Open(cfg config.DatabaseConfig, lg zerolog.Logger, verbose bool) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return OpenSQLite(cfg.Path, lg, verbose)
	}

	gormConfig := NewGormConfig(lg, verbose)

	// Open connection with retry logic
	var (
		db  *gorm.DB
		err error
	)
	maxRetries := 5
	retryDelay := time.Second * 5

	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			break
		}
		lg.Warn().Err(err).Int("attempt", i+1).Msg("database connection attempt failed")
		if i < maxRetries-1 {
			lg.Info().Dur("delay", retryDelay).Msg("retrying database connection")
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	lg.Info().Msg("database connection established and migrations completed")
	return db, nil
}

// NewGormConfig builds the gorm configuration shared by every dialect
func NewGormConfig(lg zerolog.Logger, verbose bool) *gorm.Config {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	baseLogger := logger.New(
		&lg,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return &gorm.Config{
		Logger: utils.NewCustomGormLogger(baseLogger, ReminderScanQueries...),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: false,
	}
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Client{},
		&models.Volunteer{},
		&models.ReminderConfig{},
		&models.Ride{},
		&models.SentReminder{},
		&models.Session{},
		&models.LoginCode{},
		&models.DispatchLease{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
