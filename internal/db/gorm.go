package db

import (
	"fmt"
	"time"

	"github.com/sh4869221b/niconeon/internal/config"
	"github.com/sh4869221b/niconeon/internal/models"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
LEARNING: TWO DRIVERS, ONE DIALECT

gorm.io/driver/postgres speaks to PostgreSQL through pgx by default. It can also
sit on top of any database/sql driver registered under a name:

  DB_SQL_DRIVER=pgx       → postgres.Open(dsn)                     (default)
  DB_SQL_DRIVER=postgres  → postgres.New(Config{DriverName: ...})  (lib/pq)

The GORM dialect (SQL generation, ON CONFLICT, jsonb) is the same either way.
*/

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// Dialector picks the GORM dialector for the configured SQL driver
func Dialector(cfg *config.Config) gorm.Dialector {
	dsn := cfg.DatabaseURL()
	if cfg.DBSQLDriver == config.DriverLibPQ {
		return postgres.New(postgres.Config{
			DriverName: config.DriverLibPQ,
			DSN:        dsn,
		})
	}
	return postgres.Open(dsn)
}

// NewGorm connects to PostgreSQL and migrates the filter and cache tables
func NewGorm(cfg *config.Config) (*GormDB, error) {
	gormLogger := logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Learning: GORM automatically creates/updates tables based on struct definitions
	if err := db.AutoMigrate(
		&models.NgUser{},
		&models.RegexFilter{},
		&models.CommentCache{},
		&models.VideoMap{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.WithField("driver", cfg.DBSQLDriver).Info("✓ Database connected and migrated successfully")

	return &GormDB{db}, nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
