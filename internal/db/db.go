// Package db opens the postgres connection and migrates the durable tables.
package db

import (
	"errors"
	stdlog "log"
	"os"
	"time"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoDatabase = errors.New("DATABASE_URL is required")

// Open connects to postgres.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabase
	}
	return OpenWith(postgres.Open(cfg.DatabaseURL), cfg.Debug)
}

// OpenWith opens any gorm dialector with the service's logger settings.
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey.
func OpenWith(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Winner{},
		&models.MarketData{},
	)
}
