package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coursesearch/internal/errs"
	"coursesearch/internal/models"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var (
		database *gorm.DB
		err      error
	)
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "":
		database, err = gorm.Open(postgres.Open(dsn), gcfg)
	case "sqlite", "sqlite3":
		database, err = gorm.Open(gormsqlite.Open(dsn), gcfg)
		if err == nil {
			// sqlite has a single writer
			sqlDB, derr := database.DB()
			if derr != nil {
				return nil, errs.Wrap(derr, "get sql db")
			}
			sqlDB.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, errs.Wrap(err, "connect to database")
	}
	log.Info().Str("driver", database.Dialector.Name()).Msg("Database connection established")

	if err := Migrate(ctx, database); err != nil {
		return nil, err
	}
	return database, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(ctx context.Context, database *gorm.DB) error {
	err := database.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Review{},
		&models.Flag{},
		&models.Resolution{},
		&models.Notification{},
		&models.CourseStats{},
	)
	if err != nil {
		return errs.Wrap(err, "migrate database")
	}
	log.Info().Msg("Database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(database *gorm.DB) {
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
