// Package db opens the PostgreSQL connection, applies the schema and seeds
// reference data.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-katalog/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Open connects to PostgreSQL, retrying while the server starts up.
// gorm's own logger stays silent unless cfg.Debug is set.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DSN())
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	// Products keep dangling category references after a category is
	// deleted, so no foreign keys are created.
	gcfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(level),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying",
			zap.Int("attempt", i), zap.String("dsn", MaskDSN(dsn)), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
	}

	if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	log.Info("database connected", zap.String("dsn", MaskDSN(dsn)))
	return db, nil
}
