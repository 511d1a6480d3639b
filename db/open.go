// Package db opens the delivery history database.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// closeDB releases a handle opened by Open when a later step fails.
var closeDB = Close

func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	_ = ctx
	if strings.TrimSpace(cfg.Driver) == "" {
		cfg.Driver = "sqlite"
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var gdb *gorm.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite":
		dsn, err := ResolveSQLiteDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		gdb, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", err)
		}
		if err := applySQLitePragmas(gdb, cfg.SQLite); err != nil {
			_ = closeDB(gdb)
			return nil, err
		}
	case "postgres", "postgresql":
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("db: postgres requires db.dsn")
		}
		var err error
		gdb, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported db.driver: %s (use sqlite or postgres)", cfg.Driver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(gdb); err != nil {
			_ = closeDB(gdb)
			return nil, fmt.Errorf("db: auto migrate: %w", err)
		}
	}
	return gdb, nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
