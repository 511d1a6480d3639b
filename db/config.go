package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quailyquaily/keen/internal/pathutil"
)

const DefaultSQLiteFile = "keen.db"

type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver      string
	DSN         string
	AutoMigrate bool

	Pool   PoolConfig
	SQLite SQLiteConfig
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
}

func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		AutoMigrate: true,
		Pool: PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
			ForeignKeys:   true,
		},
	}
}

// ResolveSQLiteDSN expands "~" and fills the default database path under the
// settings directory. The parent directory is created with owner-only
// access. ":memory:" and "file:" DSNs pass through untouched.
func ResolveSQLiteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	if dsn == "" {
		dsn = filepath.Join(pathutil.SettingsDir(), DefaultSQLiteFile)
	}
	dsn = pathutil.ExpandHomePath(dsn)
	if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
		return "", fmt.Errorf("create db dir: %w", err)
	}
	return dsn, nil
}
