// Package storage provides durable client state on top of gorm.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps the gorm handle.
type DB struct {
	GORM   *gorm.DB
	driver string
}

// Open connects using the DSN and migrates the schema. "postgres://" and
// "postgresql://" DSNs use the postgres driver; "sqlite://path", a plain
// file path or ":memory:" use the pure Go sqlite driver.
func Open(ctx context.Context, dsn string) (*DB, error) {
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if driver == "sqlite" {
		// one writer keeps :memory: databases on a single connection
		sqlDB.SetMaxOpenConns(1)
	}

	db := &DB{GORM: gormDB, driver: driver}
	if err := db.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(&ClientState{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	switch {
	case dsn == "":
		return nil, "", fmt.Errorf("storage dsn is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), "postgres", nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, "", fmt.Errorf("create storage dir: %w", err)
		}
	}
	return sqlite.Open(path), "sqlite", nil
}

// Driver returns "sqlite" or "postgres".
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
