// Package database opens the SQLite store shared by the SQL-backed item
// repositories and manages the ambient transaction they run in.
//
// One *sql.DB serves three access layers: sqlx for hand-written statements,
// gorm for the ORM strategies, and plain database/sql underneath both.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/vyrodovalexey/itemservice/internal/database/migrations"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// PingTimeout bounds the startup connectivity check.
const PingTimeout = 10 * time.Second

// connectionPragmas are applied by the driver to every new connection.
// case_sensitive_like makes LIKE match the in-memory strategy.
var connectionPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"case_sensitive_like(1)",
}

// txLock makes BEGIN take the write lock up front. A deferred transaction
// that reads and then writes fails with SQLITE_BUSY_SNAPSHOT under WAL when
// another connection commits in between, and busy_timeout does not retry it.
const txLock = "immediate"

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// Conn is satisfied by both the pool and a transaction.
type Conn interface {
	sqlx.ExtContext
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the sqlx pool together with a gorm handle over the same
// connections.
type DB struct {
	*sqlx.DB
	orm *gorm.DB
	log *zap.Logger
}

// Open opens the SQLite file at path, verifies connectivity and applies the
// embedded migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlxDB, err := sqlx.Open(DriverName, buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := sqlxDB.PingContext(pingCtx); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := Migrate(ctx, sqlxDB.DB, migrations.FS); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	orm, err := gorm.Open(gormsqlite.New(gormsqlite.Config{
		DriverName: DriverName,
		Conn:       sqlxDB.DB,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(logger),
	})
	if err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("open gorm session: %w", err)
	}

	logger.Info("connected to the database", zap.String("path", filepath.Clean(path)))

	return &DB{DB: sqlxDB, orm: orm, log: logger}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	db.log.Info("closing database connection pool")
	return db.DB.Close()
}

// Conn returns the ambient transaction when ctx carries one, otherwise the
// pool.
func (db *DB) Conn(ctx context.Context) Conn {
	if tx, ok := TxFrom(ctx); ok {
		return tx.Tx
	}
	return db.DB
}

// Gorm returns a gorm session bound to ctx and to its ambient transaction.
func (db *DB) Gorm(ctx context.Context) *gorm.DB {
	session := db.orm.Session(&gorm.Session{NewDB: true, Context: ctx})
	if tx, ok := TxFrom(ctx); ok {
		session.Statement.ConnPool = tx.Tx.Tx
	}
	return session
}

func buildDSN(path string) string {
	params := make([]string, 0, len(connectionPragmas))
	for _, p := range connectionPragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, "_txlock="+txLock)
	return filepath.Clean(path) + "?" + strings.Join(params, "&")
}
