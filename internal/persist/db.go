package persist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tickworld/server/internal/config"
)

// Dialects understood by the journal. The names match goose's.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// DB is the journal database: a pgx pool for PostgreSQL DSNs, or an embedded
// SQLite file otherwise. Both are reached through SQL.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool // nil for SQLite
	Dialect string
	log     *zap.Logger
}

// IsPostgresDSN reports whether dsn names a PostgreSQL server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func OpenJournal(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	if IsPostgresDSN(cfg.DSN) {
		return openPostgres(ctx, cfg.DSN, log)
	}
	return openSQLite(ctx, cfg.DSN, log)
}

func openPostgres(ctx context.Context, dsn string, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: DialectPostgres, log: log}, nil
}

func openSQLite(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; the journal flushes from a single goroutine anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &DB{SQL: db, Dialect: DialectSQLite, log: log}, nil
}

func (db *DB) Close() {
	if err := db.SQL.Close(); err != nil {
		db.log.Warn("close journal db", zap.Error(err))
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}
