package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

type Kind string

const (
	KindMemory   Kind = "memory"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

// DetectKind maps a DATABASE_URL to its backend. An empty url selects the
// in-memory run history.
func DetectKind(url string) (Kind, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return KindMemory, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return KindPostgres, nil
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		return KindSQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
}

// Handle is an open, migrated run history database.
type Handle struct {
	Kind Kind
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open connects to url and applies the embedded schema.
func Open(ctx context.Context, url string) (*Handle, error) {
	kind, err := DetectKind(url)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindPostgres:
		pool, err := Connect(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Handle{Kind: kind, Pool: pool}, nil
	case KindSQLite:
		sqlDB, err := OpenSQLite(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := MigrateSQLite(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return &Handle{Kind: kind, SQL: sqlDB}, nil
	}
	return &Handle{Kind: KindMemory}, nil
}

func (h *Handle) Ping(ctx context.Context) error {
	switch {
	case h == nil:
		return nil
	case h.Pool != nil:
		return h.Pool.Ping(ctx)
	case h.SQL != nil:
		return h.SQL.PingContext(ctx)
	}
	return nil
}

func (h *Handle) Close() {
	if h == nil {
		return
	}
	if h.Pool != nil {
		h.Pool.Close()
	}
	if h.SQL != nil {
		_ = h.SQL.Close()
	}
}

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func OpenSQLite(ctx context.Context, url string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", SQLiteDSN(url))
	if err != nil {
		return nil, err
	}
	// one writer at a time
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// SQLiteDSN turns sqlite:///var/lib/runs.db into the driver's file path.
// file: URIs are passed through unchanged.
func SQLiteDSN(url string) string {
	url = strings.TrimSpace(url)
	if rest, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return rest
	}
	return url
}
