package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/gptbot/core/logger"
)

const component = "db"

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Connect opens the database, sizes the pool and pings it.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, errors.New("db connect: no driver configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	attrs := []slog.Attr{slog.String("driver", cfg.Driver), slog.String("db", target(cfg))}
	if cfg.Driver == DriverPostgres {
		attrs = append(attrs, slog.String("host", net.JoinHostPort(cfg.Host, cfg.Port)))
	}

	db, err := sqlx.ConnectContext(ctx, cfg.sqlDriver(), cfg.DSN())
	if err != nil {
		logger.Error(ctx, component, "db.connect", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, component, "db.connect", append(attrs,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

// WaitReady pings the server every two seconds until it answers or timeout
// passes. SQLite files are always ready.
func WaitReady(cfg Config, timeout time.Duration) error {
	if cfg.Driver == DriverSQLite {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for {
		err := ping(cfg)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("db: not ready after %s: %w", timeout, err)
		}
		time.Sleep(2 * time.Second)
	}
}

func ping(cfg Config) error {
	db, err := sql.Open(cfg.sqlDriver(), cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Ping()
}

func target(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}
