// Package bootstrap brings up the infrastructure shared by every run:
// the logger first, then the optional database.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/gptbot/core/config"
	coredatabase "github.com/m3rciful/gptbot/core/database"
	"github.com/m3rciful/gptbot/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the
// package defaults, except Migrate, which is skipped.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database driver is configured.
	DB *sqlx.DB
}

// Run initializes the logger and, when a database is configured, connects
// and migrates it. A failed migration closes the connection.
func Run(opts Options) (res *Result, err error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	res = &Result{}
	if !opts.Database.Enabled() {
		return res, nil
	}

	if res.DB, err = opts.Connect(opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if opts.Migrate == nil {
		return res, nil
	}
	if err := opts.Migrate(opts.Database); err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return res, nil
}
