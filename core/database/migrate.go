package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/gptbot/core/logger"
)

const migrateComponent = "db.migrate"

// RunMigrations applies all up migrations found in dir of src.
func RunMigrations(cfg Config, src fs.FS, dir string) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if !cfg.Enabled() {
		return errors.New("migrate: no database driver configured")
	}
	ctx := context.Background()
	fail := func(event string, err error, attrs ...slog.Attr) error {
		logger.Error(ctx, migrateComponent, event,
			append([]slog.Attr{slog.String("status", "fail"), slog.String("err", err.Error())}, attrs...)...)
		return err
	}

	if err := WaitReady(cfg, 30*time.Second); err != nil {
		return fail("db.wait", fmt.Errorf("database not ready: %w", err))
	}

	source, err := iofs.New(src, dir)
	if err != nil {
		return fail("source.open", fmt.Errorf("open migrations %s: %w", dir, err), slog.String("path", dir))
	}

	files := listMigrationFiles(src, dir)
	logger.Debug(ctx, migrateComponent, "resolve", fileAttrs(files,
		slog.String("path", dir),
		slog.String("driver", cfg.Driver),
	)...)

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fail("init", fmt.Errorf("failed to initialize migrations: %w", err))
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, migrateComponent, "close", slog.Any("err", errors.Join(srcErr, dbErr)))
		}
	}()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fail("apply", fmt.Errorf("migration execution failed: %w", upErr), slog.Duration("duration", logger.Took(start)))
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		logger.Debug(ctx, migrateComponent, "apply", fileAttrs(applied)...)
	}
	logger.Info(ctx, migrateComponent, "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func fileAttrs(files []string, attrs ...slog.Attr) []slog.Attr {
	attrs = append(attrs, slog.Int("files_total", len(files)))
	preview, truncated := logger.SummarizeStrings(files, 6)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func listMigrationFiles(src fs.FS, dir string) []string {
	entries, err := fs.ReadDir(src, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) == 0 {
		return 0
	}
	v, _ := strconv.ParseUint(parts[0], 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		v := parseVersion(f)
		if v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
