// Package history journals finished generations to SQL.
package history

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/gptbot/core/database"
	"github.com/m3rciful/gptbot/core/fsm"
	"github.com/m3rciful/gptbot/core/logger"
)

const component = "history"

// Statuses recorded in the journal.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

//go:embed migrations
var migrations embed.FS

// Entry is one journal row.
type Entry struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	Flow       string    `db:"flow"`
	Model      string    `db:"model"`
	Status     string    `db:"status"`
	Error      string    `db:"error"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Total aggregates the journal for one flow.
type Total struct {
	Flow   string `db:"flow"`
	Total  int64  `db:"total"`
	Failed int64  `db:"failed"`
}

// Migrate applies the journal schema for cfg's driver.
func Migrate(cfg coredatabase.Config) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	return coredatabase.RunMigrations(cfg, migrations, "migrations/"+cfg.Driver)
}

// Journal writes and aggregates generation records. A nil *Journal, or one
// without a database, accepts writes and reports nothing.
type Journal struct {
	db  *sqlx.DB
	now func() time.Time
}

// New returns a Journal on db; db may be nil.
func New(db *sqlx.DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

// Enabled reports whether records are persisted.
func (j *Journal) Enabled() bool {
	return j != nil && j.db != nil
}

const insertEntry = `INSERT INTO generations (user_id, flow, model, status, error, duration_ms, created_at)
VALUES (:user_id, :flow, :model, :status, :error, :duration_ms, :created_at)`

// Record stores e. CreatedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if !j.Enabled() {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now().UTC()
	}
	if _, err := j.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

const selectTotals = `SELECT flow,
	COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN status = 'fail' THEN 1 ELSE 0 END), 0) AS failed
FROM generations
GROUP BY flow
ORDER BY flow`

// Totals returns per-flow counts ordered by flow name.
func (j *Journal) Totals(ctx context.Context) ([]Total, error) {
	if !j.Enabled() {
		return nil, nil
	}
	var out []Total
	if err := j.db.SelectContext(ctx, &out, selectTotals); err != nil {
		return nil, fmt.Errorf("history: totals: %w", err)
	}
	return out, nil
}

// Recent returns the latest n entries of user, newest first. CreatedAt is
// left zero.
func (j *Journal) Recent(ctx context.Context, user int64, n int) ([]Entry, error) {
	if !j.Enabled() {
		return nil, nil
	}
	var out []Entry
	q := j.db.Rebind(`SELECT id, user_id, flow, model, status, error, duration_ms
FROM generations WHERE user_id = ? ORDER BY id DESC LIMIT ?`)
	if err := j.db.SelectContext(ctx, &out, q, user, n); err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return out, nil
}

// Observe records a finished or failed flow. It matches the engine's
// observer signature; write errors are logged and dropped.
func (j *Journal) Observe(ctx context.Context, rep fsm.Report) {
	if !j.Enabled() {
		return
	}
	e := Entry{
		UserID:     int64(rep.User),
		Flow:       string(rep.Flow),
		Model:      rep.Params.Get("model"),
		Status:     StatusOK,
		DurationMS: rep.Elapsed.Milliseconds(),
	}
	if rep.Err != nil {
		e.Status = StatusFail
		var f *fsm.Failure
		if errors.As(rep.Err, &f) {
			e.Error = logger.SanitizeLimit(f.Message, 512)
		} else {
			e.Error = "internal"
		}
	}
	if err := j.Record(ctx, e); err != nil {
		logger.Warn(ctx, component, "history.record",
			slog.String("status", "fail"),
			slog.Int64("user_id", e.UserID),
			slog.String("flow", e.Flow),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(ctx, component, "history.record",
		slog.String("status", "ok"),
		slog.Int64("user_id", e.UserID),
		slog.String("flow", e.Flow),
		slog.String("model", e.Model),
	)
}
