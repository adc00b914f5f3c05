// Package sqlstore mirrors analysis results into a SQL database, either an
// embedded SQLite file or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
)

func init() {
	// modernc registers as "sqlite"; make sure sqlx binds it with "?".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const dayLayout = "2006-01-02"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS hotspot_runs (
		run_id       TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		days         INTEGER NOT NULL,
		anomalies    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS hotspot_daily_counts (
		run_id TEXT NOT NULL,
		day    TEXT NOT NULL,
		count  INTEGER NOT NULL,
		PRIMARY KEY (run_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS hotspot_anomalies (
		run_id      TEXT NOT NULL,
		group_field TEXT NOT NULL,
		group_name  TEXT NOT NULL,
		day         TEXT NOT NULL,
		count       INTEGER NOT NULL,
		robust_z    DOUBLE PRECISION NOT NULL,
		median      DOUBLE PRECISION NOT NULL,
		scale       DOUBLE PRECISION NOT NULL,
		threshold   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, group_name, day)
	)`,
}

// RunRow is one exported run.
type RunRow struct {
	RunID       string `db:"run_id"`
	GeneratedAt string `db:"generated_at"`
	Days        int    `db:"days"`
	Anomalies   int    `db:"anomalies"`
}

// DailyCountRow is one day of the total series.
type DailyCountRow struct {
	RunID string `db:"run_id"`
	Day   string `db:"day"`
	Count int    `db:"count"`
}

// AnomalyRow is one flagged day.
type AnomalyRow struct {
	RunID      string  `db:"run_id"`
	GroupField string  `db:"group_field"`
	Group      string  `db:"group_name"`
	Day        string  `db:"day"`
	Count      int     `db:"count"`
	RobustZ    float64 `db:"robust_z"`
	Median     float64 `db:"median"`
	Scale      float64 `db:"scale"`
	Threshold  float64 `db:"threshold"`
}

// Store writes findings through sqlx.
// It implements pipeline.FindingsSink.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the database and creates the tables if needed.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps ":memory:" databases and file locks coherent.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Name identifies the sink in logs.
func (s *Store) Name() string { return "sql" }

// Export stores the daily series and the top anomalies of every result in
// one transaction.
func (s *Store) Export(ctx context.Context, f analysis.Findings) (err error) {
	daily := make([]DailyCountRow, len(f.Daily))
	for i, c := range f.Daily {
		daily[i] = DailyCountRow{RunID: f.RunID, Day: c.Day.Format(dayLayout), Count: c.Count}
	}
	var anomalies []AnomalyRow
	for _, res := range f.Results() {
		field := f.GroupField
		if res.Group == analysis.TotalGroup {
			field = analysis.TotalGroup
		}
		for _, sc := range res.Top(f.Limit) {
			anomalies = append(anomalies, AnomalyRow{
				RunID:      f.RunID,
				GroupField: field,
				Group:      res.Group,
				Day:        sc.Day.Format(dayLayout),
				Count:      sc.Count,
				RobustZ:    sc.RobustZ,
				Median:     res.Median,
				Scale:      res.Scale,
				Threshold:  res.Threshold,
			})
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	run := RunRow{
		RunID:       f.RunID,
		GeneratedAt: f.GeneratedAt.UTC().Format(time.RFC3339),
		Days:        len(daily),
		Anomalies:   len(anomalies),
	}
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO hotspot_runs (run_id, generated_at, days, anomalies)
		 VALUES (:run_id, :generated_at, :days, :anomalies)`, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err = insertAll(ctx, tx,
		`INSERT INTO hotspot_daily_counts (run_id, day, count) VALUES (:run_id, :day, :count)`,
		daily); err != nil {
		return fmt.Errorf("insert daily counts: %w", err)
	}
	if err = insertAll(ctx, tx,
		`INSERT INTO hotspot_anomalies
		 (run_id, group_field, group_name, day, count, robust_z, median, scale, threshold)
		 VALUES (:run_id, :group_field, :group_name, :day, :count, :robust_z, :median, :scale, :threshold)`,
		anomalies); err != nil {
		return fmt.Errorf("insert anomalies: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("findings exported", "sink", s.Name(), "run_id", f.RunID, "days", len(daily), "anomalies", len(anomalies))
	return nil
}

func insertAll[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Run returns the stored summary of a run.
func (s *Store) Run(ctx context.Context, runID string) (RunRow, error) {
	var row RunRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT run_id, generated_at, days, anomalies FROM hotspot_runs WHERE run_id = ?`), runID)
	return row, err
}

// DailyCounts returns the stored daily series of a run in day order.
func (s *Store) DailyCounts(ctx context.Context, runID string) ([]DailyCountRow, error) {
	var rows []DailyCountRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT run_id, day, count FROM hotspot_daily_counts WHERE run_id = ? ORDER BY day`), runID)
	return rows, err
}

// Anomalies returns the stored anomalies of a run, highest count first.
func (s *Store) Anomalies(ctx context.Context, runID string) ([]AnomalyRow, error) {
	var rows []AnomalyRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT run_id, group_field, group_name, day, count, robust_z, median, scale, threshold
		 FROM hotspot_anomalies WHERE run_id = ? ORDER BY count DESC, day, group_name`), runID)
	return rows, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
