// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db records check runs in a SQL database through Bun. SQLite,
// PostgreSQL and MySQL are supported.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/toeirei/sshfpcheck/internal/logging"
	"github.com/toeirei/sshfpcheck/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// CheckRunModel is the Bun mapping of model.CheckRun.
type CheckRunModel struct {
	bun.BaseModel `bun:"table:check_runs"`

	ID        int64     `bun:"id,pk,autoincrement"`
	CheckedAt time.Time `bun:"checked_at,notnull"`
	Host      string    `bun:"host,notnull"`
	Port      int       `bun:"port,notnull"`
	Status    string    `bun:"status,notnull"`
	Message   string    `bun:"message,notnull"`
}

func (m CheckRunModel) toModel() model.CheckRun {
	return model.CheckRun{
		ID:        m.ID,
		CheckedAt: m.CheckedAt,
		Host:      m.Host,
		Port:      m.Port,
		Status:    m.Status,
		Message:   m.Message,
	}
}

// HistoryStore persists check runs.
type HistoryStore struct {
	bun *bun.DB
}

// sqlOpenFunc is swapped in tests.
var sqlOpenFunc = sql.Open

// Open connects to dbType ("sqlite", "postgres" or "mysql") and makes sure
// the schema exists.
func Open(ctx context.Context, dbType, dsn string) (*HistoryStore, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	if _, err := dialectFor(dbType); err != nil {
		return nil, err
	}

	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A monitoring check is one short-lived connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	bunDB, err := createBunDB(sqlDB, dbType)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	s := &HistoryStore{bun: bunDB}
	if err := s.migrate(ctx); err != nil {
		_ = bunDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logging.Debugf("db: opened %s history in %s", dbType, time.Since(start))
	return s, nil
}

func dialectFor(dbType string) (schema.Dialect, error) {
	switch dbType {
	case "sqlite":
		return sqlitedialect.New(), nil
	case "postgres":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) (*bun.DB, error) {
	d, err := dialectFor(dbType)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, d), nil
}

func (s *HistoryStore) migrate(ctx context.Context) error {
	if _, err := s.bun.NewCreateTable().Model((*CheckRunModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS; the table scan is fine there.
	if s.bun.Dialect().Name() == dialect.MySQL {
		return nil
	}
	_, err := s.bun.NewCreateIndex().
		Model((*CheckRunModel)(nil)).
		Index("check_runs_host_checked_at_idx").
		IfNotExists().
		Column("host", "checked_at").
		Exec(ctx)
	return err
}

// Record appends a run. A zero CheckedAt is set to the current time.
func (s *HistoryStore) Record(ctx context.Context, run model.CheckRun) error {
	if run.CheckedAt.IsZero() {
		run.CheckedAt = time.Now().UTC()
	}
	m := &CheckRunModel{
		CheckedAt: run.CheckedAt,
		Host:      run.Host,
		Port:      run.Port,
		Status:    run.Status,
		Message:   run.Message,
	}
	_, err := s.bun.NewInsert().Model(m).Exec(ctx)
	return err
}

// Recent returns up to limit runs for host, newest first.
func (s *HistoryStore) Recent(ctx context.Context, host string, limit int) ([]model.CheckRun, error) {
	var rows []CheckRunModel
	q := s.bun.NewSelect().Model(&rows).Where("host = ?", host).OrderExpr("checked_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.CheckRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// LastStatusChange returns the most recent run whose status differs from
// the run before it, or nil when host never changed status.
func (s *HistoryStore) LastStatusChange(ctx context.Context, host string) (*model.CheckRun, error) {
	runs, err := s.Recent(ctx, host, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(runs); i++ {
		if runs[i].Status != runs[i+1].Status {
			r := runs[i]
			return &r, nil
		}
	}
	return nil, nil
}

// Close releases the database.
func (s *HistoryStore) Close() error {
	return s.bun.Close()
}
