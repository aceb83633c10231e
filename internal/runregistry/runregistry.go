// Package runregistry is an optional Postgres secondary index over run
// metadata, grounded on the teacher's internal/db/jobs.go raw-SQL,
// $1-placeholder style. It is purely a rebuildable cache: the Run
// Journal's on-disk files remain the source of truth, and a missing or
// unreachable registry never blocks a run — callers log and continue.
package runregistry

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/productionorchestrator/orchestrator/internal/journal"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

// Registry wraps a Postgres connection used only to index runs for fast
// listing/filtering; never read back into the orchestrator's control
// flow.
type Registry struct {
	db *sql.DB
}

func New(databaseURL string) (*Registry, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "runregistry.new", err)
	}
	if err := db.Ping(); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "runregistry.new", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Registry{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			concept TEXT NOT NULL,
			status TEXT NOT NULL,
			current_stage TEXT NOT NULL,
			progress_percent INTEGER NOT NULL,
			budget_usd DOUBLE PRECISION NOT NULL,
			committed_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)
	`
	if _, err := db.Exec(query); err != nil {
		return orcherr.New(orcherr.JournalIO, "runregistry.ensure_schema", err)
	}
	return nil
}

func (r *Registry) Close() error { return r.db.Close() }

// Upsert indexes (or re-indexes) one run's head with the given committed
// spend. cmd/orchestrator calls it once per run, after the run completes.
func (r *Registry) Upsert(ctx context.Context, head journal.Head, committedUSD float64) error {
	query := `
		INSERT INTO runs (run_id, concept, status, current_stage, progress_percent, budget_usd, committed_usd, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_stage = EXCLUDED.current_stage,
			progress_percent = EXCLUDED.progress_percent,
			committed_usd = EXCLUDED.committed_usd,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`
	_, err := r.db.ExecContext(ctx, query,
		head.RunID, head.Concept, head.Status, head.CurrentStage, head.ProgressPercent,
		head.BudgetUSD, committedUSD, head.CreatedAt, head.UpdatedAt, head.CompletedAt,
	)
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "runregistry.upsert", err)
	}
	return nil
}

// RunSummary is one indexed row, independent of journal.Head so callers
// don't need to reconstruct a full journal record just to list runs.
type RunSummary struct {
	RunID           string
	Concept         string
	Status          string
	CurrentStage    string
	ProgressPercent int
	BudgetUSD       float64
	CommittedUSD    float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func (r *Registry) List(ctx context.Context, statusFilter string, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, concept, status, current_stage, progress_percent, budget_usd, committed_usd, created_at, updated_at, completed_at
		FROM runs
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, statusFilter, limit)
	if err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "runregistry.list", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Concept, &s.Status, &s.CurrentStage, &s.ProgressPercent,
			&s.BudgetUSD, &s.CommittedUSD, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt); err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "runregistry.list", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, runID string) (RunSummary, error) {
	query := `
		SELECT run_id, concept, status, current_stage, progress_percent, budget_usd, committed_usd, created_at, updated_at, completed_at
		FROM runs
		WHERE run_id = $1
	`
	var s RunSummary
	err := r.db.QueryRowContext(ctx, query, runID).Scan(&s.RunID, &s.Concept, &s.Status, &s.CurrentStage,
		&s.ProgressPercent, &s.BudgetUSD, &s.CommittedUSD, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)
	if err == sql.ErrNoRows {
		return RunSummary{}, orcherr.New(orcherr.InputInvalid, "runregistry.get", err).WithDetail("run_id", runID)
	}
	if err != nil {
		return RunSummary{}, orcherr.New(orcherr.JournalIO, "runregistry.get", err)
	}
	return s, nil
}

func (r *Registry) Delete(ctx context.Context, runID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, runID); err != nil {
		return orcherr.New(orcherr.JournalIO, "runregistry.delete", err)
	}
	return nil
}

// Rebuild upserts one row per run head in the Journal's on-disk files,
// with committed spend recorded as 0. Rows for runs that have no journal
// file are left in place; the journal files remain the source of truth.
func Rebuild(ctx context.Context, reg *Registry, mgr *journal.Manager) error {
	heads, err := mgr.List(ctx, 0)
	if err != nil {
		return err
	}
	for _, h := range heads {
		if err := reg.Upsert(ctx, h, 0); err != nil {
			return err
		}
	}
	return nil
}
