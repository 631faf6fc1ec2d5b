package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Repo persists ScheduledJob rows.
type Repo interface {
	Insert(ctx context.Context, job ScheduledJob) error
	Delete(ctx context.Context, jobID string) error
	SetDurableJobID(ctx context.Context, jobID, durableJobID string) error
	GetByTarget(ctx context.Context, kind JobKind, targetID string) (ScheduledJob, error)
	SetStatus(ctx context.Context, jobID string, status JobStatus) error
	DeleteZombies(ctx context.Context, olderThan time.Time) (int64, error)
}

// PostgresRepo is the production Repo.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, job ScheduledJob) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (job_id, kind, target_id, scheduled_for, status, durable_job_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		job.ID, string(job.Kind), job.TargetID, job.ScheduledFor.UTC(), string(job.Status),
		job.DurableJobID, job.CreatedAt.UTC())
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SetDurableJobID(ctx context.Context, jobID, durableJobID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET durable_job_id = $2 WHERE job_id = $1`, jobID, durableJobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByTarget returns the most recent job for a target. The execution
// endpoint uses it to find the row the durable delivery refers to.
func (r *PostgresRepo) GetByTarget(ctx context.Context, kind JobKind, targetID string) (ScheduledJob, error) {
	var job ScheduledJob
	var durableJobID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT job_id, kind, target_id, scheduled_for, status, durable_job_id, created_at
		 FROM scheduled_jobs
		 WHERE kind = $1 AND target_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		string(kind), targetID).
		Scan(&job.ID, &job.Kind, &job.TargetID, &job.ScheduledFor, &job.Status, &durableJobID, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ScheduledJob{}, ErrNotFound
	}
	if err != nil {
		return ScheduledJob{}, err
	}
	job.DurableJobID = durableJobID.String
	return job, nil
}

func (r *PostgresRepo) SetStatus(ctx context.Context, jobID string, status JobStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = $2 WHERE job_id = $1`, jobID, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteZombies removes queued rows past the grace window that never got a
// durable job id (see the ScheduledJob invariant).
func (r *PostgresRepo) DeleteZombies(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM scheduled_jobs
		 WHERE status = $1 AND durable_job_id IS NULL AND created_at < $2`,
		string(StatusQueued), olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
