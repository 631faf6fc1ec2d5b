// Package scheduler coordinates delayed delivery of calls and emails: a
// pending row plus a durable remote job pointed at an execution webhook,
// with compensating rollback when enqueue fails.
package scheduler

import "time"

type JobKind string

const (
	KindCall  JobKind = "call"
	KindEmail JobKind = "email"
)

func (k JobKind) Valid() bool {
	return k == KindCall || k == KindEmail
}

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusExecuting JobStatus = "executing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

// ScheduledJob is owned exclusively by this package.
//
// Invariant: a queued row with no durable_job_id is a zombie — either the
// enqueue failed mid-flight or the compensation delete itself failed — and
// must be rolled back by the sweeper, never left orphaned.
type ScheduledJob struct {
	ID           string    `json:"job_id" db:"job_id"`
	Kind         JobKind   `json:"kind" db:"kind"`
	TargetID     string    `json:"target_id" db:"target_id"`
	ScheduledFor time.Time `json:"scheduled_for" db:"scheduled_for"`
	Status       JobStatus `json:"status" db:"status"`
	DurableJobID string    `json:"durable_job_id,omitempty" db:"durable_job_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
