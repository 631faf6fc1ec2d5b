package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/metrics"

	"github.com/google/uuid"
)

var (
	ErrPastScheduledTime = errors.New("scheduled time must be in the future")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Service schedules delayed jobs and exposes the immediate-execution
// bypass. Scheduling is authoritative on server time: the delay is computed
// here against the injected clock, never taken from the client.
type Service struct {
	repo   Repo
	queue  Publisher
	httpc  *http.Client
	clock  func() time.Time
	mx     *metrics.Metrics
	secret string

	// webhookBaseURL is this service's public base; execution endpoints
	// live under it.
	webhookBaseURL string
}

func NewService(repo Repo, queue Publisher, webhookBaseURL, immediateSecret string, mx *metrics.Metrics) *Service {
	return &Service{
		repo:           repo,
		queue:          queue,
		httpc:          &http.Client{Timeout: 30 * time.Second},
		clock:          time.Now,
		mx:             mx,
		secret:         immediateSecret,
		webhookBaseURL: webhookBaseURL,
	}
}

func (s *Service) executionURL(kind JobKind) string {
	return fmt.Sprintf("%s/webhooks/execute/%s", s.webhookBaseURL, kind)
}

// Schedule persists a pending job and enqueues its durable delivery.
//
// Two-phase commit, no distributed transaction available:
//  1. insert the pending row;
//  2. publish the durable job;
//  3. on publish failure, run the named compensation (delete the row) and
//     re-throw — the caller must learn the operation did not complete;
//  4. on success, patch the row with the durable job id. A patch failure is
//     non-fatal: the job is already durably enqueued.
func (s *Service) Schedule(ctx context.Context, kind JobKind, targetID string, at time.Time) (ScheduledJob, error) {
	log := logger.From(ctx)

	if !kind.Valid() {
		return ScheduledJob{}, fmt.Errorf("%w: unknown job kind %q", ErrInvalidArgument, kind)
	}
	if targetID == "" {
		return ScheduledJob{}, fmt.Errorf("%w: target id is required", ErrInvalidArgument)
	}

	now := s.clock()
	delay := at.Sub(now)
	if delay < 0 {
		s.mx.JobScheduled(string(kind), "rejected_past")
		return ScheduledJob{}, ErrPastScheduledTime
	}

	job := ScheduledJob{
		ID:           uuid.NewString(),
		Kind:         kind,
		TargetID:     targetID,
		ScheduledFor: at.UTC(),
		Status:       StatusQueued,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.Insert(ctx, job); err != nil {
		s.mx.JobScheduled(string(kind), "insert_failed")
		return ScheduledJob{}, fmt.Errorf("insert scheduled job: %w", err)
	}

	durableID, err := s.queue.Publish(ctx, s.executionURL(kind), map[string]string{"targetId": targetID}, delay)
	if err != nil {
		s.rollbackScheduled(ctx, job.ID)
		s.mx.JobScheduled(string(kind), "enqueue_failed")
		return ScheduledJob{}, fmt.Errorf("enqueue durable job: %w", err)
	}

	job.DurableJobID = durableID
	if err := s.repo.SetDurableJobID(ctx, job.ID, durableID); err != nil {
		// Non-fatal: the durable job exists; only traceability suffers.
		log.Error("durable job id patch failed", "job_id", job.ID, "durable_job_id", durableID, "err", err)
	}

	s.mx.JobScheduled(string(kind), "ok")
	return job, nil
}

// rollbackScheduled is the compensation for a failed enqueue. A failed
// delete leaves a zombie row for the sweeper; it is logged, not surfaced,
// because the enqueue error is the one the caller needs.
func (s *Service) rollbackScheduled(ctx context.Context, jobID string) {
	if err := s.repo.Delete(ctx, jobID); err != nil {
		logger.From(ctx).Error("scheduled job rollback failed, sweeper will reap it",
			"job_id", jobID, "err", err)
	}
}

// ImmediateResult is the execution endpoint's reply to a bypass call.
type ImmediateResult struct {
	Success          bool `json:"success"`
	AlreadyProcessed bool `json:"alreadyProcessed,omitempty"`
}

// ExecuteImmediately bypasses the durable queue and calls the execution
// endpoint directly, authenticated by the shared secret header. Test/ops
// path only.
func (s *Service) ExecuteImmediately(ctx context.Context, kind JobKind, targetID string) (ImmediateResult, error) {
	if !kind.Valid() {
		return ImmediateResult{}, fmt.Errorf("%w: unknown job kind %q", ErrInvalidArgument, kind)
	}
	if targetID == "" {
		return ImmediateResult{}, fmt.Errorf("%w: target id is required", ErrInvalidArgument)
	}
	if s.secret == "" {
		// Config validation makes this unreachable in a running service.
		return ImmediateResult{}, errors.New("immediate execution secret is not configured")
	}

	b, err := json.Marshal(map[string]string{"targetId": targetID})
	if err != nil {
		return ImmediateResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.executionURL(kind), bytes.NewReader(b))
	if err != nil {
		return ImmediateResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderImmediateSecret, s.secret)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return ImmediateResult{}, fmt.Errorf("immediate execution request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ImmediateResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ImmediateResult{}, fmt.Errorf("execution endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var out ImmediateResult
	if err := json.Unmarshal(data, &out); err != nil {
		return ImmediateResult{}, fmt.Errorf("decode execution response: %w", err)
	}
	return out, nil
}
