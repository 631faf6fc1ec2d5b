package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vetvoice-platform/internal/calls"
)

// CallSource resolves the call record behind an in-progress provider call.
type CallSource interface {
	GetByProviderID(ctx context.Context, providerCallID string) (calls.CallRecord, error)
}

// CaseFlagger flags a case for urgent staff review.
type CaseFlagger interface {
	MarkUrgent(ctx context.Context, caseID, summary string) error
}

// FollowUpScheduler books a delayed re-dial of an existing call.
type FollowUpScheduler interface {
	ScheduleCall(ctx context.Context, callID string, at time.Time) (jobID string, err error)
}

// Deps carries the collaborators the default tool set needs.
type Deps struct {
	Calls     CallSource
	Cases     CaseFlagger
	FollowUps FollowUpScheduler
}

// RegisterDefaults installs the standard clinic tool set. Tool names are
// canonical; clinic-prefixed variants are resolved by NormalizeName at
// dispatch time.
func RegisterDefaults(r *Registry, d Deps) error {
	if d.Calls == nil {
		return errors.New("tools: call source is required")
	}
	register := map[string]Handler{
		"getCaseDetails":       getCaseDetails(d),
		"logHealthConcern":     logHealthConcern(d),
		"scheduleFollowUpCall": scheduleFollowUpCall(d),
	}
	for name, h := range register {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

func currentCall(ctx context.Context, d Deps, meta CallMeta) (calls.CallRecord, error) {
	if meta.CallID == "" {
		return calls.CallRecord{}, errors.New("call id missing from tool invocation")
	}
	rec, err := d.Calls.GetByProviderID(ctx, meta.CallID)
	if err != nil {
		return calls.CallRecord{}, fmt.Errorf("resolve call %s: %w", meta.CallID, err)
	}
	return rec, nil
}

// getCaseDetails gives the agent the case context for the call in progress.
func getCaseDetails(d Deps) Handler {
	return func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		rec, err := currentCall(ctx, d, meta)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"caseId":     rec.CaseID,
			"callStatus": string(rec.Status),
		}
		if rec.AttentionSummary != "" {
			out["attentionSummary"] = rec.AttentionSummary
		}
		if rec.ScheduledFor != nil {
			out["scheduledFor"] = rec.ScheduledFor.UTC().Format(time.RFC3339)
		}
		return out, nil
	}
}

// logHealthConcern flags the parent case so staff review it before close.
func logHealthConcern(d Deps) Handler {
	return func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		summary, _ := params["summary"].(string)
		if summary == "" {
			return nil, errors.New("summary is required")
		}
		if d.Cases == nil {
			return nil, errors.New("case store is not configured")
		}
		rec, err := currentCall(ctx, d, meta)
		if err != nil {
			return nil, err
		}
		if rec.CaseID == "" {
			return nil, errors.New("call has no case attached")
		}
		if err := d.Cases.MarkUrgent(ctx, rec.CaseID, summary); err != nil {
			return nil, err
		}
		return map[string]any{"logged": true, "caseId": rec.CaseID}, nil
	}
}

// scheduleFollowUpCall books a delayed re-dial through the durable scheduler.
func scheduleFollowUpCall(d Deps) Handler {
	return func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		raw, _ := params["scheduledFor"].(string)
		if raw == "" {
			return nil, errors.New("scheduledFor is required")
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("scheduledFor must be RFC 3339: %w", err)
		}
		if d.FollowUps == nil {
			return nil, errors.New("scheduler is not configured")
		}
		rec, err := currentCall(ctx, d, meta)
		if err != nil {
			return nil, err
		}
		jobID, err := d.FollowUps.ScheduleCall(ctx, rec.ID, at)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"jobId":        jobID,
			"scheduledFor": at.UTC().Format(time.RFC3339),
		}, nil
	}
}
