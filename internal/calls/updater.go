package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vetvoice-platform/pkg/logger"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for call rows. Update applies only the
// given fields; it never rewrites the whole row.
type Store interface {
	GetByProviderID(ctx context.Context, providerCallID string) (CallRecord, error)
	Update(ctx context.Context, callID string, fields map[string]any) error
}

// Updater consumes call-lifecycle webhook events and persists derived state.
//
// The provider may deliver events out of arrival order under retry, so every
// write checks the current persisted status first: a stale status-update
// arriving after a terminal event is dropped, not blindly applied.
type Updater struct {
	store Store
	cases CaseStore
	clock func() time.Time
}

func NewUpdater(store Store, cases CaseStore) *Updater {
	return &Updater{store: store, cases: cases, clock: time.Now}
}

// statusFromProvider maps provider status strings onto the internal
// lifecycle. Unknown statuses map to empty and are ignored by callers.
func statusFromProvider(s string) CallStatus {
	switch s {
	case "queued", "scheduled":
		return CallStatusQueued
	case "ringing":
		return CallStatusRinging
	case "in-progress", "in_progress":
		return CallStatusInProgress
	case "ended", "completed":
		return CallStatusCompleted
	case "failed", "error":
		return CallStatusFailed
	case "canceled", "cancelled":
		return CallStatusCanceled
	default:
		return ""
	}
}

// failureEndedReasons are provider ended-reasons that mean the call never
// reached the client, so a terminal "ended" still counts as failed.
var failureEndedReasons = map[string]bool{
	"customer-did-not-answer":  true,
	"customer-busy":            true,
	"twilio-failed-connection": true,
	"dial-no-answer":           true,
	"assistant-error":          true,
}

// HandleStatusUpdate applies a mid-call status transition.
func (u *Updater) HandleStatusUpdate(ctx context.Context, providerCallID, providerStatus string) error {
	log := logger.From(ctx)

	status := statusFromProvider(providerStatus)
	if status == "" {
		log.Warn("ignoring unknown provider call status", "status", providerStatus, "provider_call_id", providerCallID)
		return nil
	}

	rec, err := u.store.GetByProviderID(ctx, providerCallID)
	if err != nil {
		return fmt.Errorf("load call %s: %w", providerCallID, err)
	}

	if rec.Status.IsTerminal() && !status.IsTerminal() {
		log.Debug("dropping stale status update after terminal state",
			"call_id", rec.ID, "current", rec.Status, "incoming", status)
		return nil
	}
	if rec.Status == status {
		return nil
	}

	return u.store.Update(ctx, rec.ID, map[string]any{
		"status":     string(status),
		"updated_at": u.clock().UTC(),
	})
}

// EndOfCallReport is the terminal event for a call: final status, the
// reason the call ended, and the provider's structured analysis.
type EndOfCallReport struct {
	ProviderCallID string
	EndedReason    string
	Analysis       map[string]any
}

// HandleEndOfCallReport derives terminal status and attention classification
// and persists both in one update.
func (u *Updater) HandleEndOfCallReport(ctx context.Context, rep EndOfCallReport) error {
	rec, err := u.store.GetByProviderID(ctx, rep.ProviderCallID)
	if err != nil {
		return fmt.Errorf("load call %s: %w", rep.ProviderCallID, err)
	}

	status := CallStatusCompleted
	if failureEndedReasons[rep.EndedReason] {
		status = CallStatusFailed
	}
	// A report re-delivered after the row already reached failed/canceled
	// must not resurrect the call as completed.
	if rec.Status.IsTerminal() && rec.Status != status {
		status = rec.Status
	}

	updates := map[string]any{
		"status":     string(status),
		"updated_at": u.clock().UTC(),
	}
	if rep.EndedReason != "" {
		updates["ended_reason"] = rep.EndedReason
	}

	cls := DeriveAttention(rep.Analysis)
	ApplyAttention(ctx, rec, cls, updates, u.cases)

	return u.store.Update(ctx, rec.ID, updates)
}
