package routing

import (
	"context"
	"errors"
	"time"
)

// AdminOverrideEngine applies silent, expiry-based assistant overrides.
//
// Requirements:
// - Silent routing: callers must not be able to infer that an override was used.
//   That means: do NOT surface special reasons/messages to user-facing APIs.
// - Expiry based: overrides must be time-bounded.
// - Internal audit logging: every applied override should be recorded.
// - No user visibility: audit is internal-only.
//
// This component returns a Decision only and does not call providers.
// It is intended to be placed *ahead of* normal mapping evaluation.

type AdminOverrideEngine struct {
	Store OverrideStore
	Audit AuditLogger
	Now   func() time.Time
}

// OverrideStore resolves currently-active overrides.
// Implementations may use Postgres/Redis.
//
// SECURITY NOTE:
// Keep this data plane accessible only to privileged internal services.

type OverrideStore interface {
	// GetActiveOverride returns an active override if one exists for this call.
	// If none exists, it returns (Override{}, false, nil).
	GetActiveOverride(ctx context.Context, call InboundCall, now time.Time) (Override, bool, error)
}

// AuditLogger records internal-only audit events.
// Implementation should write to an internal audit table/stream.

type AuditLogger interface {
	LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error
}

type Override struct {
	ClinicID string
	// OverrideID is optional but recommended for correlating audit logs.
	OverrideID string

	// AssistantID is the forced assistant.
	AssistantID string

	// ExpiresAt marks when the override stops applying.
	ExpiresAt time.Time

	// Metadata is optional JSON for internal audit correlation.
	Metadata string
}

type OverrideAuditEvent struct {
	ClinicID   string
	OverrideID string

	ProviderCallID string
	DialedNumber   string
	CallerNumber   string
	IPAddress      string

	AssistantID string
	AppliedAt   time.Time
	ExpiresAt   time.Time

	Metadata string
}

func NewAdminOverrideEngine(store OverrideStore, audit AuditLogger) *AdminOverrideEngine {
	return &AdminOverrideEngine{Store: store, Audit: audit, Now: time.Now}
}

// Decide returns (decision, true, nil) if an active override was applied.
// Returns (Decision{}, false, nil) if no override applies.
func (e *AdminOverrideEngine) Decide(ctx context.Context, call InboundCall) (Decision, bool, error) {
	if call.DialedNumber == "" {
		return Decision{}, false, errors.New("routing: dialed number required")
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Store == nil {
		return Decision{}, false, nil
	}

	now := e.Now()
	o, ok, err := e.Store.GetActiveOverride(ctx, call, now)
	if err != nil {
		return Decision{}, false, err
	}
	if !ok {
		return Decision{}, false, nil
	}
	if !o.ExpiresAt.After(now) {
		// Treat as not found; store should ideally filter these out.
		return Decision{}, false, nil
	}
	if o.AssistantID == "" {
		// Misconfiguration: ignore silently but report as internal error.
		return Decision{}, false, errors.New("routing: override assistant_id empty")
	}

	// Silent routing: do NOT expose any special Reason.
	d := Decision{ClinicID: o.ClinicID, AssistantID: o.AssistantID, Action: ActionAssign}

	// Internal audit.
	if e.Audit != nil {
		_ = e.Audit.LogOverrideApplied(ctx, OverrideAuditEvent{
			ClinicID:       o.ClinicID,
			OverrideID:     o.OverrideID,
			ProviderCallID: call.ProviderCallID,
			DialedNumber:   call.DialedNumber,
			CallerNumber:   call.CallerNumber,
			IPAddress:      ClientIPFromContext(ctx),
			AssistantID:    o.AssistantID,
			AppliedAt:      now,
			ExpiresAt:      o.ExpiresAt,
			Metadata:       o.Metadata,
		})
	}

	return d, true, nil
}
