package routing

import (
	"context"
	"testing"
	"time"
)

type memOverrideStore struct {
	over Override
	ok   bool
	err  error
}

func (m memOverrideStore) GetActiveOverride(ctx context.Context, call InboundCall, now time.Time) (Override, bool, error) {
	return m.over, m.ok, m.err
}

type memAudit struct {
	called bool
	event  OverrideAuditEvent
}

func (m *memAudit) LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error {
	m.called = true
	m.event = e
	return nil
}

func TestAdminOverrideEngine_AppliesWhenActiveAndSilent(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	a := &memAudit{}
	e := NewAdminOverrideEngine(memOverrideStore{over: Override{ClinicID: "cl", AssistantID: "asst-x", ExpiresAt: now.Add(5 * time.Minute)}, ok: true}, a)
	e.Now = func() time.Time { return now }

	dec, applied, err := e.Decide(context.Background(), InboundCall{ProviderCallID: "pc", DialedNumber: "+15550142", CallerNumber: "+15550100"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !applied {
		t.Fatalf("expected applied")
	}
	if dec.Action != ActionAssign || dec.AssistantID != "asst-x" {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if dec.Reason != "" {
		t.Fatalf("expected silent decision (no reason), got %q", dec.Reason)
	}
	if !a.called {
		t.Fatalf("expected audit called")
	}
	if a.event.DialedNumber != "+15550142" {
		t.Fatalf("expected dialed number in audit event")
	}
}

func TestAdminOverrideEngine_RecordsClientIPFromContext(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	a := &memAudit{}
	e := NewAdminOverrideEngine(memOverrideStore{over: Override{ClinicID: "cl", AssistantID: "asst-x", ExpiresAt: now.Add(5 * time.Minute)}, ok: true}, a)
	e.Now = func() time.Time { return now }

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	_, applied, err := e.Decide(ctx, InboundCall{ProviderCallID: "pc", DialedNumber: "+15550142"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !applied {
		t.Fatalf("expected applied")
	}
	if a.event.IPAddress != "203.0.113.9" {
		t.Fatalf("expected client ip in audit event, got %q", a.event.IPAddress)
	}
}

func TestAdminOverrideEngine_IgnoresExpired(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	e := NewAdminOverrideEngine(memOverrideStore{over: Override{ClinicID: "cl", AssistantID: "asst-x", ExpiresAt: now.Add(-1 * time.Second)}, ok: true}, &memAudit{})
	e.Now = func() time.Time { return now }

	_, applied, err := e.Decide(context.Background(), InboundCall{ProviderCallID: "pc", DialedNumber: "+15550142"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if applied {
		t.Fatalf("expected not applied")
	}
}
