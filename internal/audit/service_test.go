package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresClinicAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallScheduled}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{ClinicID: "cl"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogScheduled(context.Background(), EventTypeCallScheduled, "cl", "u", "clinic_admin", "1.2.3.4", "call-1", "job-1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].CallID != "call-1" || evs[0].JobID != "job-1" {
		t.Fatalf("expected target ids captured: %+v", evs[0])
	}
	if evs[0].Type != EventTypeCallScheduled {
		t.Fatalf("expected call_scheduled")
	}
}
