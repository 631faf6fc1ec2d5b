package calls

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseAttentionTypes_AllEncodingsNormalize(t *testing.T) {
	want := []string{"health_concern", "emergency_signs"}

	inputs := []any{
		[]any{"health_concern", "emergency_signs"},
		`["health_concern","emergency_signs"]`,
		"health_concern, emergency_signs",
	}
	for _, in := range inputs {
		if got := parseAttentionTypes(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("parseAttentionTypes(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestParseAttentionTypes_FallbackToRawValue(t *testing.T) {
	got := parseAttentionTypes("medication_question")
	if !reflect.DeepEqual(got, []string{"medication_question"}) {
		t.Fatalf("expected single-element fallback, got %v", got)
	}
}

func TestParseAttentionTypes_UnknownScalarStringified(t *testing.T) {
	// JSON numbers decode as float64; a bare scalar still keeps its raw
	// string form instead of vanishing.
	got := parseAttentionTypes(float64(3))
	if !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("expected stringified scalar, got %v", got)
	}
	got = parseAttentionTypes(true)
	if !reflect.DeepEqual(got, []string{"true"}) {
		t.Fatalf("expected stringified bool, got %v", got)
	}
	if got := parseAttentionTypes(nil); got != nil {
		t.Fatalf("expected nil for nil value, got %v", got)
	}
}

func TestParseAttentionTypes_MalformedJSONArrayString(t *testing.T) {
	// Looks like JSON but isn't; should not panic and should not be dropped.
	got := parseAttentionTypes("[\"broken")
	if len(got) != 1 || got[0] != "[\"broken" {
		t.Fatalf("expected raw fallback, got %v", got)
	}
}

func TestDeriveAttention_FullPayload(t *testing.T) {
	cls := DeriveAttention(map[string]any{
		"needs_attention":    true,
		"attention_types":    `["health_concern","emergency_signs"]`,
		"attention_severity": "critical",
		"attention_summary":  "possible post-op infection",
	})

	if !cls.NeedsAttention {
		t.Fatalf("expected needs attention")
	}
	if cls.Severity != SeverityCritical {
		t.Fatalf("expected critical, got %q", cls.Severity)
	}
	if !reflect.DeepEqual(cls.Types, []string{"health_concern", "emergency_signs"}) {
		t.Fatalf("unexpected types: %v", cls.Types)
	}
	if cls.Summary != "possible post-op infection" {
		t.Fatalf("unexpected summary: %q", cls.Summary)
	}
}

func TestDeriveAttention_NilAndEmpty(t *testing.T) {
	if cls := DeriveAttention(nil); cls.NeedsAttention {
		t.Fatalf("nil payload must not need attention")
	}
	if cls := DeriveAttention(map[string]any{}); cls.NeedsAttention {
		t.Fatalf("empty payload must not need attention")
	}
}

func TestDeriveAttention_StringBool(t *testing.T) {
	cls := DeriveAttention(map[string]any{"needs_attention": "true"})
	if !cls.NeedsAttention {
		t.Fatalf("expected string \"true\" to count as needing attention")
	}
}

type stubCaseStore struct {
	calls []string
	err   error
}

func (s *stubCaseStore) MarkUrgent(ctx context.Context, caseID, summary string) error {
	s.calls = append(s.calls, caseID)
	return s.err
}

func TestApplyAttention_NoAttentionAddsNothing(t *testing.T) {
	updates := map[string]any{}
	cases := &stubCaseStore{}

	ApplyAttention(context.Background(), CallRecord{ID: "c1", CaseID: "case1"},
		AttentionClassification{NeedsAttention: false}, updates, cases)

	if len(updates) != 0 {
		t.Fatalf("expected zero keys added, got %v", updates)
	}
	if len(cases.calls) != 0 {
		t.Fatalf("expected no case escalation")
	}
}

func TestApplyAttention_CriticalWithCaseEscalatesOnce(t *testing.T) {
	updates := map[string]any{}
	cases := &stubCaseStore{}

	ApplyAttention(context.Background(), CallRecord{ID: "c1", CaseID: "case1"},
		AttentionClassification{
			NeedsAttention: true,
			Types:          []string{"emergency_signs"},
			Severity:       SeverityCritical,
			Summary:        "labored breathing",
		}, updates, cases)

	if len(cases.calls) != 1 || cases.calls[0] != "case1" {
		t.Fatalf("expected exactly one escalation to case1, got %v", cases.calls)
	}
	if updates["attention_severity"] != "critical" {
		t.Fatalf("expected severity merged into update set, got %v", updates)
	}
}

func TestApplyAttention_UrgentDoesNotEscalate(t *testing.T) {
	updates := map[string]any{}
	cases := &stubCaseStore{}

	ApplyAttention(context.Background(), CallRecord{ID: "c1", CaseID: "case1"},
		AttentionClassification{NeedsAttention: true, Severity: SeverityUrgent}, updates, cases)

	if len(cases.calls) != 0 {
		t.Fatalf("urgent severity must not escalate the case, got %v", cases.calls)
	}
	if updates["attention_severity"] != "urgent" {
		t.Fatalf("expected urgent severity merged, got %v", updates)
	}
}

func TestApplyAttention_CriticalWithoutCaseDoesNotEscalate(t *testing.T) {
	cases := &stubCaseStore{}

	ApplyAttention(context.Background(), CallRecord{ID: "c1"},
		AttentionClassification{NeedsAttention: true, Severity: SeverityCritical}, map[string]any{}, cases)

	if len(cases.calls) != 0 {
		t.Fatalf("no case id means no escalation, got %v", cases.calls)
	}
}

func TestApplyAttention_EscalationFailureDoesNotPropagate(t *testing.T) {
	updates := map[string]any{}
	cases := &stubCaseStore{err: errors.New("cases table locked")}

	// Must not panic or surface the error; the call update proceeds.
	ApplyAttention(context.Background(), CallRecord{ID: "c1", CaseID: "case1"},
		AttentionClassification{NeedsAttention: true, Severity: SeverityCritical}, updates, cases)

	if updates["attention_severity"] != "critical" {
		t.Fatalf("call update fields must still be merged, got %v", updates)
	}
}
