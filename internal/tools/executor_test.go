package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func newTestExecutor(t *testing.T) (*Executor, *Registry) {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister("getCaseDetails", func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		return map[string]any{"caseId": params["caseId"], "species": "canine"}, nil
	})
	reg.MustRegister("logHealthConcern", func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		return nil, errors.New("persistence unavailable")
	})
	reg.MustRegister("echoMeta", func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		return map[string]string{"callId": meta.CallID, "toolCallId": meta.ToolCallID}, nil
	})
	return NewExecutor(reg, nil), reg
}

func TestExecute_FunctionEnvelopeWithObjectArguments(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:       "tc-1",
		Function: &FunctionSpec{Name: "getCaseDetails", Arguments: json.RawMessage(`{"caseId":"c-9"}`)},
	}}, SessionMeta{CallID: "call-1"})

	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Results))
	}
	if res.Results[0].ToolCallID != "tc-1" {
		t.Fatalf("wrong toolCallId: %q", res.Results[0].ToolCallID)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Results[0].Result), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload["caseId"] != "c-9" {
		t.Fatalf("expected caseId c-9, got %v", payload["caseId"])
	}
}

func TestExecute_FunctionEnvelopeWithStringArguments(t *testing.T) {
	e, _ := newTestExecutor(t)

	// Arguments arrive as a JSON-encoded string, not a decoded object.
	res := e.Execute(context.Background(), []ToolCall{{
		ID:       "tc-2",
		Function: &FunctionSpec{Name: "getCaseDetails", Arguments: json.RawMessage(`"{\"caseId\":\"c-3\"}"`)},
	}}, SessionMeta{})

	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Results[0].Result), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload["caseId"] != "c-3" {
		t.Fatalf("expected caseId c-3, got %v", payload["caseId"])
	}
}

func TestExecute_LegacyFlatEnvelope(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:         "tc-3",
		Name:       "getCaseDetails",
		Parameters: map[string]any{"caseId": "c-7"},
	}}, SessionMeta{})

	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Results[0].Result), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload["caseId"] != "c-7" {
		t.Fatalf("expected caseId c-7, got %v", payload["caseId"])
	}
}

func TestExecute_TenantPrefixedNameResolves(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:       "tc-4",
		Function: &FunctionSpec{Name: "lakeview_getCaseDetails", Arguments: json.RawMessage(`{}`)},
	}}, SessionMeta{})

	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Results[0].Result), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload["species"] != "canine" {
		t.Fatalf("prefixed name did not resolve to canonical tool: %v", payload)
	}
}

func TestExecute_OneFailureDoesNotDropEntries(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{
		{ID: "a", Function: &FunctionSpec{Name: "getCaseDetails", Arguments: json.RawMessage(`{}`)}},
		{ID: "b", Function: &FunctionSpec{Name: "logHealthConcern", Arguments: json.RawMessage(`{}`)}},
		{ID: "c", Function: &FunctionSpec{Name: "getCaseDetails", Arguments: json.RawMessage(`{}`)}},
	}, SessionMeta{})

	if len(res.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Results))
	}
	byID := map[string]string{}
	for _, r := range res.Results {
		byID[r.ToolCallID] = r.Result
	}
	for _, id := range []string{"a", "b", "c"} {
		if byID[id] == "" {
			t.Fatalf("missing result for %q", id)
		}
	}

	var failure map[string]string
	if err := json.Unmarshal([]byte(byID["b"]), &failure); err != nil {
		t.Fatalf("error result not valid JSON: %v", err)
	}
	if failure["error"] != "tool_execution_failed" {
		t.Fatalf("expected structured error payload, got %v", failure)
	}
	if failure["message"] != "persistence unavailable" {
		t.Fatalf("expected handler message, got %q", failure["message"])
	}
}

func TestExecute_UnknownToolReturnsErrorEntry(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:   "tc-5",
		Name: "doesNotExist",
	}}, SessionMeta{})

	var failure map[string]string
	if err := json.Unmarshal([]byte(res.Results[0].Result), &failure); err != nil {
		t.Fatalf("error result not valid JSON: %v", err)
	}
	if failure["error"] != "tool_execution_failed" {
		t.Fatalf("expected error payload for unknown tool, got %v", failure)
	}
}

func TestExecute_UnparseableArgumentsBecomeEmptyParams(t *testing.T) {
	reg := NewRegistry()
	var seen map[string]any
	reg.MustRegister("echo", func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) {
		seen = params
		return "ok", nil
	})
	e := NewExecutor(reg, nil)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:       "tc-6",
		Function: &FunctionSpec{Name: "echo", Arguments: json.RawMessage(`"not json at all"`)},
	}}, SessionMeta{})

	if res.Results[0].Result != `"ok"` {
		t.Fatalf("expected double-encoded string result, got %q", res.Results[0].Result)
	}
	if len(seen) != 0 {
		t.Fatalf("expected empty params, got %v", seen)
	}
}

func TestExecute_MetaPropagates(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), []ToolCall{{
		ID:       "tc-7",
		Function: &FunctionSpec{Name: "echoMeta"},
	}}, SessionMeta{CallID: "call-42", AssistantID: "asst-1"})

	var payload map[string]string
	if err := json.Unmarshal([]byte(res.Results[0].Result), &payload); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if payload["callId"] != "call-42" || payload["toolCallId"] != "tc-7" {
		t.Fatalf("meta not propagated: %v", payload)
	}
}

func TestRegistry_RejectsDuplicateAndNil(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("x", nil); err == nil {
		t.Fatalf("expected error for nil handler")
	}
	ok := func(ctx context.Context, params map[string]any, meta CallMeta) (any, error) { return nil, nil }
	if err := reg.Register("x", ok); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := reg.Register("x", ok); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
