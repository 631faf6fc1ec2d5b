package webhook

import "testing"

func TestParsePayload_MalformedInputsReturnNil(t *testing.T) {
	inputs := map[string][]byte{
		"empty":            nil,
		"zero length":      {},
		"not json":         []byte("CallSid=CA123&From=%2B15550100"),
		"truncated":        []byte(`{"message":{"type":`),
		"json scalar":      []byte(`42`),
		"json string":      []byte(`"status-update"`),
		"missing envelope": []byte(`{"event":"status-update"}`),
		"empty type":       []byte(`{"message":{"type":""}}`),
		"null message":     []byte(`{"message":null}`),
	}
	for name, raw := range inputs {
		if p := ParsePayload(raw); p != nil {
			t.Fatalf("%s: expected nil, got %+v", name, p)
		}
	}
}

func TestParsePayload_ValidEnvelope(t *testing.T) {
	raw := []byte(`{"message":{"type":"status-update","status":"ringing","call":{"id":"prov-1","assistantId":"asst-1"}}}`)
	p := ParsePayload(raw)
	if p == nil {
		t.Fatalf("expected payload")
	}
	if p.Message.Type != TypeStatusUpdate {
		t.Fatalf("unexpected type %q", p.Message.Type)
	}
	if p.Message.Call == nil || p.Message.Call.ID != "prov-1" {
		t.Fatalf("call info not decoded: %+v", p.Message.Call)
	}
}

func TestParsePayload_ToolCallsEnvelope(t *testing.T) {
	raw := []byte(`{"message":{"type":"tool-calls","call":{"id":"prov-1"},"toolCallList":[
		{"id":"tc-1","type":"function","function":{"name":"getCaseDetails","arguments":{"caseId":"c-1"}}},
		{"id":"tc-2","name":"legacyTool","parameters":{"x":1}}
	]}}`)
	p := ParsePayload(raw)
	if p == nil {
		t.Fatalf("expected payload")
	}
	if len(p.Message.ToolCallList) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(p.Message.ToolCallList))
	}
	if p.Message.ToolCallList[0].Function == nil || p.Message.ToolCallList[0].Function.Name != "getCaseDetails" {
		t.Fatalf("function envelope not decoded: %+v", p.Message.ToolCallList[0])
	}
	if p.Message.ToolCallList[1].Name != "legacyTool" {
		t.Fatalf("legacy envelope not decoded: %+v", p.Message.ToolCallList[1])
	}
}

func TestMessageType_Partition(t *testing.T) {
	sync := []MessageType{TypeToolCalls, TypeAssistantRequest, TypeTransferDestinationRequest, TypeFunctionCall}
	async := []MessageType{TypeStatusUpdate, TypeEndOfCallReport, TypeHang, TypeTranscript,
		TypeSpeechUpdate, TypeTransferUpdate, TypeConversationUpdate, TypeModelOutput}

	for _, mt := range sync {
		if !mt.IsSynchronous() {
			t.Fatalf("%s should be synchronous", mt)
		}
	}
	for _, mt := range async {
		if mt.IsSynchronous() {
			t.Fatalf("%s should be fire-and-forget", mt)
		}
	}
	if MessageType("future-type").IsSynchronous() {
		t.Fatalf("unknown types must default to fire-and-forget")
	}
}
