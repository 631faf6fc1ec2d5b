package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"vetvoice-platform/internal/calls"
	"vetvoice-platform/internal/tools"
)

type stubCallEvents struct {
	statusCalls []string
	reports     []calls.EndOfCallReport
	err         error
}

func (s *stubCallEvents) HandleStatusUpdate(ctx context.Context, providerCallID, providerStatus string) error {
	s.statusCalls = append(s.statusCalls, providerStatus)
	return s.err
}

func (s *stubCallEvents) HandleEndOfCallReport(ctx context.Context, rep calls.EndOfCallReport) error {
	s.reports = append(s.reports, rep)
	return s.err
}

func newTestDispatcher(t *testing.T, events CallEvents) *Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister("getCaseDetails", func(ctx context.Context, params map[string]any, meta tools.CallMeta) (any, error) {
		return map[string]string{"status": "recovering"}, nil
	})
	return NewDispatcher(tools.NewExecutor(reg, nil), events, nil)
}

func TestDispatch_ToolCallsReturnsExecutorResultUnmodified(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type: TypeToolCalls,
		Call: &CallInfo{ID: "prov-1"},
		ToolCallList: []tools.ToolCall{
			{ID: "tc-1", Function: &tools.FunctionSpec{Name: "getCaseDetails"}},
		},
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	results, ok := resp.(tools.Results)
	if !ok {
		t.Fatalf("expected tools.Results forwarded verbatim, got %T", resp)
	}
	if len(results.Results) != 1 || results.Results[0].ToolCallID != "tc-1" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestDispatch_LegacyFunctionCallWrapsSingleInvocation(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type:         TypeFunctionCall,
		FunctionCall: &tools.ToolCall{ID: "tc-9", Name: "getCaseDetails"},
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	results := resp.(tools.Results)
	if len(results.Results) != 1 || results.Results[0].ToolCallID != "tc-9" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestDispatch_StatusUpdateRoutesToCallEvents(t *testing.T) {
	events := &stubCallEvents{}
	d := newTestDispatcher(t, events)

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type:   TypeStatusUpdate,
		Call:   &CallInfo{ID: "prov-1"},
		Status: "in-progress",
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ack := resp.(Ack); !ack.Success {
		t.Fatalf("expected success ack, got %+v", ack)
	}
	if len(events.statusCalls) != 1 || events.statusCalls[0] != "in-progress" {
		t.Fatalf("status not routed: %v", events.statusCalls)
	}
}

func TestDispatch_AsyncHandlerErrorStillAcks(t *testing.T) {
	events := &stubCallEvents{err: errors.New("db down")}
	d := newTestDispatcher(t, events)

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type:   TypeStatusUpdate,
		Call:   &CallInfo{ID: "prov-1"},
		Status: "ringing",
	}})
	if err != nil {
		t.Fatalf("fire-and-forget must never surface handler errors, got %v", err)
	}
	if ack := resp.(Ack); !ack.Success {
		t.Fatalf("expected success ack despite handler failure, got %+v", ack)
	}
}

func TestDispatch_EndOfCallReportCarriesAnalysis(t *testing.T) {
	events := &stubCallEvents{}
	d := newTestDispatcher(t, events)

	_, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type:        TypeEndOfCallReport,
		Call:        &CallInfo{ID: "prov-1"},
		EndedReason: "customer-ended-call",
		Analysis: &Analysis{StructuredData: map[string]any{
			"needs_attention": true,
		}},
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events.reports) != 1 {
		t.Fatalf("expected one report, got %d", len(events.reports))
	}
	rep := events.reports[0]
	if rep.ProviderCallID != "prov-1" || rep.EndedReason != "customer-ended-call" {
		t.Fatalf("report fields lost: %+v", rep)
	}
	if rep.Analysis["needs_attention"] != true {
		t.Fatalf("structured data lost: %+v", rep.Analysis)
	}
}

func TestDispatch_UnknownTypeAcknowledged(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type: MessageType("voicemail-detected"),
	}})
	if err != nil {
		t.Fatalf("unknown type must never fail, got %v", err)
	}
	ack := resp.(Ack)
	if !ack.Success {
		t.Fatalf("expected success ack for unknown type")
	}
	if ack.Message != "Unhandled message type: voicemail-detected" {
		t.Fatalf("unexpected ack message %q", ack.Message)
	}
}

func TestDispatch_AssistantRequestUsesResolver(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{}).
		WithAssistantResolver(func(ctx context.Context, req AssistantRequest) (string, error) {
			if req.DialedNumber != "+15550142" {
				t.Fatalf("expected dialed number passed through, got %q", req.DialedNumber)
			}
			return "asst-42", nil
		})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type:        TypeAssistantRequest,
		Call:        &CallInfo{ID: "prov-1", Type: "inboundPhoneCall"},
		PhoneNumber: &PhoneNumber{Number: "+15550142"},
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	body, _ := json.Marshal(resp)
	if string(body) != `{"assistantId":"asst-42"}` {
		t.Fatalf("unexpected response %s", body)
	}
}

func TestDispatch_AssistantRequestWithoutResolver(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{Type: TypeAssistantRequest}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	m := resp.(map[string]string)
	if m["error"] == "" {
		t.Fatalf("expected error body when no resolver configured, got %v", m)
	}
}

func TestDispatch_TransferDestinationRequest(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{}).
		WithTransferResolver(func(ctx context.Context, call *CallInfo, customer *Customer) (string, error) {
			return "+15550199", nil
		})

	resp, err := d.Dispatch(context.Background(), &Payload{Message: Message{
		Type: TypeTransferDestinationRequest,
		Call: &CallInfo{ID: "prov-1"},
	}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	body, _ := json.Marshal(resp)
	want := `{"destination":{"number":"+15550199","type":"number"}}`
	if string(body) != want {
		t.Fatalf("got %s, want %s", body, want)
	}
}

func TestDispatch_SyncResolverErrorSurfaces(t *testing.T) {
	d := newTestDispatcher(t, &stubCallEvents{}).
		WithAssistantResolver(func(ctx context.Context, req AssistantRequest) (string, error) {
			return "", errors.New("no clinic for number")
		})

	_, err := d.Dispatch(context.Background(), &Payload{Message: Message{Type: TypeAssistantRequest}})
	if err == nil {
		t.Fatalf("synchronous handler errors must surface to the caller")
	}
}
