package webhook

import (
	"context"
	"fmt"

	"vetvoice-platform/internal/calls"
	"vetvoice-platform/internal/tools"
	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/metrics"
)

// CallEvents consumes lifecycle events; implemented by calls.Updater.
type CallEvents interface {
	HandleStatusUpdate(ctx context.Context, providerCallID, providerStatus string) error
	HandleEndOfCallReport(ctx context.Context, rep calls.EndOfCallReport) error
}

// AssistantRequest is the inbound-call context handed to the resolver.
type AssistantRequest struct {
	Call         *CallInfo
	DialedNumber string
	CallerNumber string
}

// AssistantResolver picks the assistant to answer an inbound call
// (assistant-request messages). Optional.
type AssistantResolver func(ctx context.Context, req AssistantRequest) (assistantID string, err error)

// TransferResolver picks a transfer destination for
// transfer-destination-request messages. Optional.
type TransferResolver func(ctx context.Context, call *CallInfo, customer *Customer) (destinationNumber string, err error)

// Ack is the generic response for fire-and-forget and unknown types.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Dispatcher routes parsed webhook payloads to exactly one handler.
type Dispatcher struct {
	tools     *tools.Executor
	calls     CallEvents
	assistant AssistantResolver
	transfer  TransferResolver
	metrics   *metrics.Metrics
}

func NewDispatcher(executor *tools.Executor, callEvents CallEvents, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{tools: executor, calls: callEvents, metrics: m}
}

// WithAssistantResolver installs the inbound-call assistant resolver.
func (d *Dispatcher) WithAssistantResolver(r AssistantResolver) *Dispatcher {
	d.assistant = r
	return d
}

// WithTransferResolver installs the transfer-destination resolver.
func (d *Dispatcher) WithTransferResolver(r TransferResolver) *Dispatcher {
	d.transfer = r
	return d
}

// Dispatch routes one payload and returns the response body to hand back to
// the provider.
//
// Response contract: synchronous types return the handler's value
// unmodified, and a handler error fails the request (the call session is
// waiting on a real answer). Fire-and-forget types always return a generic
// Ack; their handler errors are logged only, because a non-2xx would make
// the provider retry an event we already consumed. Unknown types are
// acknowledged successfully by the same forward-compatibility policy.
func (d *Dispatcher) Dispatch(ctx context.Context, p *Payload) (any, error) {
	msg := p.Message
	log := logger.From(ctx)

	switch msg.Type {
	case TypeToolCalls:
		d.metrics.WebhookEvent(string(msg.Type), "sync")
		return d.tools.Execute(ctx, msg.ToolCallList, sessionMeta(msg.Call)), nil

	case TypeFunctionCall:
		d.metrics.WebhookEvent(string(msg.Type), "sync")
		if msg.FunctionCall == nil {
			return nil, fmt.Errorf("function-call message missing functionCall")
		}
		return d.tools.Execute(ctx, []tools.ToolCall{*msg.FunctionCall}, sessionMeta(msg.Call)), nil

	case TypeAssistantRequest:
		d.metrics.WebhookEvent(string(msg.Type), "sync")
		if d.assistant == nil {
			return map[string]string{"error": "no assistant available for this number"}, nil
		}
		req := AssistantRequest{Call: msg.Call}
		if msg.PhoneNumber != nil {
			req.DialedNumber = msg.PhoneNumber.Number
		}
		if msg.Customer != nil {
			req.CallerNumber = msg.Customer.Number
		}
		id, err := d.assistant(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("resolve assistant: %w", err)
		}
		return map[string]string{"assistantId": id}, nil

	case TypeTransferDestinationRequest:
		d.metrics.WebhookEvent(string(msg.Type), "sync")
		if d.transfer == nil {
			return map[string]string{"error": "no transfer destination configured"}, nil
		}
		number, err := d.transfer(ctx, msg.Call, msg.Customer)
		if err != nil {
			return nil, fmt.Errorf("resolve transfer destination: %w", err)
		}
		return map[string]any{
			"destination": map[string]string{"type": "number", "number": number},
		}, nil

	case TypeStatusUpdate:
		d.handleAsync(ctx, msg.Type, func() error {
			if msg.Call == nil {
				return fmt.Errorf("status-update missing call")
			}
			return d.calls.HandleStatusUpdate(ctx, msg.Call.ID, msg.Status)
		})
		return Ack{Success: true, Message: "status update processed"}, nil

	case TypeEndOfCallReport:
		d.handleAsync(ctx, msg.Type, func() error {
			if msg.Call == nil {
				return fmt.Errorf("end-of-call-report missing call")
			}
			rep := calls.EndOfCallReport{
				ProviderCallID: msg.Call.ID,
				EndedReason:    msg.EndedReason,
			}
			if msg.Analysis != nil {
				rep.Analysis = msg.Analysis.StructuredData
			}
			return d.calls.HandleEndOfCallReport(ctx, rep)
		})
		return Ack{Success: true, Message: "end of call report processed"}, nil

	case TypeHang, TypeTranscript, TypeSpeechUpdate, TypeTransferUpdate,
		TypeConversationUpdate, TypeModelOutput:
		// Consumed for delivery health only; no state derives from these.
		d.metrics.WebhookEvent(string(msg.Type), "async")
		return Ack{Success: true, Message: fmt.Sprintf("%s acknowledged", msg.Type)}, nil

	default:
		log.Info("unhandled webhook message type", "type", msg.Type)
		d.metrics.WebhookEvent(string(msg.Type), "unknown")
		return Ack{Success: true, Message: fmt.Sprintf("Unhandled message type: %s", msg.Type)}, nil
	}
}

// handleAsync runs a fire-and-forget handler inside its own error boundary.
func (d *Dispatcher) handleAsync(ctx context.Context, t MessageType, fn func() error) {
	if err := fn(); err != nil {
		logger.From(ctx).Error("webhook handler failed", "type", t, "err", err)
		d.metrics.WebhookEvent(string(t), "error")
		return
	}
	d.metrics.WebhookEvent(string(t), "async")
}

func sessionMeta(call *CallInfo) tools.SessionMeta {
	if call == nil {
		return tools.SessionMeta{}
	}
	return tools.SessionMeta{CallID: call.ID, AssistantID: call.AssistantID}
}
