// Package webhook is the ingress for voice-provider events: payload
// parsing, message-type dispatch, and the HTTP handler.
package webhook

import (
	"encoding/json"

	"vetvoice-platform/internal/tools"
)

// MessageType is the discriminator for provider webhook messages.
type MessageType string

// Synchronous types pause the live call until the HTTP response arrives;
// their handler return value is forwarded verbatim as the response body.
const (
	TypeToolCalls                  MessageType = "tool-calls"
	TypeAssistantRequest           MessageType = "assistant-request"
	TypeTransferDestinationRequest MessageType = "transfer-destination-request"
	TypeFunctionCall               MessageType = "function-call" // legacy envelope
)

// Fire-and-forget types are acknowledged generically; handler outcomes are
// logged, never surfaced.
const (
	TypeStatusUpdate       MessageType = "status-update"
	TypeEndOfCallReport    MessageType = "end-of-call-report"
	TypeHang               MessageType = "hang"
	TypeTranscript         MessageType = "transcript"
	TypeSpeechUpdate       MessageType = "speech-update"
	TypeTransferUpdate     MessageType = "transfer-update"
	TypeConversationUpdate MessageType = "conversation-update"
	TypeModelOutput        MessageType = "model-output"
)

// IsSynchronous reports whether the call session blocks on our response.
func (t MessageType) IsSynchronous() bool {
	switch t {
	case TypeToolCalls, TypeAssistantRequest, TypeTransferDestinationRequest, TypeFunctionCall:
		return true
	default:
		return false
	}
}

// Payload is the provider webhook envelope.
type Payload struct {
	Message Message `json:"message"`
}

type Message struct {
	Type MessageType `json:"type"`
	Call *CallInfo   `json:"call,omitempty"`

	// tool-calls
	ToolCallList []tools.ToolCall `json:"toolCallList,omitempty"`

	// function-call (legacy single invocation)
	FunctionCall *tools.ToolCall `json:"functionCall,omitempty"`

	// status-update
	Status string `json:"status,omitempty"`

	// end-of-call-report
	EndedReason string    `json:"endedReason,omitempty"`
	Analysis    *Analysis `json:"analysis,omitempty"`

	// assistant-request / transfer-destination-request
	PhoneNumber *PhoneNumber `json:"phoneNumber,omitempty"`
	Customer    *Customer    `json:"customer,omitempty"`
}

type CallInfo struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Analysis carries the provider's post-call structured output; the
// attention classification lives inside StructuredData.
type Analysis struct {
	Summary        string         `json:"summary,omitempty"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
}

type Customer struct {
	Number string `json:"number,omitempty"`
}

// PhoneNumber is the clinic-side number the caller dialed.
type PhoneNumber struct {
	Number string `json:"number,omitempty"`
}

// ParsePayload decodes a raw webhook body. It returns nil — never an error
// or a panic — on an empty body, malformed JSON, or a missing message
// envelope; callers treat nil as "reject with a client error".
func ParsePayload(raw []byte) *Payload {
	if len(raw) == 0 {
		return nil
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.Message.Type == "" {
		return nil
	}
	return &p
}
