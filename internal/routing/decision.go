package routing

// Decision is the output of assistant resolution for an inbound call.
//
// It must contain *only* information required at the webhook boundary to
// answer the provider's assistant-request.
//
// No provider identity and no provider-specific fields belong here.

type Decision struct {
	ClinicID    string `json:"clinic_id"`
	AssistantID string `json:"assistant_id,omitempty"`

	Action Action `json:"action"`

	// Reason is optional and intended for internal logs/metrics.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	ActionAssign  Action = "assign"
	ActionDecline Action = "decline"
)
