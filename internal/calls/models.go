// Package calls owns call-lifecycle state: status transitions derived from
// provider webhook events, attention classification, and the read-side
// aggregate status used by case views.
package calls

import "time"

// CallRecord is a discharge/follow-up call placed for a clinic client.
//
// Lifecycle invariant: transitions move monotonically forward through
// queued -> ringing -> in_progress -> completed, except failed/canceled,
// which are terminal from any state.
type CallRecord struct {
	ID             string `json:"call_id" db:"call_id"`
	ClinicID       string `json:"clinic_id" db:"clinic_id"`
	CaseID         string `json:"case_id,omitempty" db:"case_id"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	CustomerNumber string `json:"customer_number" db:"customer_number"`
	AssistantID    string `json:"assistant_id" db:"assistant_id"`

	Status      CallStatus `json:"status" db:"status"`
	EndedReason string     `json:"ended_reason,omitempty" db:"ended_reason"`

	AttentionTypes    []string `json:"attention_types,omitempty" db:"attention_types"`
	AttentionSeverity Severity `json:"attention_severity,omitempty" db:"attention_severity"`
	AttentionSummary  string   `json:"attention_summary,omitempty" db:"attention_summary"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusCanceled   CallStatus = "canceled"
)

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// EmailRecord is the email half of a discharge communication. Delivery is
// handled by an external provider; only scheduling state lives here.
type EmailRecord struct {
	ID       string `json:"email_id" db:"email_id"`
	ClinicID string `json:"clinic_id" db:"clinic_id"`
	CaseID   string `json:"case_id,omitempty" db:"case_id"`

	Status EmailStatus `json:"status" db:"status"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type EmailStatus string

const (
	EmailStatusPending  EmailStatus = "pending"
	EmailStatusQueued   EmailStatus = "queued"
	EmailStatusSent     EmailStatus = "sent"
	EmailStatusFailed   EmailStatus = "failed"
	EmailStatusCanceled EmailStatus = "canceled"
)

// Severity classifies how urgently staff should review a call.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityUrgent   Severity = "urgent"
	SeverityRoutine  Severity = "routine"
)

// AttentionClassification is the derived judgment of whether a call needs
// human review. It is folded into the CallRecord, never persisted alone.
type AttentionClassification struct {
	NeedsAttention bool
	Types          []string
	Severity       Severity
	Summary        string
}
