package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Tenant isolation: ClinicID is required.

type CallsSummaryRequest struct {
	ClinicID string    `json:"clinic_id"`
	Range    TimeRange `json:"range"`
}

type CallsSummary struct {
	ClinicID string `json:"clinic_id"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	QueuedCalls     int `json:"queued_calls"`

	NeedsAttention    int `json:"needs_attention"`
	CriticalAttention int `json:"critical_attention"`
	UrgentAttention   int `json:"urgent_attention"`
}

// CaseStatusView is the dashboard's single-case rollup: the paired call
// and email collapsed into one overall status.

type CaseStatusView struct {
	CaseID        string `json:"case_id"`
	OverallStatus string `json:"overall_status"`

	CallStatus  string `json:"call_status,omitempty"`
	EmailStatus string `json:"email_status,omitempty"`
}
