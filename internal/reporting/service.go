package reporting

import (
	"context"
	"errors"
	"time"

	"vetvoice-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must enforce clinic filtering.
// - Reads only; reporting never mutates call or email rows.

type Repository interface {
	ListCalls(ctx context.Context, clinicID string, from, to time.Time) ([]calls.CallRecord, error)

	// GetCaseRecords returns the call and email paired to a case. Either
	// may be absent (nil).
	GetCaseRecords(ctx context.Context, clinicID, caseID string) (*calls.CallRecord, *calls.EmailRecord, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.ClinicID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.ClinicID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{ClinicID: req.ClinicID}
	for _, c := range rows {
		out.TotalCalls++
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		case calls.CallStatusInProgress, calls.CallStatusRinging:
			out.InProgressCalls++
		case calls.CallStatusQueued:
			out.QueuedCalls++
		}
		// Attention fields are only ever written when a call needed review.
		if len(c.AttentionTypes) > 0 || c.AttentionSeverity != "" {
			out.NeedsAttention++
			switch c.AttentionSeverity {
			case calls.SeverityCritical:
				out.CriticalAttention++
			case calls.SeverityUrgent:
				out.UrgentAttention++
			}
		}
	}
	return out, nil
}

// CaseStatus collapses a case's paired call and email into the single
// overall status the dashboard displays.
func (s *Service) CaseStatus(ctx context.Context, clinicID, caseID string) (CaseStatusView, error) {
	if clinicID == "" || caseID == "" {
		return CaseStatusView{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CaseStatusView{}, errors.New("reporting: repository not configured")
	}

	call, email, err := s.repo.GetCaseRecords(ctx, clinicID, caseID)
	if err != nil {
		return CaseStatusView{}, err
	}

	var in calls.StatusInput
	out := CaseStatusView{CaseID: caseID}
	if call != nil {
		in.CallStatus = &call.Status
		in.CallScheduledFor = call.ScheduledFor
		out.CallStatus = string(call.Status)
	}
	if email != nil {
		in.EmailStatus = &email.Status
		in.EmailScheduledFor = email.ScheduledFor
		out.EmailStatus = string(email.Status)
	}
	out.OverallStatus = string(calls.DeriveOverallStatus(in, s.clock()))
	return out, nil
}
