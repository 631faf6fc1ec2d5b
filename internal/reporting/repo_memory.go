package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"vetvoice-platform/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early development.
// It enforces clinic isolation on reads.

type MemoryRepo struct {
	mu sync.Mutex

	Calls  []calls.CallRecord
	Emails []calls.EmailRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, clinicID string, from, to time.Time) ([]calls.CallRecord, error) {
	if clinicID == "" {
		return nil, errors.New("clinic_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.CallRecord, 0)
	for _, c := range r.Calls {
		if c.ClinicID != clinicID {
			continue
		}
		if !c.CreatedAt.IsZero() {
			if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) GetCaseRecords(ctx context.Context, clinicID, caseID string) (*calls.CallRecord, *calls.EmailRecord, error) {
	if clinicID == "" {
		return nil, nil, errors.New("clinic_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var call *calls.CallRecord
	for i := range r.Calls {
		if r.Calls[i].ClinicID == clinicID && r.Calls[i].CaseID == caseID {
			call = &r.Calls[i]
			break
		}
	}
	var email *calls.EmailRecord
	for i := range r.Emails {
		if r.Emails[i].ClinicID == clinicID && r.Emails[i].CaseID == caseID {
			email = &r.Emails[i]
			break
		}
	}
	if call == nil && email == nil {
		return nil, nil, calls.ErrNotFound
	}
	return call, email, nil
}
