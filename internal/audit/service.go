package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ClinicID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogScheduled records a call or email being scheduled through the API.
func (s *Service) LogScheduled(ctx context.Context, typ EventType, clinicID, actorUserID, actorRole, ip, targetID, jobID string) error {
	e := Event{
		ClinicID:    clinicID,
		Type:        typ,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		JobID:       jobID,
		Message:     "execution scheduled",
	}
	switch typ {
	case EventTypeCallScheduled:
		e.CallID = targetID
	case EventTypeEmailScheduled:
		e.EmailID = targetID
	}
	return s.Append(ctx, e)
}

// LogImmediateExecution records a bypass of the durable queue.
func (s *Service) LogImmediateExecution(ctx context.Context, clinicID, actorUserID, actorRole, ip, targetID string) error {
	return s.Append(ctx, Event{
		ClinicID:    clinicID,
		Type:        EventTypeImmediateExecution,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CallID:      targetID,
		Message:     "immediate execution requested",
	})
}

// LogAssistantSync records an applied remote assistant update.
func (s *Service) LogAssistantSync(ctx context.Context, clinicID, assistantID, metadata string) error {
	return s.Append(ctx, Event{
		ClinicID:    clinicID,
		Type:        EventTypeAssistantSync,
		AssistantID: assistantID,
		Message:     "assistant configuration updated",
		Metadata:    metadata,
	})
}
