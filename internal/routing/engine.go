package routing

import (
	"context"
	"errors"
	"time"
)

// InboundCall is the provider-agnostic description of an inbound call
// awaiting an assistant.
type InboundCall struct {
	ProviderCallID string
	DialedNumber   string
	CallerNumber   string
	OccurredAt     time.Time
}

// Resolver decides which assistant answers an inbound call.
//
// IMPORTANT: implementations return a Decision only. No side effects
// (no DB writes, no provider calls) — the webhook boundary acts on it.
//
// Multi-tenancy: the clinic is derived from the dialed number; callers do
// not supply it.
type Resolver interface {
	ResolveInbound(ctx context.Context, call InboundCall) (Decision, error)
}

// NewNoopResolver returns a resolver that always declines.
func NewNoopResolver() Resolver { return noopResolver{} }

type noopResolver struct{}

func (noopResolver) ResolveInbound(ctx context.Context, call InboundCall) (Decision, error) {
	if call.DialedNumber == "" {
		return Decision{}, errors.New("routing: dialed number required")
	}
	return Decision{Action: ActionDecline, Reason: "no_mapping"}, nil
}
