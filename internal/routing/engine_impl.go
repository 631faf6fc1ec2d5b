package routing

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RoutingEngine evaluates assistant selection for inbound calls.
//
// Priority:
//  1) Admin override (silent, expiry-based)
//  2) Number mapping / clinic rules (business hours, suspended clinics)
//  3) Weighted assistant selection
//
// Return a routing decision only. No side effects (no DB writes, no provider calls).
//
// Notes:
// - An override forces a specific assistant even when clinic rules would decline.
// - Mapping rules can decline (unknown number, after hours with no fallback).
// - Weighted selection picks among eligible assistants (prompt A/B runs).

type RoutingEngine struct {
	Overrides *AdminOverrideEngine

	Mappings MappingService

	RNG *rand.Rand
	Now func() time.Time
}

// MappingService is the minimal abstraction needed to evaluate a dialed
// number. A real implementation lives over the clinics and number-mapping
// tables.

type MappingService interface {
	EvaluateInbound(ctx context.Context, call InboundCall, at time.Time) (MappingEvaluation, error)
}

type MappingEvaluation struct {
	ClinicID string

	Allowed bool
	Reason  string

	Assistants []WeightedAssistant
}

type WeightedAssistant struct {
	AssistantID string

	// Weight must be > 0.
	Weight int
}

func NewRoutingEngine(mappings MappingService, rng *rand.Rand) *RoutingEngine {
	return &RoutingEngine{Mappings: mappings, RNG: rng, Now: time.Now}
}

func (e *RoutingEngine) ResolveInbound(ctx context.Context, call InboundCall) (Decision, error) {
	if call.DialedNumber == "" {
		return Decision{}, errors.New("routing: dialed number required")
	}
	now := call.OccurredAt
	if now.IsZero() {
		now = e.Now()
	}

	// 1) Silent, expiry-based overrides (no caller visibility)
	if e.Overrides != nil {
		d, applied, err := e.Overrides.Decide(ctx, call)
		if err != nil {
			return Decision{}, err
		}
		if applied {
			return d, nil
		}
	}

	// 2) Number mapping / clinic rules
	if e.Mappings == nil {
		return Decision{}, errors.New("routing: mapping service not configured")
	}
	ev, err := e.Mappings.EvaluateInbound(ctx, call, now)
	if err != nil {
		return Decision{}, err
	}
	if !ev.Allowed {
		reason := ev.Reason
		if reason == "" {
			reason = "mapping_blocked"
		}
		return Decision{ClinicID: ev.ClinicID, Action: ActionDecline, Reason: reason}, nil
	}

	// 3) Weighted assistant selection
	if id, ok := e.pickAssistant(ev.Assistants); ok {
		return Decision{ClinicID: ev.ClinicID, AssistantID: id, Action: ActionAssign, Reason: "selected"}, nil
	}
	return Decision{ClinicID: ev.ClinicID, Action: ActionDecline, Reason: "no_eligible_assistant"}, nil
}

func (e *RoutingEngine) pickAssistant(candidates []WeightedAssistant) (string, bool) {
	var total int
	for _, a := range candidates {
		if a.Weight <= 0 {
			continue
		}
		total += a.Weight
	}
	if total <= 0 {
		return "", false
	}

	rng := e.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r := rng.Intn(total) // 0..total-1

	var acc int
	for _, a := range candidates {
		if a.Weight <= 0 {
			continue
		}
		acc += a.Weight
		if r < acc {
			return a.AssistantID, true
		}
	}
	return "", false
}
