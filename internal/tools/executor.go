package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/metrics"
)

// ToolCall is a single invocation as delivered by the voice provider.
// Two envelopes occur in the wild: the OpenAI-style function envelope and
// a legacy flat {name, parameters} shape.
type ToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type,omitempty"`
	Function *FunctionSpec `json:"function,omitempty"`

	// Legacy flat envelope.
	Name       string         `json:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// FunctionSpec is the OpenAI-style envelope. Arguments may arrive either as
// a decoded object or as a JSON-encoded string; both are handled.
type FunctionSpec struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// SessionMeta identifies the call a batch of invocations belongs to.
type SessionMeta struct {
	CallID      string
	AssistantID string
}

// Result pairs a tool invocation with its serialized outcome. Result is a
// JSON-encoded string (double-encoded by design, matching the provider's
// calling convention).
type Result struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// Results is the synchronous webhook reply for a tool-calls message.
type Results struct {
	Results []Result `json:"results"`
}

// Executor resolves and runs tool invocations against a registry.
type Executor struct {
	registry *Registry
	metrics  *metrics.Metrics
}

func NewExecutor(registry *Registry, m *metrics.Metrics) *Executor {
	return &Executor{registry: registry, metrics: m}
}

// Execute runs every invocation in the batch concurrently and returns
// exactly one result entry per input toolCallId. A single invocation's
// failure never drops its entry or fails the batch: the error is folded
// into that entry's result string.
func (e *Executor) Execute(ctx context.Context, calls []ToolCall, meta SessionMeta) Results {
	log := logger.From(ctx)
	canonical := e.registry.Names()

	out := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc ToolCall) {
			defer wg.Done()
			out[i] = e.executeOne(ctx, tc, meta, canonical, log)
		}(i, tc)
	}
	wg.Wait()

	return Results{Results: out}
}

func (e *Executor) executeOne(ctx context.Context, tc ToolCall, meta SessionMeta, canonical []string, log *slog.Logger) Result {
	inv := decodeInvocation(tc, canonical, log)

	h, ok := e.registry.Get(inv.Name)
	if !ok {
		log.Warn("unknown tool requested", "tool", inv.RawName, "normalized", inv.Name, "call_id", meta.CallID)
		e.metrics.ToolInvocation(inv.Name, "unknown")
		return errorResult(inv.ID, fmt.Errorf("unknown tool: %s", inv.Name))
	}

	value, err := h(ctx, inv.Parameters, CallMeta{
		CallID:      meta.CallID,
		ToolCallID:  inv.ID,
		AssistantID: meta.AssistantID,
	})
	if err != nil {
		log.Error("tool execution failed", "tool", inv.Name, "tool_call_id", inv.ID, "err", err)
		e.metrics.ToolInvocation(inv.Name, "error")
		return errorResult(inv.ID, err)
	}

	e.metrics.ToolInvocation(inv.Name, "ok")
	return Result{ToolCallID: inv.ID, Result: encodeResult(value)}
}

// invocation is the normalized, envelope-free form of a tool call. It lives
// for a single webhook request/response cycle.
type invocation struct {
	ID         string
	RawName    string
	Name       string
	Parameters map[string]any
}

func decodeInvocation(tc ToolCall, canonical []string, log *slog.Logger) invocation {
	inv := invocation{ID: tc.ID}

	switch {
	case tc.Function != nil:
		inv.RawName = tc.Function.Name
		inv.Parameters = decodeArguments(tc.Function.Arguments, log)
	default:
		inv.RawName = tc.Name
		inv.Parameters = tc.Parameters
	}

	if inv.Parameters == nil {
		inv.Parameters = map[string]any{}
	}
	inv.Name = NormalizeName(inv.RawName, canonical)
	return inv
}

// decodeArguments accepts either a JSON object or a JSON-encoded string
// containing an object. Unparseable arguments degrade to empty parameters.
func decodeArguments(raw json.RawMessage, log *slog.Logger) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var params map[string]any
	if err := json.Unmarshal(raw, &params); err == nil {
		return params
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &params); err == nil {
			return params
		}
	}

	log.Warn("tool arguments not parseable, treating as empty", "arguments", string(raw))
	return nil
}

func encodeResult(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		// Marshal of a handler return value should not fail; degrade to a
		// string form rather than dropping the entry.
		b, _ = json.Marshal(fmt.Sprintf("%v", value))
	}
	return string(b)
}

func errorResult(toolCallID string, err error) Result {
	b, _ := json.Marshal(map[string]string{
		"error":   "tool_execution_failed",
		"message": err.Error(),
	})
	return Result{ToolCallID: toolCallID, Result: string(b)}
}
