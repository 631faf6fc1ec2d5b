// Package tools executes server-side tool invocations requested by the
// voice agent mid-call.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CallMeta carries call context into a tool handler.
type CallMeta struct {
	CallID      string
	ToolCallID  string
	AssistantID string
}

// Handler is a single server-side tool. The return value is serialized to
// JSON and spoken or acted on by the voice agent.
type Handler func(ctx context.Context, params map[string]any, meta CallMeta) (any, error)

// Registry holds the tool set for this process. It is constructed once at
// startup and injected into the dispatcher; after startup it is read-only.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool under its canonical name.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if h == nil {
		return fmt.Errorf("tool %q: handler is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister panics on registration failure; intended for process startup.
func (r *Registry) MustRegister(name string, h Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by canonical name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the sorted canonical tool names. This list doubles as the
// suffix table for tenant-prefix normalization.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
