package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"vetvoice-platform/internal/voice"
)

// Config is the desired state for one remote assistant.
type Config struct {
	AssistantID   string
	ClinicSlug    string
	AssistantType string

	// SystemPrompt nil means "leave the remote prompt alone".
	SystemPrompt *string

	// ToolIDs nil means "leave the remote tool bindings alone"; an empty
	// non-nil slice means "unbind everything".
	ToolIDs []string
}

// Options narrows a sync run.
type Options struct {
	DryRun      bool
	ToolsOnly   bool
	PromptsOnly bool
}

const (
	ActionUpdate = "update"
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// Change is one computed difference between desired and remote state.
type Change struct {
	Field  string `json:"field"`
	Action string `json:"action"`
	Old    string `json:"old,omitempty"`
	New    string `json:"new,omitempty"`
}

// Result reports what a sync run computed and whether it was applied.
type Result struct {
	AssistantID string   `json:"assistantId"`
	Changes     []Change `json:"changes"`
	Applied     bool     `json:"applied"`
}

// ProviderAPI is the slice of the voice client the syncer needs.
type ProviderAPI interface {
	GetAssistant(ctx context.Context, id string) (voice.Assistant, error)
	UpdateAssistantModel(ctx context.Context, id string, model voice.AssistantModel) error
}

type Syncer struct {
	api ProviderAPI
	log *slog.Logger
}

func NewSyncer(api ProviderAPI, log *slog.Logger) *Syncer {
	return &Syncer{api: api, log: log}
}

// Sync fetches the assistant's current remote state, diffs it against
// desired, and (unless DryRun) applies the result with a single model
// update. Fields this run does not touch are carried over from the fetched
// state so they are never clobbered.
func (s *Syncer) Sync(ctx context.Context, desired Config, opts Options) (Result, error) {
	if desired.AssistantID == "" {
		return Result{}, fmt.Errorf("assistant id is required")
	}

	current, err := s.api.GetAssistant(ctx, desired.AssistantID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch assistant %s: %w", desired.AssistantID, err)
	}

	res := Result{AssistantID: desired.AssistantID}

	syncPrompt := !opts.ToolsOnly && desired.SystemPrompt != nil
	syncTools := !opts.PromptsOnly && desired.ToolIDs != nil

	if syncPrompt {
		if cur := current.SystemPrompt(); cur != *desired.SystemPrompt {
			res.Changes = append(res.Changes, Change{
				Field:  "systemPrompt",
				Action: ActionUpdate,
				Old:    cur,
				New:    *desired.SystemPrompt,
			})
		}
	}
	if syncTools {
		res.Changes = append(res.Changes, diffTools(currentToolIDs(current), desired.ToolIDs)...)
	}

	if len(res.Changes) == 0 {
		s.log.Info("assistant already in sync", "assistant_id", desired.AssistantID)
		return res, nil
	}
	for _, c := range res.Changes {
		s.log.Info("assistant drift", "assistant_id", desired.AssistantID,
			"field", c.Field, "action", c.Action, "new", c.New)
	}
	if opts.DryRun {
		return res, nil
	}

	model := mergeModel(current, desired, syncPrompt, syncTools)
	if err := s.api.UpdateAssistantModel(ctx, desired.AssistantID, model); err != nil {
		return res, fmt.Errorf("update assistant %s: %w", desired.AssistantID, err)
	}
	res.Applied = true
	s.log.Info("assistant updated", "assistant_id", desired.AssistantID, "changes", len(res.Changes))
	return res, nil
}

func currentToolIDs(a voice.Assistant) []string {
	if a.Model == nil {
		return nil
	}
	return a.Model.ToolIDs
}

// diffTools emits one add per tool desired but not bound, one remove per
// tool bound but not desired. Output order is deterministic for diffable
// dry-run logs.
func diffTools(current, desired []string) []Change {
	cur := make(map[string]bool, len(current))
	for _, id := range current {
		cur[id] = true
	}
	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}

	var changes []Change
	for _, id := range sortedKeys(want) {
		if !cur[id] {
			changes = append(changes, Change{Field: "toolIds", Action: ActionAdd, New: id})
		}
	}
	for _, id := range sortedKeys(cur) {
		if !want[id] {
			changes = append(changes, Change{Field: "toolIds", Action: ActionRemove, Old: id})
		}
	}
	return changes
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeModel builds the update payload from the fetched model, replacing
// only what this run syncs.
func mergeModel(current voice.Assistant, desired Config, syncPrompt, syncTools bool) voice.AssistantModel {
	var model voice.AssistantModel
	if current.Model != nil {
		model = *current.Model
	}

	if syncPrompt {
		replaced := false
		messages := make([]voice.AssistantMessage, len(model.Messages))
		copy(messages, model.Messages)
		for i, m := range messages {
			if m.Role == "system" && !replaced {
				messages[i].Content = *desired.SystemPrompt
				replaced = true
			}
		}
		if !replaced {
			messages = append([]voice.AssistantMessage{{Role: "system", Content: *desired.SystemPrompt}}, messages...)
		}
		model.Messages = messages
	}
	if syncTools {
		model.ToolIDs = append([]string(nil), desired.ToolIDs...)
	}
	return model
}
