package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"vetvoice-platform/internal/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	assistant voice.Assistant
	getErr    error
	updated   []voice.AssistantModel
	updateErr error
}

func (a *stubAPI) GetAssistant(_ context.Context, _ string) (voice.Assistant, error) {
	return a.assistant, a.getErr
}

func (a *stubAPI) UpdateAssistantModel(_ context.Context, _ string, model voice.AssistantModel) error {
	if a.updateErr != nil {
		return a.updateErr
	}
	a.updated = append(a.updated, model)
	return nil
}

func strPtr(s string) *string { return &s }

func remoteAssistant(prompt string, toolIDs ...string) voice.Assistant {
	return voice.Assistant{
		ID: "asst-1",
		Model: &voice.AssistantModel{
			Provider: "openai",
			Model:    "gpt-4o",
			Messages: []voice.AssistantMessage{
				{Role: "system", Content: prompt},
				{Role: "assistant", Content: "Hello!"},
			},
			ToolIDs: toolIDs,
		},
	}
}

func newTestSyncer(api ProviderAPI) *Syncer {
	return NewSyncer(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSyncNoDrift(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("You are a vet assistant.", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID:  "asst-1",
		SystemPrompt: strPtr("You are a vet assistant."),
		ToolIDs:      []string{"t1"},
	}, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Changes)
	assert.False(t, res.Applied)
	assert.Empty(t, api.updated)
}

func TestSyncPromptDrift(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("old prompt", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID:  "asst-1",
		SystemPrompt: strPtr("new prompt"),
		ToolIDs:      []string{"t1"},
	}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "systemPrompt", res.Changes[0].Field)
	assert.Equal(t, ActionUpdate, res.Changes[0].Action)
	assert.Equal(t, "old prompt", res.Changes[0].Old)
	assert.True(t, res.Applied)

	require.Len(t, api.updated, 1)
	model := api.updated[0]
	assert.Equal(t, "new prompt", model.Messages[0].Content)
	// Untouched fields survive the merge.
	assert.Equal(t, "openai", model.Provider)
	assert.Equal(t, "gpt-4o", model.Model)
	assert.Equal(t, "Hello!", model.Messages[1].Content)
	assert.Equal(t, []string{"t1"}, model.ToolIDs)
}

func TestSyncToolDiffBothDirections(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("p", "t1", "t2")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID: "asst-1",
		ToolIDs:     []string{"t2", "t3"},
	}, Options{DryRun: true})
	require.NoError(t, err)

	require.Len(t, res.Changes, 2)
	assert.Equal(t, Change{Field: "toolIds", Action: ActionAdd, New: "t3"}, res.Changes[0])
	assert.Equal(t, Change{Field: "toolIds", Action: ActionRemove, Old: "t1"}, res.Changes[1])
}

func TestSyncDryRunNeverUpdates(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("old", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID:  "asst-1",
		SystemPrompt: strPtr("new"),
	}, Options{DryRun: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Changes)
	assert.False(t, res.Applied)
	assert.Empty(t, api.updated)
}

func TestSyncToolsOnlySkipsPromptDrift(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("old", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID:  "asst-1",
		SystemPrompt: strPtr("new"),
		ToolIDs:      []string{"t1"},
	}, Options{ToolsOnly: true})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestSyncPromptsOnlySkipsToolDrift(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("p", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID: "asst-1",
		ToolIDs:     []string{"t9"},
	}, Options{PromptsOnly: true})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestSyncNilFieldsLeaveRemoteAlone(t *testing.T) {
	api := &stubAPI{assistant: remoteAssistant("p", "t1")}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{AssistantID: "asst-1"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestSyncAddsSystemMessageWhenRemoteHasNone(t *testing.T) {
	api := &stubAPI{assistant: voice.Assistant{
		ID:    "asst-1",
		Model: &voice.AssistantModel{Model: "gpt-4o"},
	}}
	s := newTestSyncer(api)

	res, err := s.Sync(context.Background(), Config{
		AssistantID:  "asst-1",
		SystemPrompt: strPtr("fresh prompt"),
	}, Options{})
	require.NoError(t, err)
	require.True(t, res.Applied)

	require.Len(t, api.updated, 1)
	require.NotEmpty(t, api.updated[0].Messages)
	assert.Equal(t, "system", api.updated[0].Messages[0].Role)
	assert.Equal(t, "fresh prompt", api.updated[0].Messages[0].Content)
}

func TestSyncFetchFailure(t *testing.T) {
	api := &stubAPI{getErr: errors.New("boom")}
	s := newTestSyncer(api)

	_, err := s.Sync(context.Background(), Config{AssistantID: "asst-1"}, Options{})
	require.Error(t, err)
}
