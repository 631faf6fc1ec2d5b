package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the voice-call provider's REST API.
//
// Rules:
// - No provider HTTP calls outside this adapter.
// - Outbound call placement always goes through the throttle; reads
//   (assistant fetch) do not, they are rare operational traffic.
type Client struct {
	baseURL  string
	apiKey   string
	httpc    *http.Client
	throttle *Throttle
}

func NewClient(baseURL, apiKey string, throttle *Throttle) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		throttle: throttle,
	}
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice provider returned %d: %s", e.Status, e.Body)
}

// CallRequest places an outbound call driven by an assistant.
type CallRequest struct {
	AssistantID    string            `json:"assistantId"`
	CustomerNumber string            `json:"customerNumber"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type CallResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PlaceCall dispatches an outbound call through the throttle.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (CallResponse, error) {
	var out CallResponse
	err := c.throttle.Do(ctx, func() error {
		body := map[string]any{
			"assistantId": req.AssistantID,
			"customer":    map[string]string{"number": req.CustomerNumber},
		}
		if len(req.Metadata) > 0 {
			body["metadata"] = req.Metadata
		}
		return c.do(ctx, http.MethodPost, "/call", body, &out)
	})
	return out, err
}

// Assistant is the provider's remote assistant configuration. Only the
// fields this service syncs are modeled.
type Assistant struct {
	ID    string          `json:"id"`
	Model *AssistantModel `json:"model,omitempty"`
}

type AssistantModel struct {
	Provider string             `json:"provider,omitempty"`
	Model    string             `json:"model,omitempty"`
	Messages []AssistantMessage `json:"messages,omitempty"`
	ToolIDs  []string           `json:"toolIds,omitempty"`
}

type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemPrompt returns the content of the first system-role message.
func (a Assistant) SystemPrompt() string {
	if a.Model == nil {
		return ""
	}
	for _, m := range a.Model.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func (c *Client) GetAssistant(ctx context.Context, id string) (Assistant, error) {
	var out Assistant
	err := c.do(ctx, http.MethodGet, "/assistant/"+id, nil, &out)
	return out, err
}

// UpdateAssistantModel patches only the model field of an assistant. The
// caller is expected to pass a model derived from a fresh GetAssistant so
// fields untouched by this sync run survive.
func (c *Client) UpdateAssistantModel(ctx context.Context, id string, model AssistantModel) error {
	return c.do(ctx, http.MethodPatch, "/assistant/"+id, map[string]any{"model": model}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("voice provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}
