package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Publisher enqueues a durable remote job that will POST body to
// destination after delay. Implemented by QueueClient; stubbed in tests.
type Publisher interface {
	Publish(ctx context.Context, destination string, body any, delay time.Duration) (durableJobID string, err error)
}

// QueueClient talks to the hosted durable queue.
//
// Retries are pinned to zero at the transport layer on purpose: the queue
// retrying a call or email placement would dial a real phone or send a real
// email twice, which is worse than a single missed send. Any retry has to
// be a business-layer decision behind the execution endpoint's idempotency
// guard.
type QueueClient struct {
	publishURL string
	token      string
	httpc      *http.Client
}

func NewQueueClient(publishURL, token string) *QueueClient {
	return &QueueClient{
		publishURL: publishURL,
		token:      token,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

func (c *QueueClient) Publish(ctx context.Context, destination string, body any, delay time.Duration) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.publishURL+"/"+destination, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Delay", fmt.Sprintf("%ds", int(delay.Seconds())))
	req.Header.Set("Upstash-Retries", "0")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("durable queue publish failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("durable queue returned %d: %s", resp.StatusCode, string(data))
	}

	var pr publishResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return "", fmt.Errorf("decode queue response: %w", err)
	}
	if pr.MessageID == "" {
		return "", fmt.Errorf("durable queue returned no message id")
	}
	return pr.MessageID, nil
}
