package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePublishHeadersAndBody(t *testing.T) {
	var gotPath, gotAuth, gotDelay, gotRetries string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDelay = r.Header.Get("Upstash-Delay")
		gotRetries = r.Header.Get("Upstash-Retries")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"messageId": "m-1"})
	}))
	defer srv.Close()

	client := NewQueueClient(srv.URL, "secret-token")
	id, err := client.Publish(context.Background(), "https://api.example.com/webhooks/execute/call",
		map[string]string{"targetId": "call-9"}, 45*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "m-1", id)
	assert.Equal(t, "/https://api.example.com/webhooks/execute/call", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "2700s", gotDelay)
	assert.Equal(t, "0", gotRetries)
	assert.Equal(t, map[string]string{"targetId": "call-9"}, gotBody)
}

func TestQueuePublishNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := NewQueueClient(srv.URL, "t")
	_, err := client.Publish(context.Background(), "https://x", nil, time.Second)
	require.Error(t, err)
	assert.ErrorContains(t, err, "402")
}

func TestQueuePublishMissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewQueueClient(srv.URL, "t")
	_, err := client.Publish(context.Background(), "https://x", nil, time.Second)
	require.Error(t, err)
	assert.ErrorContains(t, err, "no message id")
}
