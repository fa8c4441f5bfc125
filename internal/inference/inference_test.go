package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1714550400,
  "model": "gemini-2.5-flash",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "[{\"brands\":[\"atomberg\"]}]"},
    "finish_reason": "stop"
  }]
}`

func TestChatClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization %q", got)
		}

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-model" || body.Temperature != 0.1 {
			t.Errorf("unexpected model/temperature: %+v", body)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer ts.Close()

	c, err := NewChatClient(Config{
		APIKey:      "test-key",
		BaseURL:     ts.URL + "/",
		Model:       "test-model",
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewChatClient: %v", err)
	}

	out, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "atomberg") {
		t.Errorf("unexpected completion %q", out)
	}
}

func TestChatClient_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"rate_limit"}}`))
	}))
	defer ts.Close()

	c, _ := NewChatClient(Config{APIKey: "k", BaseURL: ts.URL + "/", Timeout: 5 * time.Second})
	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestChatClient_MaxRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantHits   int32
		wantErr    bool
	}{
		{"disabled", 0, 1, true},
		{"one retry", 1, 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if hits.Add(1) == 1 {
					w.Header().Set("Retry-After-Ms", "1")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
					return
				}
				_, _ = w.Write([]byte(completion))
			}))
			defer ts.Close()

			c, err := NewChatClient(Config{APIKey: "k", BaseURL: ts.URL + "/", Timeout: 5 * time.Second, MaxRetries: tc.maxRetries})
			if err != nil {
				t.Fatalf("NewChatClient: %v", err)
			}
			_, err = c.Complete(context.Background(), "hello")
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
			if got := hits.Load(); got != tc.wantHits {
				t.Errorf("expected %d requests, got %d", tc.wantHits, got)
			}
		})
	}
}

func TestNewChatClient_RequiresKey(t *testing.T) {
	if _, err := NewChatClient(Config{}); err == nil {
		t.Errorf("expected error without api key")
	}
}
