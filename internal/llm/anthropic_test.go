package llm

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

func TestAnthropicChat_ToolRoundTrip(t *testing.T) {
	var got anthRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"content":[
			{"type":"text","text":"Recording that."},
			{"type":"tool_use","id":"tu_1","name":"track_response","input":{"field":"emotion","value":"8"}}
		]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key-123", "", "")
	c.endpoint = srv.URL

	resp, err := c.Chat(context.Background(), SystemPrompt, []Message{
		{Role: "user", Content: "emotion was an 8 today"},
	}, AgentTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if headers.Get("X-Api-Key") != "key-123" {
		t.Errorf("expected api key header, got %q", headers.Get("X-Api-Key"))
	}
	if headers.Get("Authorization") != "" {
		t.Errorf("expected no bearer token, got %q", headers.Get("Authorization"))
	}
	if len(got.Tools) != len(AgentTools) {
		t.Errorf("expected %d tools sent, got %d", len(AgentTools), len(got.Tools))
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("unexpected messages sent: %+v", got.Messages)
	}

	if resp.Content != "Recording that." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "tu_1" || tc.Name != "track_response" || tc.Params["value"] != "8" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
}

func TestAnthropicChat_OAuthAndErrors(t *testing.T) {
	var auth, beta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		beta = r.Header.Get("anthropic-beta")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("", "tok-9", "")
	c.endpoint = srv.URL
	c.backoff = time.Millisecond

	_, err := c.Chat(context.Background(), "sys", []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if !strings.Contains(err.Error(), "rate_limit_error: slow down") {
		t.Errorf("error should carry the API message, got %v", err)
	}
	if auth != "Bearer tok-9" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if beta == "" {
		t.Error("expected oauth beta header")
	}
}

func TestAnthropicChat_RetriesOverload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(529)
			w.Write([]byte(`{"error":{"type":"overloaded_error","message":"busy"}}`))
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "", "")
	c.endpoint = srv.URL
	c.backoff = time.Millisecond

	resp, err := c.Chat(context.Background(), "sys", []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 2 {
		t.Errorf("content=%q calls=%d", resp.Content, calls.Load())
	}
}

func TestAnthropicChat_NoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "", "")
	c.endpoint = srv.URL
	c.backoff = time.Millisecond

	if _, err := c.Chat(context.Background(), "sys", []Message{UserMessage("hi")}, nil); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("400 should not be retried, got %d calls", calls.Load())
	}
}
