package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"no transport", Config{Model: "m"}, true},
		{"empty model", Config{SocketPath: "/tmp/test.sock"}, true},
		{"socket", Config{SocketPath: "/tmp/test.sock", Model: "ai/gemma3"}, false},
		{"base url", Config{BaseURL: "http://localhost:1234/v1", Model: "m"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompleteWithMaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens != 100 {
			t.Errorf("MaxTokens = %d, want 100", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A short summary.  "}}]}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/v1", APIKey: "key", Model: "m"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := client.CompleteWithMaxTokens(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("CompleteWithMaxTokens() error = %v", err)
	}
	if got != "A short summary." {
		t.Errorf("got %q", got)
	}
}

func TestComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, Model: "m"})

	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Complete() expected error for server error response")
	}
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, Model: "m"})

	if _, err := client.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Complete() expected error for empty choices")
	}
}
