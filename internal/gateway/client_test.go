package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatcore/internal/cache"
	"chatcore/internal/core"
)

const chatResponseBody = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1677652288,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Hello there"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(Config{
		APIURL:       server.URL,
		APIKey:       "test-api-key",
		DefaultModel: "gpt-4o",
		HTTPClient:   server.Client(),
	})
	return client, server
}

func TestChat(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError bool
		errorType     core.ErrorType
	}{
		{
			name:         "successful request",
			statusCode:   http.StatusOK,
			responseBody: chatResponseBody,
		},
		{
			name:          "authentication error",
			statusCode:    http.StatusUnauthorized,
			responseBody:  `{"error": {"message": "Invalid API key"}}`,
			expectedError: true,
			errorType:     core.ErrorTypeAuthentication,
		},
		{
			name:          "rate limit error",
			statusCode:    http.StatusTooManyRequests,
			responseBody:  `{"error": {"message": "Rate limit exceeded"}}`,
			expectedError: true,
			errorType:     core.ErrorTypeRateLimit,
		},
		{
			name:          "server error",
			statusCode:    http.StatusInternalServerError,
			responseBody:  `{"error": {"message": "Internal server error"}}`,
			expectedError: true,
			errorType:     core.ErrorTypeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("Content-Type = %q, want %q", r.Header.Get("Content-Type"), "application/json")
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
					t.Errorf("Authorization = %q, want %q", got, "Bearer test-api-key")
				}
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.responseBody)
			})

			resp, err := client.Chat(context.Background(), &core.ChatRequest{
				Model:    "gpt-4o",
				Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
			})

			if tt.expectedError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var gwErr *core.GatewayError
				if !errors.As(err, &gwErr) {
					t.Fatalf("error = %T, want *core.GatewayError", err)
				}
				if gwErr.Type != tt.errorType {
					t.Errorf("error type = %q, want %q", gwErr.Type, tt.errorType)
				}
				if gwErr.StatusCode != tt.statusCode {
					t.Errorf("status = %d, want %d", gwErr.StatusCode, tt.statusCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("Chat error: %v", err)
			}
			if resp.ID != "chatcmpl-123" {
				t.Errorf("ID = %q, want %q", resp.ID, "chatcmpl-123")
			}
			if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "Hello there" {
				t.Errorf("unexpected choices: %+v", resp.Choices)
			}
			if resp.Usage.TotalTokens != 30 {
				t.Errorf("TotalTokens = %d, want 30", resp.Usage.TotalTokens)
			}
		})
	}
}

func TestChatFillsDefaultModel(t *testing.T) {
	var gotModel string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req core.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		fmt.Fprint(w, chatResponseBody)
	})

	if _, err := client.Chat(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	}); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if gotModel != "gpt-4o" {
		t.Errorf("sent model = %q, want default %q", gotModel, "gpt-4o")
	}
}

func TestChatConnectionRefused(t *testing.T) {
	client := New(Config{APIURL: "http://127.0.0.1:1", DefaultModel: "gpt-4o"})

	_, err := client.Chat(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	})
	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %T, want *core.GatewayError", err)
	}
	if gwErr.Type != core.ErrorTypeTransport {
		t.Errorf("error type = %q, want %q", gwErr.Type, core.ErrorTypeTransport)
	}
}

func TestChatUsesCompletionCache(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, chatResponseBody)
	})
	client.cache = cache.NewLocal(0, 0)

	req := &core.ChatRequest{
		Model:    "gpt-4o",
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	}
	for i := 0; i < 3; i++ {
		if _, err := client.Chat(context.Background(), req); err != nil {
			t.Fatalf("Chat #%d error: %v", i+1, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (cache should serve repeats)", calls)
	}
}

func TestChatStream(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req core.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("streaming request should set stream: true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, content := range []string{"Hel", "lo ", "world"} {
			fmt.Fprint(w, frame(content))
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n")
	})

	stream, err := client.ChatStream(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("ChatStream error: %v", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	got, err := collect(t, stream)
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("concatenated = %q, want %q", got, "Hello world")
	}
}

func TestChatStreamOpenFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error": {"message": "overloaded"}}`)
	})

	stream, err := client.ChatStream(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	})
	if stream != nil {
		t.Error("no stream should exist when the open fails")
	}
	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %T, want *core.GatewayError", err)
	}
	if gwErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", gwErr.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestCreateEmbeddings(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("path = %q, want /embeddings suffix", r.URL.Path)
		}
		var req core.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != DefaultEmbeddingModel {
			t.Errorf("model = %q, want default %q", req.Model, DefaultEmbeddingModel)
		}
		fmt.Fprint(w, `{
			"object": "list",
			"model": "text-embedding-ada-002",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`)
	})

	resp, err := client.CreateEmbeddings(context.Background(), &core.EmbeddingRequest{
		Input: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("CreateEmbeddings error: %v", err)
	}
	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) != 3 {
		t.Errorf("unexpected embeddings: %+v", resp.Data)
	}
}

func TestComplete(t *testing.T) {
	t.Run("returns first choice content", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req core.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(req.Messages) != 1 || req.Messages[0].Role != core.RoleUser {
				t.Errorf("want a single user message, got %+v", req.Messages)
			}
			fmt.Fprint(w, chatResponseBody)
		})

		got, err := client.Complete(context.Background(), "Say hello", nil)
		if err != nil {
			t.Fatalf("Complete error: %v", err)
		}
		if got != "Hello there" {
			t.Errorf("Complete = %q, want %q", got, "Hello there")
		}
	})

	t.Run("empty text when no choices", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id": "chatcmpl-0", "model": "gpt-4o", "choices": [], "usage": {}, "created": 0}`)
		})

		got, err := client.Complete(context.Background(), "Say hello", nil)
		if err != nil {
			t.Fatalf("Complete error: %v", err)
		}
		if got != "" {
			t.Errorf("Complete = %q, want empty", got)
		}
	})
}

func TestUpdateConfig(t *testing.T) {
	client := New(Config{APIURL: "http://old", APIKey: "old-key", DefaultModel: "old-model"})

	newURL := "http://new"
	newModel := "new-model"
	client.UpdateConfig(ConfigUpdate{APIURL: &newURL, DefaultModel: &newModel})

	if client.apiURL != "http://new" {
		t.Errorf("apiURL = %q, want %q", client.apiURL, "http://new")
	}
	if client.apiKey != "old-key" {
		t.Errorf("apiKey = %q, want untouched %q", client.apiKey, "old-key")
	}
	if client.DefaultModel() != "new-model" {
		t.Errorf("DefaultModel = %q, want %q", client.DefaultModel(), "new-model")
	}
}

func TestChatStreamAbandonedMidStream(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, frame("first"))
		flusher.Flush()
		// Keep the stream open; the client abandons it.
		fmt.Fprint(w, frame("second"))
	})

	stream, err := client.ChatStream(context.Background(), &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("ChatStream error: %v", err)
	}

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first Recv error: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close after partial consumption: %v", err)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Recv after abandonment = %v, want io.EOF", err)
	}
}
