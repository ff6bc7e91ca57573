// Package gateway implements the client for the external LLM gateway:
// synchronous chat completions, embeddings, and streaming completions over
// line-framed SSE. The client is stateless per request; its only mutable
// state is the endpoint/credential/default-model configuration.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"chatcore/internal/cache"
	"chatcore/internal/core"
	"chatcore/internal/httpclient"
	"chatcore/internal/observability"
)

const (
	// DefaultEmbeddingModel is used when an embeddings request names no model.
	DefaultEmbeddingModel = "text-embedding-ada-002"

	chatEndpoint       = "/chat/completions"
	embeddingsEndpoint = "/embeddings"
)

// Config holds construction-time configuration for the client.
type Config struct {
	// APIURL is the gateway base URL (e.g. "https://gateway.example.com/v1").
	APIURL string

	// APIKey is attached as a bearer credential when non-empty.
	APIKey string

	// DefaultModel fills in requests that name no model.
	DefaultModel string

	// HTTPClient overrides the pooled default client (mainly for tests).
	HTTPClient *http.Client

	// Cache, when non-nil, serves repeated non-streaming chat requests
	// without a round trip.
	Cache cache.Cache

	// Logger receives skipped-frame and import diagnostics. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics, when non-nil, receives request/stream counters.
	Metrics *observability.Metrics
}

// ConfigUpdate is a partial configuration change. Nil fields are left untouched.
type ConfigUpdate struct {
	APIURL       *string
	APIKey       *string
	DefaultModel *string
}

// Client talks to the LLM gateway. Safe for concurrent use; UpdateConfig
// may race with in-flight requests only in the sense that each request
// snapshots the configuration once, at send time.
type Client struct {
	mu           sync.RWMutex
	apiURL       string
	apiKey       string
	defaultModel string

	httpClient *http.Client
	cache      cache.Cache
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a gateway client from the configuration.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL:       cfg.APIURL,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		httpClient:   httpClient,
		cache:        cfg.Cache,
		logger:       logger,
		metrics:      cfg.Metrics,
	}
}

// UpdateConfig replaces the endpoint/credential/default-model fields that
// are present in the update. The new endpoint is not probed for reachability.
func (c *Client) UpdateConfig(u ConfigUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.APIURL != nil {
		c.apiURL = *u.APIURL
	}
	if u.APIKey != nil {
		c.apiKey = *u.APIKey
	}
	if u.DefaultModel != nil {
		c.defaultModel = *u.DefaultModel
	}
}

// DefaultModel returns the currently configured default model.
func (c *Client) DefaultModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultModel
}

// Chat sends a non-streaming chat completion request. A request without a
// model uses the configured default. Upstream failures surface as
// *core.GatewayError; there are no internal retries.
func (c *Client) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	sendReq := c.withDefaults(req)
	sendReq.Stream = false

	var key string
	if c.cache != nil {
		var ok bool
		if key, ok = cache.Key(sendReq); ok {
			if resp, hit := c.cache.Get(key); hit {
				c.metrics.CacheHit()
				c.metrics.ObserveRequest("chat", observability.OutcomeSuccess)
				return resp, nil
			}
			c.metrics.CacheMiss()
		}
	}

	var resp core.ChatResponse
	if err := c.post(ctx, chatEndpoint, sendReq, &resp); err != nil {
		c.metrics.ObserveRequest("chat", observability.OutcomeError)
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = sendReq.Model
	}

	if c.cache != nil && key != "" {
		c.cache.Set(key, &resp)
	}
	c.metrics.ObserveRequest("chat", observability.OutcomeSuccess)
	return &resp, nil
}

// ChatStream opens a streaming chat completion request and returns a
// pull-based stream of text fragments. If the transport open fails, the
// error is returned immediately and no stream exists. The caller must
// drain or Close the stream; Close is safe on every exit path.
func (c *Client) ChatStream(ctx context.Context, req *core.ChatRequest) (*Stream, error) {
	sendReq := c.withDefaults(req).WithStreaming()

	body, err := c.open(ctx, chatEndpoint, sendReq)
	if err != nil {
		c.metrics.ObserveRequest("chat_stream", observability.OutcomeError)
		return nil, err
	}
	c.metrics.ObserveRequest("chat_stream", observability.OutcomeSuccess)
	return newStream(body, c.logger, c.metrics), nil
}

// CreateEmbeddings sends an embeddings request. A request without a model
// uses DefaultEmbeddingModel.
func (c *Client) CreateEmbeddings(ctx context.Context, req *core.EmbeddingRequest) (*core.EmbeddingResponse, error) {
	sendReq := *req
	if sendReq.Model == "" {
		sendReq.Model = DefaultEmbeddingModel
	}

	var resp core.EmbeddingResponse
	if err := c.post(ctx, embeddingsEndpoint, &sendReq, &resp); err != nil {
		c.metrics.ObserveRequest("embeddings", observability.OutcomeError)
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = sendReq.Model
	}
	c.metrics.ObserveRequest("embeddings", observability.OutcomeSuccess)
	return &resp, nil
}

// CompleteOptions tunes a Complete call. The zero value uses the client defaults.
type CompleteOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Complete is a convenience wrapper that sends the prompt as a single user
// message and returns the first choice's content, or "" if there is none.
func (c *Client) Complete(ctx context.Context, prompt string, opts *CompleteOptions) (string, error) {
	req := &core.ChatRequest{
		Messages: []core.Message{{Role: core.RoleUser, Content: prompt}},
	}
	if opts != nil {
		req.Model = opts.Model
		req.Temperature = opts.Temperature
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// withDefaults returns a copy of the request with the default model filled in.
func (c *Client) withDefaults(req *core.ChatRequest) *core.ChatRequest {
	cp := *req
	if cp.Model == "" {
		cp.Model = c.DefaultModel()
	}
	return &cp
}

// post sends a JSON request and decodes a JSON response.
func (c *Client) post(ctx context.Context, endpoint string, body, result any) error {
	resp, err := c.send(ctx, endpoint, body, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewTransportError("failed to read response: "+err.Error(), err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return core.NewUpstreamError(http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
	}
	return nil
}

// open sends a streaming request and hands back the raw body reader.
func (c *Client) open(ctx context.Context, endpoint string, body any) (io.ReadCloser, error) {
	resp, err := c.send(ctx, endpoint, body, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// send performs the POST and maps non-success statuses to GatewayError.
func (c *Client) send(ctx context.Context, endpoint string, body any, stream bool) (*http.Response, error) {
	c.mu.RLock()
	apiURL, apiKey := c.apiURL, c.apiKey
	c.mu.RUnlock()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, core.NewTransportError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, core.NewTransportError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()
		return nil, core.ParseGatewayError(resp.StatusCode, respBody, nil)
	}
	return resp, nil
}
