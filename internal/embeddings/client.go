package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mfenderov/docsync/internal/retry"
	"golang.org/x/time/rate"
)

// socketEndpoint is the Docker Model Runner embeddings route reached over the unix socket.
const socketEndpoint = "http://localhost/exp/vDD4.40/engines/llama.cpp/v1/embeddings"

// Config holds embeddings client configuration.
// Exactly one of SocketPath or BaseURL selects the transport.
type Config struct {
	SocketPath string // Unix socket path for Docker Model Runner
	BaseURL    string // OpenAI compatible base URL (e.g. an Azure deployment URL)
	APIKey     string
	APIVersion string // Azure api-version query parameter; switches auth to the api-key header
	Model      string
	ProxyURL   string // Optional HTTP(S) proxy for outbound calls

	RequestsPerSecond float64 // <= 0 means unlimited
	Burst             int
	Timeout           time.Duration
	Retry             retry.Config
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingError is returned once every attempt to embed a text has failed.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s failed: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Client calls an OpenAI compatible embeddings API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	azure      bool
	model      string
	limiter    *rate.Limiter
	retry      retry.Config
}

// New creates a new embeddings client.
func New(config Config) (*Client, error) {
	if config.SocketPath == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("socket path or base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	transport, err := newTransport(config.SocketPath, config.ProxyURL)
	if err != nil {
		return nil, err
	}

	endpoint := socketEndpoint
	if config.SocketPath == "" {
		endpoint = strings.TrimSuffix(config.BaseURL, "/") + "/embeddings"
		if config.APIVersion != "" {
			endpoint += "?api-version=" + url.QueryEscape(config.APIVersion)
		}
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     config.APIKey,
		azure:      config.APIVersion != "",
		model:      config.Model,
		limiter:    rate.NewLimiter(limit, burst),
		retry:      config.Retry,
	}, nil
}

// newTransport dials the unix socket when one is given, otherwise TCP,
// optionally through a proxy.
func newTransport(socketPath, proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if socketPath != "" {
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		}
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	} else {
		transport.Proxy = nil
	}
	return transport, nil
}

// ModelName returns the model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// embeddingRequest is the request payload for the embeddings API.
type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embeddingResponse is the response from the embeddings API.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// MaxInputChars limits input to stay within the model context window.
const MaxInputChars = 20000

// Embed generates an embedding vector for the given text, retrying
// transient failures. Text exceeding MaxInputChars is truncated.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, MaxInputChars)

	vec, err := retry.DoValue(ctx, c.retry, func() ([]float32, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		return c.embedOnce(ctx, text)
	})
	if err != nil {
		slog.Error("failed to get embeddings", "model", c.model, "error", err)
		return nil, &EmbeddingError{Model: c.model, Err: err}
	}
	return vec, nil
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		if c.azure {
			httpReq.Header.Set("api-key", c.apiKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Permanent(err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		if !retryableStatus(resp.StatusCode) {
			return nil, retry.Permanent(apiErr)
		}
		slog.Debug("retrying embedding request", "status", resp.StatusCode)
		return nil, apiErr
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if embResp.Error != nil {
		return nil, retry.Permanent(fmt.Errorf("API error: %s", embResp.Error.Message))
	}

	if len(embResp.Data) == 0 {
		return nil, retry.Permanent(fmt.Errorf("no embedding returned"))
	}

	return embResp.Data[0].Embedding, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Dimensions returns the expected embedding dimensions for common models.
func Dimensions(model string) int {
	switch model {
	case "ai/embeddinggemma":
		return 768
	case "ai/snowflake-arctic-embed":
		return 1024
	case "ai/qwen3-embedding":
		return 2560
	case "text-embedding-ada-002", "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	default:
		return 768 // default assumption
	}
}
