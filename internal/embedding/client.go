package embedding

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/cache"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// DefaultAPIVersion is used when the config does not pin one.
const DefaultAPIVersion = "2023-05-15"

// Client calls the embedding service over HTTP. Requests are rate limited, and
// results are kept in the cache layer keyed by service checksum + text digest
// so identical chunks are never embedded twice across runs.
type Client struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	dimensions int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAPIVersion pins the service API version.
func WithAPIVersion(v string) ClientOption {
	return func(cl *Client) { cl.apiVersion = v }
}

// WithRateLimit caps requests per second to the service.
func WithRateLimit(rps float64) ClientOption {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithCache stores computed embeddings in c for cross-run reuse.
func WithCache(c cache.Cache, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// NewClient creates an embedding-service client. endpoint, apiKey, and
// deployment are required; dimensions must match the deployed model.
func NewClient(endpoint, apiKey, deployment string, dimensions int, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("embedding service endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedding service key is required")
	}
	if deployment == "" {
		return nil, fmt.Errorf("embedding deployment is required")
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: DefaultAPIVersion,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns the embedding vector for text, from cache when available.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if c.cache != nil {
		if cached := c.cache.Get(ctx, key, nil); cached != nil {
			var vector []float32
			if err := json.Unmarshal(cached, &vector); err == nil && len(vector) == c.dimensions {
				return vector, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vector, err := c.requestEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if payload, err := json.Marshal(vector); err == nil {
			c.cache.Set(ctx, key, payload, c.cacheTTL)
		}
	}
	return vector, nil
}

func (c *Client) requestEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}
	u := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	var parsed embeddingResponse
	if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode embedding response: %w", jsonErr)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = string(raw)
		}
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	vector := parsed.Data[0].Embedding
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), c.dimensions)
	}
	return vector, nil
}

// Dimensions returns the configured vector length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Checksum hashes the service identity: endpoint, deployment, and API version.
func (c *Client) Checksum() string {
	return models.ServiceChecksum(c.endpoint, c.deployment, c.apiVersion)
}

func (c *Client) cacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return "emb:" + c.Checksum() + ":" + hex.EncodeToString(sum[:])
}
