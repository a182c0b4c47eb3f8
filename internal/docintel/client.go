// Package docintel provides the client for the remote document-extraction
// service (OCR / layout analysis). The extraction algorithm itself is opaque;
// only the request/response contract lives here.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// Mode selects the analysis the service performs.
type Mode string

const (
	// ModeOCR runs optical character recognition only.
	ModeOCR Mode = "ocr"
	// ModeLayout runs full layout analysis (reading order, tables, headings).
	ModeLayout Mode = "layout"
)

// DefaultAPIVersion is used when the config does not pin one.
const DefaultAPIVersion = "2023-11-01"

// Service extracts structured text from document bytes.
type Service interface {
	// Analyze submits content for extraction and returns the structured text.
	Analyze(ctx context.Context, content []byte, filename string) (string, error)

	// Checksum identifies this service's configuration. It is stored in the
	// ledger so cached extractions are invalidated when the service changes.
	Checksum() string
}

// Client is the HTTP implementation of Service.
type Client struct {
	endpoint   string
	apiKey     string
	mode       Mode
	apiVersion string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests and for
// custom transports).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAPIVersion pins the service API version.
func WithAPIVersion(v string) ClientOption {
	return func(cl *Client) { cl.apiVersion = v }
}

// NewClient creates an extraction-service client. endpoint and apiKey are
// required; mode defaults to layout analysis when empty.
func NewClient(endpoint, apiKey string, mode Mode, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("extraction service endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("extraction service key is required")
	}
	if mode == "" {
		mode = ModeLayout
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		mode:       mode,
		apiVersion: DefaultAPIVersion,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type analyzeResponse struct {
	Content string `json:"content"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits the file bytes and returns the extracted text.
func (c *Client) Analyze(ctx context.Context, content []byte, filename string) (string, error) {
	u := fmt.Sprintf("%s/analyze?mode=%s&api-version=%s&filename=%s",
		c.endpoint, c.mode, c.apiVersion, url.QueryEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read analyze response: %w", err)
	}
	var parsed analyzeResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode analyze response: %w", jsonErr)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = string(body)
		}
		return "", fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, msg)
	}
	return parsed.Content, nil
}

// Checksum hashes the service identity: endpoint, mode, and API version.
func (c *Client) Checksum() string {
	return models.ServiceChecksum(c.endpoint, string(c.mode), c.apiVersion)
}
