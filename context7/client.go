// Package context7 talks to the Context7 documentation service: the REST API
// for library search and documentation context, the hosted MCP server, and a
// keyword resolver that picks a library for a free-form question.
package context7

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://context7.com/api/v2"
	DefaultTimeout = 10 * time.Second

	MinTokens     = 1000
	MaxTokens     = 50000
	DefaultTokens = 5000

	maxBodyBytes = 4 << 20
)

// Library is one search hit.
type Library struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	Stars       int     `json:"stars,omitempty"`
	TrustScore  float64 `json:"trustScore,omitempty"`
}

// DisplayName returns Name, falling back to Title.
func (l Library) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Title
}

// DocContext is documentation returned for a query.
type DocContext struct {
	Context  string            `json:"context"`
	Examples []json.RawMessage `json:"examples,omitempty"`
}

type searchResponse struct {
	Results []Library `json:"results"`
}

// Client calls the Context7 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchLibrary searches for libraries matching name, ranked against query.
func (c *Client) SearchLibrary(ctx context.Context, name, query string) ([]Library, error) {
	params := url.Values{}
	params.Set("libraryName", name)
	params.Set("query", query)

	body, isJSON, err := c.get(ctx, "libs/search", params)
	if err != nil {
		return nil, err
	}
	if !isJSON {
		return nil, &APIError{Message: "Unexpected text response from search API"}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Message: "decode search response", Cause: err}
	}
	return resp.Results, nil
}

// GetContext fetches documentation for query. libraryID may be empty to let
// the service choose.
func (c *Client) GetContext(ctx context.Context, libraryID, query string, tokens int) (*DocContext, error) {
	if tokens < MinTokens || tokens > MaxTokens {
		return nil, ErrTokensOutOfRange
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("tokens", strconv.Itoa(tokens))
	if libraryID != "" {
		params.Set("libraryId", libraryID)
	}

	body, isJSON, err := c.get(ctx, "context", params)
	if err != nil {
		return nil, err
	}
	if !isJSON {
		return &DocContext{Context: string(body)}, nil
	}

	var doc DocContext
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &APIError{Message: "decode context response", Cause: err}
	}
	return &doc, nil
}

// ValidateAPIKey reports whether the service accepts the key. Only an
// authentication failure counts as invalid.
func (c *Client) ValidateAPIKey(ctx context.Context) bool {
	_, err := c.SearchLibrary(ctx, "react", "test")
	if err == nil {
		return true
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	c.logger.Debug("Key validation inconclusive", zap.Error(err))
	return true
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, bool, error) {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, &APIError{Message: "create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, &APIError{Message: "Network error", Cause: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Context7 request",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, false, errorFromStatus(resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, false, &APIError{Message: "Network error", Cause: err}
	}
	return body, isJSONContent(resp.Header.Get("Content-Type")), nil
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json"
}
