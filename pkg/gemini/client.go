// Package gemini calls the Gemini generateContent endpoint and hands the raw
// response body back to the caller for pass-through streaming.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultBaseURL           = "https://generativelanguage.googleapis.com"
	DefaultModel             = "gemini-2.0-flash"
	DefaultSystemInstruction = "always make the response concise"

	// maxErrorBody caps how much of a failing upstream body is read into the error.
	maxErrorBody    = 64 << 10
	truncatedMarker = "... (truncated)"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is missing")

// APIError is returned when the upstream answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gemini API Error: %s", e.Body)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	SystemInstruction *content `json:"systemInstruction,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type Client struct {
	httpClient        *http.Client
	apiKey            string
	baseURL           string
	model             string
	systemInstruction string
}

type Option func(c *Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithSystemInstruction(instruction string) Option {
	return func(c *Client) {
		c.systemInstruction = instruction
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:        &http.Client{},
		apiKey:            apiKey,
		baseURL:           DefaultBaseURL,
		model:             DefaultModel,
		systemInstruction: DefaultSystemInstruction,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) Model() string { return c.model }

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
}

func (c *Client) newRequestBody(prompt string) ([]byte, error) {
	reqBody := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	if c.systemInstruction != "" {
		reqBody.GenerationConfig = &generationConfig{
			SystemInstruction: &content{Parts: []part{{Text: c.systemInstruction}}},
		}
	}
	return json.Marshal(reqBody)
}

// Generate posts prompt upstream. On a 2xx status the caller owns the
// returned response and must close its body; any other status is drained
// into an *APIError.
func (c *Client) Generate(ctx context.Context, prompt string) (*http.Response, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	body, err := c.newRequestBody(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	return resp, nil
}

func readErrorBody(body io.Reader) string {
	errBody, _ := io.ReadAll(io.LimitReader(body, maxErrorBody+1))
	if len(errBody) > maxErrorBody {
		return string(errBody[:maxErrorBody]) + truncatedMarker
	}
	return string(errBody)
}
