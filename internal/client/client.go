// Package client wraps HTTP access to the lumber-agent API for lumberctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Client wraps HTTP access to the lumber-agent API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    normalized,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Get issues a GET request to the given path.
func (c *Client) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, nil, err
	}
	return c.do(req)
}

// Post issues a POST request to the given path with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do runs the request and returns the decoded body. Gzipped responses
// (offloaded results, compressed envelopes) are decompressed transparently.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, fmt.Errorf("decompress response: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target := strings.TrimRight(c.baseURL, "/")
	if path != "" {
		target = target + "/" + strings.TrimLeft(path, "/")
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("server URL is empty")
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		raw = strings.TrimRight(raw, "/")
	} else if strings.HasPrefix(raw, ":") {
		raw = "http://localhost" + raw
	} else {
		raw = "http://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid server URL: %q", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// ExecuteRequest mirrors the server's execute request body.
type ExecuteRequest struct {
	Credentials map[string]any  `json:"credentials,omitempty"`
	Operation   json.RawMessage `json:"operation"`
}

// ExecuteResponse mirrors the server's execute envelope.
type ExecuteResponse struct {
	Result         json.RawMessage `json:"result,omitempty"`
	ResultLocation string          `json:"result_location,omitempty"`
	TraceID        string          `json:"trace_id,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorType      string          `json:"error_type,omitempty"`
	Cause          string          `json:"cause,omitempty"`
}

// Execute runs an operation and returns the parsed envelope.
func (c *Client) Execute(ctx context.Context, connectionType, operationName string, req ExecuteRequest) (int, *ExecuteResponse, error) {
	path := fmt.Sprintf("/api/v1/agent/execute/%s/%s", connectionType, operationName)
	status, body, err := c.Post(ctx, path, req)
	if err != nil {
		return status, nil, err
	}
	var resp ExecuteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return status, nil, fmt.Errorf("parse response: %w", err)
	}
	return status, &resp, nil
}

// FetchResponse downloads an offloaded result by its result_location.
func (c *Client) FetchResponse(ctx context.Context, location string) ([]byte, error) {
	id := strings.TrimPrefix(location, "responses/")
	status, body, err := c.Get(ctx, "/api/v1/agent/responses/"+id)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch response failed: status=%d body=%s", status, string(body))
	}
	return body, nil
}
