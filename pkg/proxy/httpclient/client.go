// Package httpclient performs outbound HTTP requests on behalf of callers.
// It supports plain JSON request/response calls and calls retried on a
// configurable set of status-code ranges.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumber-labs/lumber-agent/pkg/proxy"
	"github.com/lumber-labs/lumber-agent/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Default retry policy for do_request_with_retry: 429 and 5xx.
var defaultRetryRanges = [][2]int{{429, 430}, {500, 600}}

type retryPolicy struct {
	tries    int
	delay    time.Duration
	backoff  float64
	maxDelay time.Duration
}

var defaultRetryPolicy = retryPolicy{tries: 2, delay: 2 * time.Second, backoff: 2, maxDelay: 10 * time.Second}

type Client struct {
	methods     proxy.MethodMap
	httpClient  *http.Client
	credentials map[string]any
}

// New builds the client. Credentials are optional; when a "token" entry is
// present every request carries an Authorization header ("auth_type"
// overrides the Bearer scheme).
func New(_ context.Context, credentials map[string]any) (proxy.Client, error) {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		credentials: credentials,
	}
	c.methods = proxy.MethodMap{
		"do_request":            c.doRequest,
		"do_request_with_retry": c.doRequestWithRetry,
	}
	return c, nil
}

func (c *Client) HasMethod(name string) bool {
	return c.methods.HasMethod(name)
}

func (c *Client) Callable(name string) (proxy.Callable, bool) {
	return c.methods.Callable(name)
}

func (c *Client) Close() error { return nil }

func (c *Client) doRequest(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	ranges, err := retryRanges(kwargs, nil)
	if err != nil {
		return nil, err
	}
	result, _, err := c.request(ctx, args, kwargs, ranges)
	return result, err
}

// doRequestWithRetry repeats the request while the response status falls in
// the retry ranges, with exponential backoff between attempts.
func (c *Client) doRequestWithRetry(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	ranges, err := retryRanges(kwargs, defaultRetryRanges)
	if err != nil {
		return nil, err
	}
	policy := defaultRetryPolicy
	if tries, err := proxy.IntKwarg(kwargs, "tries", policy.tries); err != nil {
		return nil, err
	} else {
		policy.tries = tries
	}

	delay := policy.delay
	var lastErr error
	for attempt := 0; attempt < policy.tries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * policy.backoff)
			if delay > policy.maxDelay {
				delay = policy.maxDelay
			}
		}
		result, retryable, err := c.request(ctx, args, kwargs, ranges)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

// request performs one attempt. The second return value reports whether the
// failure status falls in the retry ranges.
func (c *Client) request(ctx context.Context, args []any, kwargs map[string]any, ranges [][2]int) (any, bool, error) {
	rawURL, err := requestURL(args, kwargs)
	if err != nil {
		return nil, false, err
	}
	method, err := proxy.StringKwarg(kwargs, "http_method", http.MethodPost)
	if err != nil {
		return nil, false, err
	}

	var body io.Reader
	if payload, ok := kwargs["payload"]; ok && payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, false, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), rawURL, body)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if err := c.applyHeaders(req, kwargs, body != nil); err != nil {
		return nil, false, err
	}
	if params, err := proxy.MapKwarg(kwargs, "params"); err != nil {
		return nil, false, err
	} else if len(params) > 0 {
		query := req.URL.Query()
		for key, value := range params {
			query.Set(key, fmt.Sprint(value))
		}
		req.URL.RawQuery = query.Encode()
	}

	timeout, err := proxy.IntKwarg(kwargs, "timeout", 0)
	if err != nil {
		return nil, false, err
	}
	verify, err := proxy.BoolKwarg(kwargs, "verify_ssl", true)
	if err != nil {
		return nil, false, err
	}
	client := c.httpClient
	if timeout > 0 || !verify {
		client = &http.Client{Timeout: client.Timeout}
		if timeout > 0 {
			client.Timeout = time.Duration(timeout) * time.Second
		}
		if !verify {
			client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		text := strings.TrimSpace(string(data))
		if text == "" {
			text = resp.Status
		}
		retryable := inRanges(ranges, resp.StatusCode)
		return nil, retryable, types.NewAgentError(types.ErrInvocation,
			"request failed with %d: %s", resp.StatusCode, text)
	}

	if len(data) == 0 {
		return nil, false, nil
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		// not JSON, hand the raw text back
		return string(data), false, nil
	}
	return parsed, false, nil
}

func (c *Client) applyHeaders(req *http.Request, kwargs map[string]any, hasBody bool) error {
	headers, err := proxy.MapKwarg(kwargs, "additional_headers")
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, fmt.Sprint(value))
	}
	if token, ok := c.credentials["token"].(string); ok && token != "" {
		authType := "Bearer"
		if at, ok := c.credentials["auth_type"].(string); ok && at != "" {
			authType = at
		}
		req.Header.Set("Authorization", authType+" "+token)
	}
	contentType, err := proxy.StringKwarg(kwargs, "content_type", "")
	if err != nil {
		return err
	}
	switch {
	case contentType != "":
		req.Header.Set("Content-Type", contentType)
	case hasBody:
		req.Header.Set("Content-Type", "application/json")
	}
	if userAgent, err := proxy.StringKwarg(kwargs, "user_agent", ""); err != nil {
		return err
	} else if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return nil
}

func requestURL(args []any, kwargs map[string]any) (string, error) {
	var raw string
	if len(args) > 0 {
		s, err := proxy.StringArg(args, 0)
		if err != nil {
			return "", err
		}
		raw = s
	} else {
		s, err := proxy.StringKwarg(kwargs, "url", "")
		if err != nil {
			return "", err
		}
		raw = s
	}
	if raw == "" {
		return "", types.NewAgentError(types.ErrBadRequest, "url is a required parameter")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", types.NewAgentError(types.ErrBadRequest, "invalid url: %s", raw)
	}
	return raw, nil
}

// retryRanges reads the retry_status_code_ranges kwarg: a list of [from, to)
// pairs, e.g. [[500, 600]].
func retryRanges(kwargs map[string]any, def [][2]int) ([][2]int, error) {
	raw, ok := kwargs["retry_status_code_ranges"]
	if !ok || raw == nil {
		return def, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, types.NewAgentError(types.ErrBadRequest, "retry_status_code_ranges must be a list of pairs")
	}
	ranges := make([][2]int, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, types.NewAgentError(types.ErrBadRequest, "retry_status_code_ranges must be a list of pairs")
		}
		from, okFrom := pair[0].(float64)
		to, okTo := pair[1].(float64)
		if !okFrom || !okTo {
			return nil, types.NewAgentError(types.ErrBadRequest, "retry_status_code_ranges entries must be numeric")
		}
		ranges = append(ranges, [2]int{int(from), int(to)})
	}
	return ranges, nil
}

func inRanges(ranges [][2]int, status int) bool {
	for _, r := range ranges {
		if status >= r[0] && status < r[1] {
			return true
		}
	}
	return false
}
