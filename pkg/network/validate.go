// Package network implements the connectivity troubleshooting checks exposed
// under /api/v1/test/network. Every check takes its parameters as strings,
// the way they arrive in query parameters, and reports malformed input as a
// bad-request error distinct from a reachability failure.
package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumber-labs/lumber-agent/pkg/types"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultHTTPTimeout  = 10 * time.Second
)

// parseProbeParams validates host/port/timeout as received on the wire.
func parseProbeParams(host, portStr, timeoutStr string) (int, time.Duration, error) {
	if host == "" || portStr == "" {
		return 0, 0, types.NewAgentError(types.ErrBadRequest, "host and port are required parameters")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, 0, types.NewAgentError(types.ErrBadRequest, "invalid value for port parameter: %s", portStr)
	}
	timeout := defaultProbeTimeout
	if timeoutStr != "" {
		secs, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return 0, 0, types.NewAgentError(types.ErrBadRequest, "invalid value for timeout parameter: %s", timeoutStr)
		}
		timeout = time.Duration(secs) * time.Second
	}
	return port, timeout, nil
}

// ValidateTCPOpen opens a TCP connection to host:port and closes it again.
func ValidateTCPOpen(ctx context.Context, host, portStr, timeoutStr string) (map[string]any, error) {
	port, timeout, err := parseProbeParams(host, portStr, timeoutStr)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "port %d is closed on %s", port, host)
	}
	_ = conn.Close()
	return map[string]any{
		"message": fmt.Sprintf("port %d is open on %s", port, host),
	}, nil
}

// ValidateTelnet connects and additionally waits for the service to stay up
// long enough to attempt a read, catching listeners that accept and
// immediately drop the connection.
func ValidateTelnet(ctx context.Context, host, portStr, timeoutStr string) (map[string]any, error) {
	port, timeout, err := parseProbeParams(host, portStr, timeoutStr)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "telnet connection for %s is unusable", addr)
	}
	defer conn.Close()

	// A short read probe: either data or a read timeout means the peer is
	// holding the connection open. EOF means it hung up on us.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	if err == io.EOF {
		return nil, types.NewAgentError(types.ErrConnection, "telnet connection for %s is unusable", addr)
	}
	return map[string]any{
		"message": fmt.Sprintf("telnet connection for %s is usable", addr),
	}, nil
}

// PerformDNSLookup resolves the host's A/AAAA records, canonical name and
// reverse names concurrently.
func PerformDNSLookup(ctx context.Context, host, portStr string) (map[string]any, error) {
	if host == "" {
		return nil, types.NewAgentError(types.ErrBadRequest, "host is a required parameter")
	}
	if portStr != "" {
		if _, err := strconv.Atoi(portStr); err != nil {
			return nil, types.NewAgentError(types.ErrBadRequest, "invalid value for port parameter: %s", portStr)
		}
	}

	resolver := net.DefaultResolver
	var (
		addrs []string
		cname string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ips, err := resolver.LookupHost(gctx, host)
		if err != nil {
			return types.WrapError(types.ErrConnection, err, "dns lookup for %s failed", host)
		}
		addrs = ips
		return nil
	})
	g.Go(func() error {
		// Best effort: not every host has a CNAME chain worth reporting.
		name, err := resolver.LookupCNAME(gctx, host)
		if err == nil {
			cname = name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]any, 0, len(addrs))
	for _, addr := range addrs {
		record := map[string]any{"address": addr}
		if portStr != "" {
			record["address"] = net.JoinHostPort(addr, portStr)
		}
		if names, err := resolver.LookupAddr(ctx, addr); err == nil && len(names) > 0 {
			record["name"] = strings.TrimSuffix(names[0], ".")
		}
		records = append(records, record)
	}
	result := map[string]any{
		"host":    host,
		"records": records,
	}
	if cname != "" {
		result["canonical_name"] = strings.TrimSuffix(cname, ".")
	}
	return result, nil
}

// ValidateHTTP performs a GET request against the URL and reports the status.
// The response body is included only when includeResponse is "true".
func ValidateHTTP(ctx context.Context, rawURL, includeResponse, timeoutStr string) (map[string]any, error) {
	if rawURL == "" {
		return nil, types.NewAgentError(types.ErrBadRequest, "url is a required parameter")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, types.NewAgentError(types.ErrBadRequest, "invalid value for url parameter: %s", rawURL)
	}
	timeout := defaultHTTPTimeout
	if timeoutStr != "" {
		secs, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, types.NewAgentError(types.ErrBadRequest, "invalid value for timeout parameter: %s", timeoutStr)
		}
		timeout = time.Duration(secs) * time.Second
	}
	include := strings.EqualFold(includeResponse, "true")

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, types.NewAgentError(types.ErrBadRequest, "invalid value for url parameter: %s", rawURL)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "request to %s failed", rawURL)
	}
	defer resp.Body.Close()

	result := map[string]any{
		"message":     fmt.Sprintf("URL %s responded with status %d", rawURL, resp.StatusCode),
		"status_code": resp.StatusCode,
	}
	if include {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err == nil {
			result["response"] = string(body)
		}
	}
	return result, nil
}

// OutboundIP asks an external echo service which address the agent's
// outbound traffic originates from.
func OutboundIP(ctx context.Context, echoURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return nil, types.NewAgentError(types.ErrBadRequest, "invalid outbound echo url: %s", echoURL)
	}
	client := &http.Client{Timeout: defaultProbeTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "failed to resolve outbound ip address")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "failed to resolve outbound ip address")
	}
	return map[string]any{
		"outbound_ip_address": strings.TrimSpace(string(body)),
	}, nil
}
