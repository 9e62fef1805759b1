// Package wiretransport provides the innermost transport.Client: a bare
// *http.Client call against a discovery-server endpoint. This is the
// "actual network call" spec.md §1 names as an external collaborator —
// everything above it (session, retry, redirect) lives in
// internal/discovery/transport and never dials a socket directly.
//
// Grounded on the teacher's internal/cluster.Syncer.fetchConfig: a bare
// *http.Client with context, header injection, and status-code branching.
package wiretransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
)

// HTTPClient is a transport.Client that issues requests against a single
// endpoint using the standard library's *http.Client.
type HTTPClient struct {
	target endpoint.Endpoint
	client *http.Client
}

// NewHTTPClient builds the wire transport.WireFactory RetryableClient's
// composed client factory wraps in session/redirect decorators.
func NewHTTPClient(timeout time.Duration) func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) {
	return func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) {
		return &HTTPClient{
			target: ep,
			client: &http.Client{Timeout: timeout},
		}, nil
	}
}

// Execute issues req against the bound endpoint and maps the HTTP response
// onto transport.Response, including any Location header for redirect
// statuses.
func (h *HTTPClient) Execute(ctx context.Context, req transport.Request) (transport.Response, error) {
	url := h.target.URL() + req.Path

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return transport.Response{}, fmt.Errorf("wiretransport: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return transport.Response{}, fmt.Errorf("wiretransport: http request: %w", err)
	}
	defer resp.Body.Close()

	entity, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return transport.Response{}, fmt.Errorf("wiretransport: read body: %w", err)
	}

	out := transport.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Entity:     entity,
	}
	if out.IsRedirect() {
		out.Location = resp.Header.Get("Location")
	}
	return out, nil
}

// Close releases HTTPClient's resources. The standard library's
// *http.Client needs no explicit teardown; idle connections are reclaimed
// by the transport's own timers.
func (h *HTTPClient) Close() error { return nil }
