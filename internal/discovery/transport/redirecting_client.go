package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"sync"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// maxRedirectHops bounds RedirectingClient's 3xx-following loop
// (spec.md §4.7, §8 property 6).
const maxRedirectHops = 10

// redirectPathPattern matches Location paths RedirectingClient is willing
// to follow: "(.*/v2/)apps(/.*)?$". The captured prefix becomes the new
// target's path.
var redirectPathPattern = regexp.MustCompile(`^(.*/v2/)apps(/.*)?$`)

// Resolve looks up the IP address for host (the DNS resolution primitive,
// an external collaborator per spec.md §1).
type Resolve func(ctx context.Context, host string) (net.IP, error)

// ClientFactory constructs a Client bound to a specific endpoint. Used by
// RedirectingClient to build fresh clients for the initial target and for
// each redirect hop, and by RetryableClient to build a client per
// candidate endpoint.
type ClientFactory func(ctx context.Context, ep endpoint.Endpoint) (Client, error)

// RedirectingClient follows a bounded chain of 3xx responses, then pins
// to the terminal endpoint by IP so subsequent requests skip the redirect
// and DNS lookup. Grounded on spec.md §4.7; the pinning-by-IP rationale
// is that a downstream load balancer's redirect choice should survive
// across requests without repeated DNS lookups.
type RedirectingClient struct {
	factory Resolve
	newInner ClientFactory
	target  endpoint.Endpoint

	mu     sync.Mutex
	pinned Client
}

// NewRedirectingClient builds a RedirectingClient that initially dispatches
// against target, following redirects via resolve and newInner.
func NewRedirectingClient(target endpoint.Endpoint, newInner ClientFactory, resolve Resolve) *RedirectingClient {
	return &RedirectingClient{target: target, newInner: newInner, factory: resolve}
}

// Execute implements Client.
func (r *RedirectingClient) Execute(ctx context.Context, req Request) (Response, error) {
	r.mu.Lock()
	pinned := r.pinned
	r.mu.Unlock()

	if pinned != nil {
		resp, err := pinned.Execute(ctx, req)
		if err != nil {
			r.mu.Lock()
			if r.pinned == pinned {
				r.pinned = nil
			}
			r.mu.Unlock()
			_ = pinned.Close()
			return Response{}, err
		}
		return resp, nil
	}

	return r.dispatchFresh(ctx, req)
}

func (r *RedirectingClient) dispatchFresh(ctx context.Context, req Request) (Response, error) {
	current, err := r.newInner(ctx, r.target)
	if err != nil {
		return Response{}, err
	}

	for hop := 0; hop < maxRedirectHops; hop++ {
		resp, err := current.Execute(ctx, req)
		if err != nil {
			_ = current.Close()
			return Response{}, err
		}

		if !resp.IsRedirect() {
			r.pin(current)
			return resp, nil
		}

		next, _, err := r.followRedirect(ctx, resp)
		_ = current.Close()
		if err != nil {
			return Response{}, err
		}
		current = next
	}

	_ = current.Close()
	return Response{}, ErrRedirectLimitExceeded
}

// followRedirect validates resp.Location, resolves its host to an IP, and
// constructs a new client targeting scheme://ip[:port]/<captured-prefix>.
func (r *RedirectingClient) followRedirect(ctx context.Context, resp Response) (Client, endpoint.Endpoint, error) {
	host, port, secure, path, err := parseLocationURL(resp.Location)
	if err != nil {
		return nil, endpoint.Endpoint{}, ErrInvalidRedirect
	}

	m := redirectPathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil, endpoint.Endpoint{}, ErrInvalidRedirect
	}

	ip, err := r.factory(ctx, host)
	if err != nil {
		return nil, endpoint.Endpoint{}, fmt.Errorf("resolve redirect host %q: %w", host, err)
	}

	nextEP := endpoint.Endpoint{Host: ip.String(), Port: port, Secure: secure, PathPrefix: m[1]}
	next, err := r.newInner(ctx, nextEP)
	if err != nil {
		return nil, endpoint.Endpoint{}, err
	}
	return next, nextEP, nil
}

func (r *RedirectingClient) pin(c Client) {
	r.mu.Lock()
	prev := r.pinned
	r.pinned = c
	r.mu.Unlock()
	if prev != nil && prev != c {
		_ = prev.Close()
	}
}

// Close releases the pinned client, if any.
func (r *RedirectingClient) Close() error {
	r.mu.Lock()
	pinned := r.pinned
	r.pinned = nil
	r.mu.Unlock()
	if pinned != nil {
		return pinned.Close()
	}
	return nil
}

// parseLocationURL splits an absolute Location URL of the form
// scheme://host[:port]/path into its host, port (defaulted from scheme
// when absent), secure flag, and path, so followRedirect never mistakes
// the scheme+host for a path prefix.
func parseLocationURL(location string) (host string, port int, secure bool, path string, err error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", 0, false, "", ErrInvalidRedirect
	}
	secure = u.Scheme == "https"

	host = u.Hostname()
	if portStr := u.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, "", ErrInvalidRedirect
		}
	} else if secure {
		port = 443
	} else {
		port = 80
	}

	return host, port, secure, u.Path, nil
}
