package transport_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns responses[i] on the i-th Execute call, repeating
// the last entry once exhausted.
type scriptedClient struct {
	responses []transport.Response
	calls     atomic.Int64
	closed    atomic.Bool
}

func (c *scriptedClient) Execute(ctx context.Context, req transport.Request) (transport.Response, error) {
	i := c.calls.Add(1) - 1
	if int(i) >= len(c.responses) {
		i = int64(len(c.responses) - 1)
	}
	return c.responses[i], nil
}

func (c *scriptedClient) Close() error {
	c.closed.Store(true)
	return nil
}

func alwaysResolve(ctx context.Context, host string) (net.IP, error) {
	return net.ParseIP("10.0.0.9"), nil
}

func TestRedirectingClient_FollowsThenPins(t *testing.T) {
	target := endpoint.Endpoint{Host: "lb.example.com", Port: 443, Secure: true, PathPrefix: "/v2/apps"}

	first := &scriptedClient{responses: []transport.Response{{StatusCode: 302, Location: "https://10.0.0.9:443/v2/apps/myapp"}}}
	second := &scriptedClient{responses: []transport.Response{{StatusCode: 200, Entity: []byte("ok")}}}

	var built []endpoint.Endpoint
	newInner := func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) {
		built = append(built, ep)
		if ep == target {
			return first, nil
		}
		return second, nil
	}

	rc := transport.NewRedirectingClient(target, newInner, alwaysResolve)

	resp, err := rc.Execute(context.Background(), transport.Request{Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, first.closed.Load())
	require.Len(t, built, 2)
	rebuilt := built[1]
	assert.Equal(t, "10.0.0.9", rebuilt.Host, "redirect target should be pinned to the resolved IP, not the Location host")
	assert.Equal(t, 443, rebuilt.Port, "redirect target should keep the Location's port, not 0")
	assert.Equal(t, "/v2/", rebuilt.PathPrefix, "path prefix must be isolated from the Location, not the whole URL")
	assert.True(t, rebuilt.Secure)
	assert.Equal(t, "https://10.0.0.9:443/v2/", rebuilt.URL())

	// Second call should reuse the pinned client without calling newInner again.
	resp2, err := rc.Execute(context.Background(), transport.Request{Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp2.StatusCode)
	assert.Len(t, built, 2, "pinned client should be reused, not rebuilt")
}

func TestRedirectingClient_InvalidRedirectLocation(t *testing.T) {
	target := endpoint.Endpoint{Host: "lb.example.com", Port: 443}
	bad := &scriptedClient{responses: []transport.Response{{StatusCode: 302, Location: "not-a-url"}}}
	newInner := func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) { return bad, nil }

	rc := transport.NewRedirectingClient(target, newInner, alwaysResolve)
	_, err := rc.Execute(context.Background(), transport.Request{Method: "GET"})
	assert.ErrorIs(t, err, transport.ErrInvalidRedirect)
}

func TestRedirectingClient_RedirectLimitExceeded(t *testing.T) {
	target := endpoint.Endpoint{Host: "lb.example.com", Port: 443}
	loop := &scriptedClient{responses: []transport.Response{{StatusCode: 302, Location: "https://lb.example.com:443/v2/apps/x"}}}
	newInner := func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) { return loop, nil }

	rc := transport.NewRedirectingClient(target, newInner, alwaysResolve)
	_, err := rc.Execute(context.Background(), transport.Request{Method: "GET"})
	assert.ErrorIs(t, err, transport.ErrRedirectLimitExceeded)
}

func TestRedirectingClient_CloseReleasesPinned(t *testing.T) {
	target := endpoint.Endpoint{Host: "lb.example.com", Port: 443}
	ok := &scriptedClient{responses: []transport.Response{{StatusCode: 200}}}
	newInner := func(ctx context.Context, ep endpoint.Endpoint) (transport.Client, error) { return ok, nil }

	rc := transport.NewRedirectingClient(target, newInner, alwaysResolve)
	_, err := rc.Execute(context.Background(), transport.Request{Method: "GET"})
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}
