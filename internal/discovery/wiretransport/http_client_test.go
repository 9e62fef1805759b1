package wiretransport_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/wiretransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEndpointFor(t *testing.T, srv *httptest.Server) endpoint.Endpoint {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return endpoint.Endpoint{Host: host, Port: port}
}

func TestHTTPClient_Execute_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/myapp", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	factory := wiretransport.NewHTTPClient(2 * time.Second)
	ep := testEndpointFor(t, srv)
	client, err := factory(context.Background(), ep)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Execute(context.Background(), transport.Request{
		Method: http.MethodGet,
		Path:   "/apps/myapp",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Entity))
	assert.False(t, resp.IsRedirect())
}

func TestHTTPClient_Execute_Redirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://other-host:8080/apps/myapp")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	factory := wiretransport.NewHTTPClient(2 * time.Second)
	ep := testEndpointFor(t, srv)
	client, err := factory(context.Background(), ep)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Execute(context.Background(), transport.Request{Method: http.MethodGet, Path: "/apps/myapp"})
	require.NoError(t, err)
	assert.True(t, resp.IsRedirect())
	assert.Equal(t, "http://other-host:8080/apps/myapp", resp.Location)
}

func TestHTTPClient_Execute_WithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	factory := wiretransport.NewHTTPClient(2 * time.Second)
	ep := testEndpointFor(t, srv)
	client, err := factory(context.Background(), ep)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Execute(context.Background(), transport.Request{
		Kind:   transport.WriteRequest,
		Method: http.MethodPost,
		Path:   "/apps/myapp",
		Body:   []byte(`{"status":"UP"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
