package resolver_test

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	region string
	eps    endpoint.EndpointList
	calls  atomic.Int64
}

func (f *fakeResolver) Region() string { return f.region }
func (f *fakeResolver) Endpoints() endpoint.EndpointList {
	f.calls.Add(1)
	return f.eps
}

func mkEP(zone string) endpoint.Endpoint {
	return endpoint.Endpoint{Host: "h-" + zone, Port: 80, Zone: zone}
}

func TestConfigResolver(t *testing.T) {
	list := endpoint.EndpointList{mkEP("a"), mkEP("b")}
	r := resolver.NewConfigResolver("us-east-1", list)
	assert.Equal(t, "us-east-1", r.Region())
	assert.Equal(t, list, r.Endpoints())
}

func TestZoneAffinityResolver_LocalFirst(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{
		mkEP("us-east-1c"), mkEP("us-east-1a"), mkEP("us-east-1c"),
	}}
	z := resolver.NewZoneAffinityResolver(delegate, "us-east-1a", net.ParseIP("10.0.0.1"))

	out := z.Endpoints()
	require.Len(t, out, 3)
	// invariant 1: every local-zone endpoint precedes every non-local one.
	sawOther := false
	for _, e := range out {
		if e.Zone != "us-east-1a" {
			sawOther = true
		} else {
			assert.False(t, sawOther, "local endpoint found after a non-local one")
		}
	}
}

func TestZoneAffinityResolver_AntiAffinity(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a"), mkEP("b")}}
	z := resolver.NewZoneAffinityResolver(delegate, "a", net.ParseIP("10.0.0.1"), resolver.WithAntiAffinity())

	out := z.Endpoints()
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Zone)
}

func TestZoneAffinityResolver_NilZoneAllNonLocal(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a"), mkEP("b")}}
	z := resolver.NewZoneAffinityResolver(delegate, "", net.ParseIP("10.0.0.1"))
	out := z.Endpoints()
	assert.Len(t, out, 2)
}

func TestAsyncResolver_WarmUpAndCache(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a")}}
	a, err := resolver.NewAsyncResolver(delegate, time.Hour)
	require.NoError(t, err)
	defer a.Shutdown()

	assert.Equal(t, endpoint.EndpointList{mkEP("a")}, a.Endpoints())
	assert.Equal(t, int64(1), delegate.calls.Load())
}

func TestAsyncResolver_FailFastOnEmptyWarmUp(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1"}
	_, err := resolver.NewAsyncResolver(delegate, time.Hour, resolver.WithFailFast())
	assert.ErrorIs(t, err, resolver.ErrInitialResolutionFailed)
}

func TestAsyncResolver_EmptyWarmUpAcceptedWithoutFailFast(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1"}
	a, err := resolver.NewAsyncResolver(delegate, time.Hour)
	require.NoError(t, err)
	defer a.Shutdown()
	assert.Empty(t, a.Endpoints())
}

func TestAsyncResolver_BackgroundRefreshReplacesValue(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a")}}
	a, err := resolver.NewAsyncResolver(delegate, 10*time.Millisecond)
	require.NoError(t, err)
	defer a.Shutdown()

	delegate.eps = endpoint.EndpointList{mkEP("a"), mkEP("b")}

	require.Eventually(t, func() bool {
		return len(a.Endpoints()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncResolver_FailedRefreshKeepsPreviousValue(t *testing.T) {
	delegate := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a")}}
	a, err := resolver.NewAsyncResolver(delegate, 10*time.Millisecond)
	require.NoError(t, err)
	defer a.Shutdown()

	delegate.eps = nil
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, endpoint.EndpointList{mkEP("a")}, a.Endpoints())
}

func TestCompositeResolver_PrefersLocal(t *testing.T) {
	local := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("a")}}
	remote := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("b")}}
	c := resolver.NewCompositeResolver("us-east-1", local, remote)

	assert.Equal(t, endpoint.EndpointList{mkEP("a")}, c.Endpoints())
}

func TestCompositeResolver_FallsThroughWhenLocalEmpty(t *testing.T) {
	local := &fakeResolver{region: "us-east-1"}
	remote := &fakeResolver{region: "us-east-1", eps: endpoint.EndpointList{mkEP("b")}}
	c := resolver.NewCompositeResolver("us-east-1", local, remote)

	assert.Equal(t, endpoint.EndpointList{mkEP("b")}, c.Endpoints())
}
