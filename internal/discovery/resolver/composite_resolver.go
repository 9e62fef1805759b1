package resolver

import "github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"

// CompositeResolver prefers a local-registry resolver's endpoints,
// falling through to a remote (vip-based) resolver when the local one is
// empty. Grounded on the teacher's Chained resolver (internal/resolvers.
// Chained in jroosing-HydraDNS), specialized from "try each in order
// until one succeeds" down to a fixed two-tier local/remote preference.
type CompositeResolver struct {
	local  Resolver
	remote Resolver
	region string
}

// NewCompositeResolver builds a CompositeResolver reporting region as its
// configured local region.
func NewCompositeResolver(region string, local, remote Resolver) *CompositeResolver {
	return &CompositeResolver{local: local, remote: remote, region: region}
}

// Region returns the configured local region.
func (c *CompositeResolver) Region() string { return c.region }

// Endpoints returns local.Endpoints() if non-empty, else remote.Endpoints().
func (c *CompositeResolver) Endpoints() endpoint.EndpointList {
	if local := c.local.Endpoints(); len(local) > 0 {
		return local
	}
	return c.remote.Endpoints()
}

// Shutdown releases both delegates if they own resources.
func (c *CompositeResolver) Shutdown() {
	if cl, ok := c.local.(Closer); ok {
		cl.Shutdown()
	}
	if cl, ok := c.remote.(Closer); ok {
		cl.Shutdown()
	}
}
