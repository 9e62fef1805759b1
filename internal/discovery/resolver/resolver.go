// Package resolver implements the resolver hierarchy that turns
// configuration into a live, ranked list of server endpoints: a static
// leaf resolver, zone-affinity reordering, async caching with background
// refresh, and a local-first composite over a remote bootstrap resolver.
//
// The Resolver contract mirrors the teacher's DNS resolver chain
// (internal/resolvers.Resolver in jroosing-HydraDNS): a small interface
// implementations can freely cache behind, since callers assume the call
// is cheap.
package resolver

import (
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// Resolver produces a ranked EndpointList for a region. Implementations
// may cache; Endpoints() must be cheap to call repeatedly.
type Resolver interface {
	Region() string
	Endpoints() endpoint.EndpointList
}

// Closer is implemented by resolvers that own background resources
// (schedulers, delegate resolvers) that must be released on shutdown.
type Closer interface {
	Shutdown()
}
