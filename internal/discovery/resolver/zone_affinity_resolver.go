package resolver

import (
	"net"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// ZoneAffinityResolver reorders a delegate's endpoints so that same-zone
// entries are contiguous and come first (affinity=true) or last
// (affinity=false, anti-affinity). Within each zone partition, order is
// the IP-seeded randomization from the endpoint package.
type ZoneAffinityResolver struct {
	delegate Resolver
	myZone   string
	seedAddr net.IP
	affinity bool
}

// ZoneAffinityOption configures a ZoneAffinityResolver at construction.
type ZoneAffinityOption func(*ZoneAffinityResolver)

// WithAntiAffinity makes the resolver push local-zone endpoints to the
// tail of the list instead of the head.
func WithAntiAffinity() ZoneAffinityOption {
	return func(z *ZoneAffinityResolver) { z.affinity = false }
}

// NewZoneAffinityResolver wraps delegate, preferring endpoints whose Zone
// matches myZone. seedAddr seeds the per-partition shuffle (the host's
// local IPv4 address, per endpoint.Randomize's contract).
func NewZoneAffinityResolver(delegate Resolver, myZone string, seedAddr net.IP, opts ...ZoneAffinityOption) *ZoneAffinityResolver {
	z := &ZoneAffinityResolver{delegate: delegate, myZone: myZone, seedAddr: seedAddr, affinity: true}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Region delegates to the wrapped resolver.
func (z *ZoneAffinityResolver) Region() string { return z.delegate.Region() }

// Endpoints returns randomize(local) ++ randomize(other) when affinity is
// enabled, or the reverse concatenation for anti-affinity. Same-zone
// endpoints are always contiguous.
func (z *ZoneAffinityResolver) Endpoints() endpoint.EndpointList {
	all := z.delegate.Endpoints()
	local, other := endpoint.SplitByZone(all, z.myZone)

	local = endpoint.Randomize(local, z.seedAddr)
	other = endpoint.Randomize(other, z.seedAddr)

	if z.affinity {
		return append(local, other...)
	}
	return append(other, local...)
}

// Shutdown releases the delegate if it owns resources.
func (z *ZoneAffinityResolver) Shutdown() {
	if c, ok := z.delegate.(Closer); ok {
		c.Shutdown()
	}
}
