package resolver

import "github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"

// ConfigResolver is the leaf resolver: it produces endpoints straight from
// static configuration keyed by region and zone. Output ordering is
// unspecified; callers that need locality must wrap it in a
// ZoneAffinityResolver.
type ConfigResolver struct {
	region    string
	endpoints endpoint.EndpointList
}

// NewConfigResolver builds a ConfigResolver for region from the given
// endpoint list (already tagged with their zone/region fields by the
// caller's configuration loader).
func NewConfigResolver(region string, endpoints endpoint.EndpointList) *ConfigResolver {
	return &ConfigResolver{region: region, endpoints: endpoints.Clone()}
}

// Region returns the resolver's configured region.
func (c *ConfigResolver) Region() string { return c.region }

// Endpoints returns the configured endpoint list, in configuration order.
func (c *ConfigResolver) Endpoints() endpoint.EndpointList {
	return c.endpoints.Clone()
}
