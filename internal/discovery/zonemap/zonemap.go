// Package zonemap maintains the availability-zone to region lookup used to
// compute local affinity in the resolver hierarchy.
//
// Construction seeds a default region->zones table; configured regions
// override it. Lookups that miss the configured map fall back to a
// trailing-character heuristic before giving up and reporting "unknown"
// (meaning "treat as local").
package zonemap

import (
	"errors"
	"sync"
)

// ErrMappingMissing is returned by ConfigureRegionsToFetch when a region has
// no configured zones and no entry in the default table.
var ErrMappingMissing = errors.New("zonemap: region has no known zones and no default mapping")

// defaultZone is the sentinel zone name meaning "use the default table for
// this region" rather than a real zone identifier.
const defaultZone = "defaultZone"

// defaultRegionZones seeds the built-in region -> zones table.
func defaultRegionZones() map[string][]string {
	return map[string][]string{
		"us-east-1": {"us-east-1a", "us-east-1c", "us-east-1d", "us-east-1e"},
		"us-west-1": {"us-west-1a", "us-west-1b", "us-west-1c"},
		"us-west-2": {"us-west-2a", "us-west-2b", "us-west-2c"},
		"eu-west-1": {"eu-west-1a", "eu-west-1b", "eu-west-1c"},
	}
}

// ZonesForRegion is a supplier of the zones configured for a region
// (e.g. backed by the application config). An empty or defaultZone-only
// result tells Mapper to consult the default table instead.
type ZonesForRegion func(region string) []string

// Mapper maintains zone -> region and answers RegionFor lookups, including
// the trailing-character fallback heuristic.
type Mapper struct {
	mu             sync.Mutex
	defaults       map[string][]string
	zonesForRegion ZonesForRegion
	zoneToRegion   map[string]string
	lastRegions    []string
}

// New creates a Mapper seeded with the built-in default region->zones table.
func New(zonesForRegion ZonesForRegion) *Mapper {
	return &Mapper{
		defaults:       defaultRegionZones(),
		zonesForRegion: zonesForRegion,
		zoneToRegion:   map[string]string{},
	}
}

// ConfigureRegionsToFetch rebuilds the zone->region map for the given
// regions. For each region it asks ZonesForRegion for the configured
// zones; if none are returned (or only the defaultZone sentinel), it
// consults the default table; if still absent, it fails with
// ErrMappingMissing.
func (m *Mapper) ConfigureRegionsToFetch(regions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configureLocked(regions)
}

func (m *Mapper) configureLocked(regions []string) error {
	next := make(map[string]string, len(m.zoneToRegion))

	for _, region := range regions {
		zones := m.zonesForRegionLocked(region)
		if len(zones) == 0 {
			return ErrMappingMissing
		}
		for _, z := range zones {
			next[z] = region
		}
	}

	m.zoneToRegion = next
	m.lastRegions = append([]string(nil), regions...)
	return nil
}

func (m *Mapper) zonesForRegionLocked(region string) []string {
	var zones []string
	if m.zonesForRegion != nil {
		zones = m.zonesForRegion(region)
	}
	if len(zones) == 0 || onlyDefaultSentinel(zones) {
		if def, ok := m.defaults[region]; ok {
			return def
		}
		return nil
	}
	return zones
}

func onlyDefaultSentinel(zones []string) bool {
	return len(zones) == 1 && zones[0] == defaultZone
}

// RegionFor returns the region mapped to zone, or "" if unknown (meaning
// "treat as local"). Unknown zones fall back to the trailing-character
// heuristic: strip the last character and check whether the remainder is
// already a region present in the map.
func (m *Mapper) RegionFor(zone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if region, ok := m.zoneToRegion[zone]; ok {
		return region
	}
	return m.trailingCharacterHeuristic(zone)
}

func (m *Mapper) trailingCharacterHeuristic(zone string) string {
	if len(zone) == 0 {
		return ""
	}
	candidate := zone[:len(zone)-1]
	for _, region := range m.zoneToRegion {
		if region == candidate {
			return candidate
		}
	}
	// also accept a candidate that matches a region we've configured even
	// if no zone in the map happens to carry it (e.g. sparse zone sets).
	for _, region := range m.lastRegions {
		if region == candidate {
			return candidate
		}
	}
	return ""
}

// Refresh re-applies the last configured region list under the mapper's
// mutex, picking up any changes the ZonesForRegion supplier now reports.
func (m *Mapper) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lastRegions) == 0 {
		return nil
	}
	return m.configureLocked(m.lastRegions)
}

