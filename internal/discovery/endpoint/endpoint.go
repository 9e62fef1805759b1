// Package endpoint provides the Endpoint/EndpointList data model shared by
// every resolver and transport decorator in internal/discovery, plus the
// shuffle/split/compare helpers the resolver hierarchy builds on.
package endpoint

import (
	"fmt"
	"net"
	"sort"
)

// Endpoint is an addressable discovery-server instance.
type Endpoint struct {
	Host       string
	Port       int
	Secure     bool
	PathPrefix string
	Region     string
	Zone       string // empty means "zone unknown"
}

// URL renders the endpoint as scheme://host:port/pathPrefix, the canonical
// form Identical compares and sorts by. Equal compares every field instead.
func (e Endpoint) URL() string {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	prefix := e.PathPrefix
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, e.Host, e.Port, prefix)
}

// Equal reports whether two endpoints describe the same address.
func (e Endpoint) Equal(o Endpoint) bool {
	return e == o
}

// EndpointList is an ordered sequence of endpoints; list order encodes
// preference, with the head being the first endpoint to try.
type EndpointList []Endpoint

// Clone returns a shallow copy so callers can't mutate a resolver's
// internal slice through a returned list.
func (l EndpointList) Clone() EndpointList {
	if l == nil {
		return nil
	}
	out := make(EndpointList, len(l))
	copy(out, l)
	return out
}

// SplitByZone partitions endpoints preserving input order: entries whose
// Zone matches myZone go to local, everything else goes to other. If
// myZone is empty, every endpoint is treated as non-local.
func SplitByZone(endpoints EndpointList, myZone string) (local, other EndpointList) {
	if myZone == "" {
		return nil, endpoints.Clone()
	}
	for _, e := range endpoints {
		if e.Zone == myZone {
			local = append(local, e)
		} else {
			other = append(other, e)
		}
	}
	return local, other
}

// Randomize returns a permutation of list shuffled by Fisher-Yates, seeded
// by a stable hash of the supplied local IPv4 address (seedAddr). Across
// hosts this spreads load; on a single host the order is stable across
// calls, giving incremental-fetch locality against an eventually
// consistent server, per the resolver's zone-affinity rationale.
func Randomize(list EndpointList, seedAddr net.IP) EndpointList {
	out := list.Clone()
	if len(out) < 2 {
		return out
	}
	r := newSeededRNG(seedHash(seedAddr))
	for i := len(out) - 1; i > 0; i-- {
		j := int(r.next() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Identical reports whether a and b contain the same set of endpoints,
// ignoring order.
func Identical(a, b EndpointList) bool {
	if len(a) != len(b) {
		return false
	}
	as := sortedURLs(a)
	bs := sortedURLs(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedURLs(list EndpointList) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.URL()
	}
	sort.Strings(out)
	return out
}

// seedHash derives a stable 64-bit seed from an IPv4 address. A nil or
// unparseable address degrades to a fixed seed so behavior stays
// deterministic rather than panicking.
func seedHash(ip net.IP) uint64 {
	v4 := ip.To4()
	if v4 == nil {
		return 0x9e3779b97f4a7c15
	}
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, b := range v4 {
		h ^= uint64(b)
		h *= 1099511628211 // FNV prime
	}
	return h
}

// splitmix64 PRNG: small, dependency-free, deterministic for a given seed.
type seededRNG struct {
	state uint64
}

func newSeededRNG(seed uint64) *seededRNG {
	return &seededRNG{state: seed}
}

func (r *seededRNG) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
