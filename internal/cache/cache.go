// Package cache implements ResponseCache (spec.md §4.10): a two-tier
// (ReadOnly snapshot / ReadWrite loading) cache over application/VIP/SVIP
// payloads, with background reconciliation and region-fanout
// invalidation.
//
// Grounded on O-tero-Distributed-Caching-System's cache-manager.L1Cache
// (container/list LRU + TTL, sync.RWMutex-guarded map) for the ReadWrite
// tier's eviction discipline, and the teacher's internal/resolvers.
// TTLCache[K,V] for the same generic-container shape, adapted from a
// DNS-response cache (with RFC 2308 negative-caching entry types) into a
// payload cache keyed by entity/name/content-negotiation tuple.
package cache

import (
	"bytes"
	"compress/gzip"
	"sort"
	"strconv"
	"strings"

	"github.com/hydradiscovery/hydradiscovery/internal/pool"
)

// bufferPool recycles the gzip scratch buffers newCacheValue writes
// into, avoiding an allocation per cached payload.
var bufferPool = pool.New(func() *bytes.Buffer { return &bytes.Buffer{} })

// EntityType is the kind of registry view a CacheKey addresses.
type EntityType int

const (
	EntityApplication EntityType = iota
	EntityVIP
	EntitySVIP
)

func (e EntityType) String() string {
	switch e {
	case EntityApplication:
		return "APPLICATION"
	case EntityVIP:
		return "VIP"
	case EntitySVIP:
		return "SVIP"
	default:
		return "UNKNOWN"
	}
}

// AcceptLevel is the response verbosity negotiated via the client's
// Accept header (spec.md §3's acceptLevel).
type AcceptLevel int

const (
	AcceptFull AcceptLevel = iota
	AcceptCompact
)

func (a AcceptLevel) String() string {
	if a == AcceptCompact {
		return "compact"
	}
	return "full"
}

// Name sentinels for the two full-registry views (spec.md §4.10).
const (
	AllApps      = "ALL_APPS"
	AllAppsDelta = "ALL_APPS_DELTA"
)

// CacheKey identifies one cached payload. Two keys are equal iff every
// field is equal (spec.md §3); RegionsKey is the canonical,
// sorted-and-joined form of an optional region tuple so CacheKey stays
// a plain comparable struct usable as a map key.
type CacheKey struct {
	EntityType  EntityType
	Name        string
	ContentType string
	APIVersion  string
	AcceptLevel AcceptLevel
	RegionsKey  string
}

// NewCacheKey builds a CacheKey, canonicalizing regions into sorted order
// so two callers requesting the same region list in different orders
// collide on the same key. Duplicate regions are kept as given.
func NewCacheKey(entityType EntityType, name, contentType, apiVersion string, acceptLevel AcceptLevel, regions []string) CacheKey {
	return CacheKey{
		EntityType:  entityType,
		Name:        name,
		ContentType: contentType,
		APIVersion:  apiVersion,
		AcceptLevel: acceptLevel,
		RegionsKey:  canonicalRegions(regions),
	}
}

func canonicalRegions(regions []string) string {
	if len(regions) == 0 {
		return ""
	}
	sorted := append([]string(nil), regions...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// HasRegions reports whether this key carries a region tuple.
func (k CacheKey) HasRegions() bool { return k.RegionsKey != "" }

// Regions returns the key's region tuple, or nil if regionless.
func (k CacheKey) Regions() []string {
	if k.RegionsKey == "" {
		return nil
	}
	return strings.Split(k.RegionsKey, ",")
}

// Regionless returns the canonical regionless sibling of k, used as the
// index key into regionSpecificKeys.
func (k CacheKey) Regionless() CacheKey {
	c := k
	c.RegionsKey = ""
	return c
}

// variant is the (contentType, apiVersion, acceptLevel) tuple invalidate
// replays across every entity name it needs to evict.
type variant struct {
	ContentType string
	APIVersion  string
	AcceptLevel AcceptLevel
}

func (k CacheKey) variant() variant {
	return variant{ContentType: k.ContentType, APIVersion: k.APIVersion, AcceptLevel: k.AcceptLevel}
}

func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.EntityType.String())
	b.WriteByte(':')
	b.WriteString(k.Name)
	b.WriteByte(':')
	b.WriteString(k.ContentType)
	b.WriteByte(':')
	b.WriteString(k.APIVersion)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(int(k.AcceptLevel)))
	if k.RegionsKey != "" {
		b.WriteByte(':')
		b.WriteString(k.RegionsKey)
	}
	return b.String()
}

// CacheValue is an immutable cached payload plus its eagerly-computed
// gzip encoding (spec.md §3: "both fields immutable after construction").
type CacheValue struct {
	Payload []byte
	Gzipped []byte
}

// newCacheValue builds a CacheValue, gzip-encoding payload eagerly
// unless it is empty (spec.md §4.10: "empty payloads have gzipped = null").
func newCacheValue(payload []byte) (CacheValue, error) {
	if len(payload) == 0 {
		return CacheValue{}, nil
	}
	buf := bufferPool.Get()
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzip.NewWriter(buf)
	if _, err := w.Write(payload); err != nil {
		return CacheValue{}, err
	}
	if err := w.Close(); err != nil {
		return CacheValue{}, err
	}

	gzipped := make([]byte, buf.Len())
	copy(gzipped, buf.Bytes())
	return CacheValue{Payload: payload, Gzipped: gzipped}, nil
}
