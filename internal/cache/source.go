package cache

import (
	"sort"
	"strconv"
	"strings"
)

// Instance is the minimal registry-instance shape ResponseCache needs to
// build VIP/SVIP views — everything else about an instance is opaque
// payload the Encoder serializes directly (spec.md §1: "the instance-
// registry data store itself" and "serialization codecs" are both
// out-of-scope external collaborators).
type Instance struct {
	AppName          string
	ID               string
	Status           string
	VipAddress       string // comma-separated VIP names
	SecureVipAddress string // comma-separated secure VIP names
	Payload          any    // opaque, passed through to the Encoder
}

// matchesVIP reports whether name appears in a comma-separated VIP
// address list, via the sorted/binary-search scheme spec.md §4.10
// describes for VIP/SVIP filtering.
func matchesVIP(field, name string) bool {
	if field == "" {
		return false
	}
	parts := strings.Split(field, ",")
	sort.Strings(parts)
	i := sort.SearchStrings(parts, name)
	return i < len(parts) && parts[i] == name
}

// ApplicationsView is the filtered-instance snapshot generated for a VIP
// or SVIP cache key, including the reconcile hash the delta protocol
// depends on.
type ApplicationsView struct {
	Instances     []Instance
	ReconcileHash string
}

func buildVIPView(instances []Instance, name string, secure bool) ApplicationsView {
	var filtered []Instance
	for _, inst := range instances {
		field := inst.VipAddress
		if secure {
			field = inst.SecureVipAddress
		}
		if matchesVIP(field, name) {
			filtered = append(filtered, inst)
		}
	}
	return ApplicationsView{Instances: filtered, ReconcileHash: reconcileHash(filtered)}
}

// reconcileHash is a deterministic digest of an instance set's identity
// and status, stable under reordering, used by callers to detect whether
// two views are equivalent without comparing full payloads.
func reconcileHash(instances []Instance) string {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.AppName + "/" + inst.ID + "/" + inst.Status
	}
	sort.Strings(ids)

	var h uint64 = 1469598103934665603
	for _, id := range ids {
		for _, c := range id {
			h ^= uint64(c)
			h *= 1099511628211
		}
		h ^= ','
		h *= 1099511628211
	}
	return strconv.FormatUint(h, 16)
}

// Source is the opaque instance-registry collaborator (spec.md §1):
// ResponseCache never persists or mutates registry state, it only reads
// snapshots and deltas through this interface.
type Source interface {
	// AllApplications returns the full application snapshot, optionally
	// filtered to regions (nil/empty means no region filter).
	AllApplications(regions []string) (any, error)
	// Delta returns the incremental snapshot since the last delta read,
	// optionally region-filtered.
	Delta(regions []string) (any, error)
	// Application returns the named application's snapshot. ok is false
	// if the application is absent from the registry.
	Application(name string) (any, bool)
	// Instances returns every instance across every application, for
	// VIP/SVIP filtering.
	Instances() ([]Instance, error)
}

// Encoder is the opaque serialization collaborator (spec.md §1):
// ResponseCache selects an encoding by content type and acceptance level
// but never implements one itself.
type Encoder interface {
	Encode(contentType string, level AcceptLevel, v any) ([]byte, error)
}
