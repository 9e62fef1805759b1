package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// ServerStatsResponse contains server runtime statistics.
type ServerStatsResponse struct {
	Uptime        string      `json:"uptime"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     time.Time   `json:"start_time"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
}

// CacheStatsResponse reports ResponseCache's current state, for
// /api/v1/cache/stats.
type CacheStatsResponse struct {
	ReadWriteSize           int   `json:"read_write_size"`
	VersionDelta            int64 `json:"version_delta"`
	VersionDeltaWithRegions int64 `json:"version_delta_with_regions"`
}

// PeersResponse reports the current PeerNodeSet membership, for
// /api/v1/peers.
type PeersResponse struct {
	Peers []string `json:"peers"`
	Count int      `json:"count"`
}

// ResolverEndpoint is a single resolved endpoint in the diagnostic
// resolver snapshot.
type ResolverEndpoint struct {
	URL string `json:"url"`
}

// ResolverEndpointsResponse reports the configured resolver stack's
// currently resolved endpoints, for /api/v1/resolver/endpoints.
type ResolverEndpointsResponse struct {
	Region    string             `json:"region"`
	Endpoints []ResolverEndpoint `json:"endpoints"`
	Count     int                `json:"count"`
}
