package server

import "time"

// API Response Types

// StatsResponse represents the /api/stats payload
type StatsResponse struct {
	Total        int       `json:"total"`
	AveragePrice float64   `json:"averagePrice"`
	Categories   int       `json:"categories"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Cached       bool      `json:"cached"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Checks  HealthChecks `json:"checks"`
}

// HealthChecks groups the per-component health results
type HealthChecks struct {
	Store      StoreHealthCheck `json:"store"`
	StatsCache CacheHealthCheck `json:"stats_cache"`
}

// StoreHealthCheck represents the item store health check result
type StoreHealthCheck struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Items   int    `json:"items,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CacheHealthCheck describes the stats cache configuration
type CacheHealthCheck struct {
	Status string `json:"status"`
	TTL    string `json:"ttl"`
}
