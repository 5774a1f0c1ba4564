package model

import "time"

// RequestLog is one recorded API request attributed to an API key. Rows are
// written by the usage recorder and aggregated into APIKeyUsageStats; the key
// lifecycle layer never writes them.
type RequestLog struct {
	ID             int64     `json:"id" db:"id"`
	APIKeyID       string    `json:"api_key_id" db:"api_key_id"`
	Method         string    `json:"method" db:"method"`
	Path           string    `json:"path" db:"path"`
	StatusCode     int       `json:"status_code" db:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms" db:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EndpointStat is one entry in the most-used-endpoints ranking.
type EndpointStat struct {
	Method   string `json:"method"`
	Endpoint string `json:"endpoint"`
	Count    int64  `json:"count"`
}

// APIKeyUsageStats is the read-only usage aggregate for a single key.
// Windowed counts are computed independently and are not guaranteed to sum
// to TotalRequests. ErrorRate is nil when the key has never been used.
type APIKeyUsageStats struct {
	TotalRequests     int64          `json:"total_requests"`
	RequestsLast24h   int64          `json:"requests_last_24h"`
	RequestsLast7d    int64          `json:"requests_last_7d"`
	RequestsLast30d   int64          `json:"requests_last_30d"`
	AvgResponseTimeMs float64        `json:"avg_response_time_ms"`
	ErrorRate         *float64       `json:"error_rate,omitempty"` // fraction in [0,1]
	MostUsedEndpoints []EndpointStat `json:"most_used_endpoints"`  // descending by count
}
