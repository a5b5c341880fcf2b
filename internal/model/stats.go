package model

// BatchStats aggregates summary analytics for a check pass.
type BatchStats struct {
	TotalProxies          int            `json:"total_proxies"`
	UniqueHosts           int            `json:"unique_hosts"`
	AliveProxies          int            `json:"alive_proxies"`
	SuccessRatePct        float64        `json:"success_rate_pct"`
	TotalProcessingTimeMs int64          `json:"total_processing_time_ms"`
	AliveByScheme         map[string]int `json:"alive_by_scheme,omitempty"`
	AliveByCountry        map[string]int `json:"alive_by_country,omitempty"`
}
