package models

import "time"

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	RecomputeRuns            uint64    `json:"recompute_runs"`
	RecomputeFailures        uint64    `json:"recompute_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricDrift reports a cached attendance percentage that disagrees with a fresh recompute.
type MetricDrift struct {
	StudentID string   `json:"student_id"`
	Cached    *float64 `json:"cached"`
	Expected  float64  `json:"expected"`
}
