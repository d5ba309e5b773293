package cache

import "sync/atomic"

// Stats is a snapshot of the cumulative cache counters. Rates are fractions
// of TotalRequests and are 0 before the first request.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	L1Hits        int64   `json:"l1_hits"`
	L2Hits        int64   `json:"l2_hits"`
	TotalRequests int64   `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
	L1HitRate     float64 `json:"l1_hit_rate"`
	L2HitRate     float64 `json:"l2_hit_rate"`
	L1Entries     int     `json:"l1_entries"`
	RemoteEnabled bool    `json:"remote_enabled"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
	l1Hits atomic.Int64
	l2Hits atomic.Int64
	total  atomic.Int64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		L1Hits:        c.l1Hits.Load(),
		L2Hits:        c.l2Hits.Load(),
		TotalRequests: c.total.Load(),
	}
	if s.TotalRequests > 0 {
		n := float64(s.TotalRequests)
		s.HitRate = float64(s.Hits) / n
		s.L1HitRate = float64(s.L1Hits) / n
		s.L2HitRate = float64(s.L2Hits) / n
	}
	return s
}
