package metrics

import (
	"testing"
	"time"
)

func TestSnapshotCounts(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(502, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordUpstream(false, 40*time.Millisecond)
	c.RecordUpstream(true, 20*time.Millisecond)
	c.CacheHit()
	c.CacheMiss()
	c.CacheStale()
	c.RecordsDropped(3)
	c.RecordsDropped(-1)
	c.ExportFinished(false)
	c.ExportFinished(true)

	snap := c.Snapshot()
	checks := map[string]any{
		"requestsTotal":         uint64(3),
		"errorsTotal":           uint64(1),
		"rateLimitedTotal":      uint64(1),
		"upstreamRequestsTotal": uint64(2),
		"upstreamErrorsTotal":   uint64(1),
		"upstreamAvgDurationMs": float64(30),
		"cacheHitsTotal":        uint64(1),
		"cacheMissesTotal":      uint64(1),
		"cacheStaleTotal":       uint64(1),
		"recordsDroppedTotal":   uint64(3),
		"exportsCompletedTotal": uint64(1),
		"exportsFailedTotal":    uint64(1),
	}
	for key, want := range checks {
		if snap[key] != want {
			t.Fatalf("%s: expected %v, got %v", key, want, snap[key])
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(200, time.Millisecond)
	c.RecordUpstream(true, time.Millisecond)
	c.CacheHit()
	c.RecordsDropped(1)
	c.ExportFinished(true)
}
