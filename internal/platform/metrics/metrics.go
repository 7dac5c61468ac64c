package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	upstreamRequests   uint64
	upstreamErrors     uint64
	upstreamDurationMs uint64
	cacheHits          uint64
	cacheMisses        uint64
	cacheStale         uint64
	recordsDropped     uint64
	exportsCompleted   uint64
	exportsFailed      uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordUpstream counts one backend call.
func (c *Collector) RecordUpstream(failed bool, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.upstreamRequests, 1)
	if failed {
		atomic.AddUint64(&c.upstreamErrors, 1)
	}
	atomic.AddUint64(&c.upstreamDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) CacheHit() {
	if c != nil {
		atomic.AddUint64(&c.cacheHits, 1)
	}
}

func (c *Collector) CacheMiss() {
	if c != nil {
		atomic.AddUint64(&c.cacheMisses, 1)
	}
}

// CacheStale counts snapshots served past their freshness window.
func (c *Collector) CacheStale() {
	if c != nil {
		atomic.AddUint64(&c.cacheStale, 1)
	}
}

func (c *Collector) RecordsDropped(n int) {
	if c != nil && n > 0 {
		atomic.AddUint64(&c.recordsDropped, uint64(n))
	}
}

func (c *Collector) ExportFinished(failed bool) {
	if c == nil {
		return
	}
	if failed {
		atomic.AddUint64(&c.exportsFailed, 1)
		return
	}
	atomic.AddUint64(&c.exportsCompleted, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	upstream := atomic.LoadUint64(&c.upstreamRequests)
	upstreamMs := atomic.LoadUint64(&c.upstreamDurationMs)
	upstreamAvg := float64(0)
	if upstream > 0 {
		upstreamAvg = float64(upstreamMs) / float64(upstream)
	}
	return map[string]any{
		"requestsTotal":         total,
		"errorsTotal":           errs,
		"rateLimitedTotal":      limited,
		"avgDurationMs":         avg,
		"totalDurationMs":       totalMs,
		"upstreamRequestsTotal": upstream,
		"upstreamErrorsTotal":   atomic.LoadUint64(&c.upstreamErrors),
		"upstreamAvgDurationMs": upstreamAvg,
		"cacheHitsTotal":        atomic.LoadUint64(&c.cacheHits),
		"cacheMissesTotal":      atomic.LoadUint64(&c.cacheMisses),
		"cacheStaleTotal":       atomic.LoadUint64(&c.cacheStale),
		"recordsDroppedTotal":   atomic.LoadUint64(&c.recordsDropped),
		"exportsCompletedTotal": atomic.LoadUint64(&c.exportsCompleted),
		"exportsFailedTotal":    atomic.LoadUint64(&c.exportsFailed),
	}
}
