package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps coarse request counters for the metrics endpoint. Plain
// atomics keep the hot path lock-free; a scrape reads each counter
// independently, which is consistent enough for dashboards.
type Collector struct {
	started      time.Time
	requests     atomic.Uint64
	clientErrors atomic.Uint64
	serverErrors atomic.Uint64
	rateLimited  atomic.Uint64
	durationMs   atomic.Uint64
}

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status == 429:
		c.rateLimited.Add(1)
	case status >= 500:
		c.serverErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := c.requests.Load()
	totalMs := c.durationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"uptimeSeconds":     int64(time.Since(c.started).Seconds()),
		"requestsTotal":     total,
		"clientErrorsTotal": c.clientErrors.Load(),
		"serverErrorsTotal": c.serverErrors.Load(),
		"rateLimitedTotal":  c.rateLimited.Load(),
		"avgDurationMs":     avg,
	}
}
