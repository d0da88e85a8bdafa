package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector counts device API calls. It satisfies device.Recorder.
type Collector struct {
	totalCalls      uint64
	failedCalls     uint64
	notFoundCalls   uint64
	totalDurationMs uint64

	mu         sync.Mutex
	byEndpoint map[string]uint64
}

func New() *Collector {
	return &Collector{byEndpoint: map[string]uint64{}}
}

func (c *Collector) RecordCall(endpoint string, status int, duration time.Duration, err error) {
	atomic.AddUint64(&c.totalCalls, 1)
	if err != nil {
		atomic.AddUint64(&c.failedCalls, 1)
	}
	if status == 404 {
		atomic.AddUint64(&c.notFoundCalls, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))

	c.mu.Lock()
	c.byEndpoint[endpoint]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalCalls)
	failed := atomic.LoadUint64(&c.failedCalls)
	notFound := atomic.LoadUint64(&c.notFoundCalls)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	endpoints := make(map[string]uint64, len(c.byEndpoint))
	for name, count := range c.byEndpoint {
		endpoints[name] = count
	}
	c.mu.Unlock()

	return map[string]any{
		"callsTotal":      total,
		"failuresTotal":   failed,
		"notFoundTotal":   notFound,
		"avgDurationMs":   avg,
		"totalDurationMs": totalMs,
		"callsByEndpoint": endpoints,
	}
}
