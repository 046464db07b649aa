package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects process-local counters for scans, API calls and reminder creation.
type Metrics struct {
	mu sync.Mutex

	scansTotal       atomic.Int64
	scansSkipped     atomic.Int64
	scanFailures     atomic.Int64
	remindersCreated atomic.Int64
	contractsFired   atomic.Int64

	routes map[string]*RouteMetrics

	durations    []time.Duration
	maxDurations int
}

// RouteMetrics represents metrics for one API route.
type RouteMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector keeping the last maxDurations scan durations.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		routes:       make(map[string]*RouteMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordScan records one scan of a user's conversations.
func (m *Metrics) RecordScan(skipped bool, created int, duration time.Duration) {
	m.scansTotal.Add(1)
	if skipped {
		m.scansSkipped.Add(1)
	}
	m.remindersCreated.Add(int64(created))

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordScanFailure records a scan that returned an error.
func (m *Metrics) RecordScanFailure() {
	m.scansTotal.Add(1)
	m.scanFailures.Add(1)
}

// RecordContractsFired records fired contract check-ins.
func (m *Metrics) RecordContractsFired(n int) {
	m.contractsFired.Add(int64(n))
}

// RecordRequest records an API request on route.
func (m *Metrics) RecordRequest(route string, duration time.Duration, failed bool) {
	rm := m.route(route)
	rm.requestCount.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if failed {
		rm.errorCount.Add(1)
	}
}

func (m *Metrics) route(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routes[route] = rm
	}
	return rm
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.scansTotal.Store(0)
	m.scansSkipped.Store(0)
	m.scanFailures.Store(0)
	m.remindersCreated.Store(0)
	m.contractsFired.Store(0)

	m.mu.Lock()
	m.routes = make(map[string]*RouteMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteMetricsSnapshot, len(m.routes))
	for route, rm := range m.routes {
		count := rm.requestCount.Load()
		var avg int64
		if count > 0 {
			avg = rm.totalDuration.Load() / count
		}
		routes[route] = &RouteMetricsSnapshot{
			RequestCount:    count,
			ErrorCount:      rm.errorCount.Load(),
			AverageDuration: avg,
		}
	}

	return &MetricsSnapshot{
		ScansTotal:       m.scansTotal.Load(),
		ScansSkipped:     m.scansSkipped.Load(),
		ScanFailures:     m.scanFailures.Load(),
		RemindersCreated: m.remindersCreated.Load(),
		ContractsFired:   m.contractsFired.Load(),
		Routes:           routes,
		ScanP50Ms:        percentile(m.durations, 0.50),
		ScanP95Ms:        percentile(m.durations, 0.95),
	}
}

func percentile(durations []time.Duration, p float64) int64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx].Milliseconds()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	ScansTotal       int64                            `json:"scansTotal"`
	ScansSkipped     int64                            `json:"scansSkipped"`
	ScanFailures     int64                            `json:"scanFailures"`
	RemindersCreated int64                            `json:"remindersCreated"`
	ContractsFired   int64                            `json:"contractsFired"`
	Routes           map[string]*RouteMetricsSnapshot `json:"routes"`
	ScanP50Ms        int64                            `json:"scanP50Ms"`
	ScanP95Ms        int64                            `json:"scanP95Ms"`
}

// RouteMetricsSnapshot represents metrics for one route.
type RouteMetricsSnapshot struct {
	RequestCount    int64 `json:"requestCount"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the share of scans that did not fail, as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.ScansTotal == 0 {
		return 100.0
	}
	return float64(s.ScansTotal-s.ScanFailures) / float64(s.ScansTotal) * 100.0
}
