package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters. Report URLs carry the report id
// in the path, so series are keyed on the normalized route to keep
// cardinality bounded.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	durationTotal map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		durationTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests and accumulates latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(NormalizePath(path), method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.durationTotal[key] += duration
}

// RecordError increments error counters by domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := NormalizePath(path) + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RequestCount returns the number of requests recorded for the series.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[pathKey(NormalizePath(path), method, status)]
}

// ErrorCount returns the number of errors recorded for the series.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount[NormalizePath(path)+"|"+method+"|"+code]
}

// NormalizePath collapses per-report ids so /reports/<id>/status and friends
// aggregate under /reports/:id/....
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if parts[i-1] != "reports" || parts[i] == "" {
			continue
		}
		switch parts[i] {
		case "me", "categories", "assigned":
		default:
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
