package observability

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Engine operations tracked by Metrics.
const (
	OperationSelectForReview = "select_for_review"
	OperationGeneratePlan    = "generate_plan"
	OperationRecordSession   = "record_session"
	OperationGetStats        = "get_stats"
	OperationSetDifficult    = "set_difficult"
	OperationListSessions    = "list_sessions"
)

// Metrics collects per-operation counters and a bounded window of recent durations.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	itemsFailed   atomic.Int64

	operations   map[string]*OperationMetrics
	maxDurations int
}

// OperationMetrics holds the counters for one operation.
type OperationMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64

	// guarded by Metrics.mu
	durations []time.Duration
}

// NewMetrics creates a new metrics collector keeping maxDurations samples per operation.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// Observe records one finished call of operation.
func (m *Metrics) Observe(operation string, duration time.Duration, err error) {
	m.requestTotal.Add(1)

	m.mu.Lock()
	om := m.operationLocked(operation)
	if len(om.durations) >= m.maxDurations {
		om.durations = om.durations[1:]
	}
	om.durations = append(om.durations, duration)
	m.mu.Unlock()

	om.executionCount.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
}

// RecordItemFailures counts per-item failures inside a partially successful session.
func (m *Metrics) RecordItemFailures(n int) {
	if n > 0 {
		m.itemsFailed.Add(int64(n))
	}
}

func (m *Metrics) operationLocked(operation string) *OperationMetrics {
	om, ok := m.operations[operation]
	if !ok {
		om = &OperationMetrics{}
		m.operations[operation] = om
	}
	return om
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.itemsFailed.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.executionCount.Load()
		snap := &OperationSnapshot{
			ExecutionCount: count,
			ErrorCount:     om.errorCount.Load(),
			TotalDuration:  om.totalDuration.Load(),
		}
		if count > 0 {
			snap.AverageDuration = snap.TotalDuration / count
		}
		sorted := slices.Clone(om.durations)
		slices.Sort(sorted)
		snap.P50Duration = percentile(sorted, 0.50).Milliseconds()
		snap.P95Duration = percentile(sorted, 0.95).Milliseconds()
		ops[name] = snap
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		ItemsFailed:   m.itemsFailed.Load(),
		Operations:    ops,
	}
}

// percentile uses the nearest-rank method over an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.999999) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64
	RequestFailed int64
	ItemsFailed   int64
	Operations    map[string]*OperationSnapshot
}

// OperationSnapshot holds one operation's counters; durations are milliseconds.
type OperationSnapshot struct {
	ExecutionCount  int64 `json:"executionCount"`
	ErrorCount      int64 `json:"errorCount"`
	TotalDuration   int64 `json:"totalDurationMs"`
	AverageDuration int64 `json:"avgDurationMs"`
	P50Duration     int64 `json:"p50DurationMs"`
	P95Duration     int64 `json:"p95DurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
