package observability

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/a2y-d5l/go-coord/internal/syncx"
)

// MetricType represents the type of metric
type MetricType int

const (
	// Counter metrics only increase
	Counter MetricType = iota
	// Gauge metrics can go up or down
	Gauge
	// Histogram metrics track distributions
	Histogram
)

// Metric represents a single metric series. For histograms Value is the sum
// of observations and Count their number.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Count     uint64            `json:"count,omitempty"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
}

// MetricsCollector interface defines the contract for metrics collection
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	IncrementCounterBy(name string, value float64, labels map[string]string)

	SetGauge(name string, value float64, labels map[string]string)
	AddGauge(name string, delta float64, labels map[string]string)

	RecordHistogram(name string, value float64, labels map[string]string)

	GetMetrics() []Metric
	GetMetric(name string, labels map[string]string) (*Metric, bool)
}

// InMemoryMetricsCollector is a simple in-memory metrics collector
type InMemoryMetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewInMemoryMetricsCollector creates a new in-memory metrics collector
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

// IncrementCounter increments a counter metric by 1
func (c *InMemoryMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	c.IncrementCounterBy(name, 1.0, labels)
}

// IncrementCounterBy increments a counter metric by the specified value
func (c *InMemoryMetricsCollector) IncrementCounterBy(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.series(name, Counter, labels)
	metric.Value += value
	metric.Timestamp = time.Now()
}

// SetGauge sets a gauge metric to the specified value
func (c *InMemoryMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.series(name, Gauge, labels)
	metric.Value = value
	metric.Timestamp = time.Now()
}

// AddGauge moves a gauge metric by delta
func (c *InMemoryMetricsCollector) AddGauge(name string, delta float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.series(name, Gauge, labels)
	metric.Value += delta
	metric.Timestamp = time.Now()
}

// RecordHistogram records one observation
func (c *InMemoryMetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metric := c.series(name, Histogram, labels)
	metric.Value += value
	metric.Count++
	metric.Timestamp = time.Now()
}

// GetMetrics returns a copy of every series, sorted by name then labels.
func (c *InMemoryMetricsCollector) GetMetrics() []Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(c.metrics))
	metrics := make([]Metric, 0, len(keys))
	for _, key := range keys {
		m := *c.metrics[key]
		m.Labels = copyLabels(m.Labels)
		metrics = append(metrics, m)
	}
	return metrics
}

// GetMetric returns a copy of a specific series
func (c *InMemoryMetricsCollector) GetMetric(name string, labels map[string]string) (*Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metric, exists := c.metrics[metricKey(name, labels)]
	if !exists {
		return nil, false
	}

	m := *metric
	m.Labels = copyLabels(metric.Labels)
	return &m, true
}

// series returns the metric for name+labels, creating it if needed. Callers
// hold c.mu.
func (c *InMemoryMetricsCollector) series(name string, typ MetricType, labels map[string]string) *Metric {
	key := metricKey(name, labels)
	metric, exists := c.metrics[key]
	if !exists {
		metric = &Metric{
			Name:   name,
			Type:   typ,
			Labels: copyLabels(labels),
		}
		c.metrics[key] = metric
	}
	return metric
}

// metricKey generates a stable key from name and sorted labels
func metricKey(name string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		b.WriteString(":" + k + "=" + labels[k])
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	return maps.Clone(labels)
}

// Lock metric names
const (
	MetricLockTransitions = "coord_lock_transitions_total"
	MetricLockWait        = "coord_lock_wait_ms"
	MetricLockHeld        = "coord_lock_held"
)

// LockMetrics records lock state transitions into a MetricsCollector. It
// satisfies the observer interface the components accept.
type LockMetrics struct {
	collector MetricsCollector
}

var _ syncx.Observer = (*LockMetrics)(nil)

// NewLockMetrics wraps collector; a nil collector gets a fresh in-memory one.
func NewLockMetrics(collector MetricsCollector) *LockMetrics {
	if collector == nil {
		collector = NewInMemoryMetricsCollector()
	}
	return &LockMetrics{collector: collector}
}

// Collector returns the underlying collector.
func (m *LockMetrics) Collector() MetricsCollector {
	return m.collector
}

// ObserveTransition counts a transition and keeps the held gauge current.
func (m *LockMetrics) ObserveTransition(component string, from, to syncx.State) {
	m.collector.IncrementCounter(MetricLockTransitions, map[string]string{
		"component": component,
		"from":      from.String(),
		"to":        to.String(),
	})

	labels := map[string]string{"component": component}
	switch {
	case to == syncx.StateHeld:
		m.collector.AddGauge(MetricLockHeld, 1, labels)
	case from == syncx.StateHeld:
		m.collector.AddGauge(MetricLockHeld, -1, labels)
	}
}

// ObserveWait records how long an acquisition waited before it held the lock.
func (m *LockMetrics) ObserveWait(component string, wait time.Duration) {
	m.collector.RecordHistogram(MetricLockWait, float64(wait.Nanoseconds())/1e6,
		map[string]string{"component": component})
}

// Transitions returns how many from->to transitions component made.
func (m *LockMetrics) Transitions(component string, from, to syncx.State) float64 {
	metric, ok := m.collector.GetMetric(MetricLockTransitions, map[string]string{
		"component": component,
		"from":      from.String(),
		"to":        to.String(),
	})
	if !ok {
		return 0
	}
	return metric.Value
}
