// Package metrics records what the scorer does: scores by severity, rejected
// input, and batch assessment timings. Callers depend on the small Collector
// interface; PrometheusCollector backs it with a client_golang registry.
package metrics

import (
	"strings"
	"sync"
	"time"
)

// Collector receives scoring measurements. Labels are alternating
// name/value pairs and must match the metric's Definition.
type Collector interface {
	CounterInc(name string, labels ...string)
	GaugeSet(name string, value float64, labels ...string)
	HistogramObserve(name string, value float64, labels ...string)
}

// Kind is the Prometheus type of a metric.
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
)

// Definition describes one metric the toolkit emits.
type Definition struct {
	Name    string
	Kind    Kind
	Help    string
	Labels  []string
	Buckets []float64 // histograms only; nil means prometheus.DefBuckets
}

var (
	ScoresTotal = Definition{
		Name:   "cvss_scores_total",
		Kind:   KindCounter,
		Help:   "Base scores calculated, by severity band.",
		Labels: []string{"severity"},
	}
	// Bucket bounds are the severity band edges.
	ScoreValue = Definition{
		Name:    "cvss_score_value",
		Kind:    KindHistogram,
		Help:    "Distribution of calculated base scores.",
		Buckets: []float64{0, 3.9, 6.9, 8.9, 10},
	}
	ScoreErrorsTotal = Definition{
		Name:   "cvss_score_errors_total",
		Kind:   KindCounter,
		Help:   "Scoring requests rejected, by error kind.",
		Labels: []string{"kind"},
	}
	VectorParseFailures = Definition{
		Name:   "cvss_vector_parse_failures_total",
		Kind:   KindCounter,
		Help:   "Vector strings that failed to parse, by reason.",
		Labels: []string{"reason"},
	}
	AssessmentsTotal = Definition{
		Name:   "cvss_assessments_total",
		Kind:   KindCounter,
		Help:   "Vulnerability records assessed, by outcome.",
		Labels: []string{"status"},
	}
	AssessmentDuration = Definition{
		Name:    "cvss_assessment_duration_seconds",
		Kind:    KindHistogram,
		Help:    "Wall time of batch assessments.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
	ReportVulnerabilities = Definition{
		Name:   "cvss_report_vulnerabilities",
		Kind:   KindGauge,
		Help:   "Records in the last assessed report, by severity.",
		Labels: []string{"severity"},
	}
)

// Definitions returns every metric the toolkit emits.
func Definitions() []Definition {
	return []Definition{
		ScoresTotal,
		ScoreValue,
		ScoreErrorsTotal,
		VectorParseFailures,
		AssessmentsTotal,
		AssessmentDuration,
		ReportVulnerabilities,
	}
}

// NopCollector discards every measurement.
type NopCollector struct{}

func (NopCollector) CounterInc(string, ...string)                {}
func (NopCollector) GaugeSet(string, float64, ...string)         {}
func (NopCollector) HistogramObserve(string, float64, ...string) {}

// InMemoryCollector keeps measurements in maps keyed by series, so tests can
// assert on exactly what was recorded. Safe for concurrent use.
type InMemoryCollector struct {
	mu           sync.Mutex
	values       map[string]float64
	observations map[string][]float64
}

// NewInMemoryCollector returns an empty InMemoryCollector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		values:       make(map[string]float64),
		observations: make(map[string][]float64),
	}
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.mu.Lock()
	c.values[series(name, labels)]++
	c.mu.Unlock()
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	c.values[series(name, labels)] = value
	c.mu.Unlock()
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	k := series(name, labels)
	c.observations[k] = append(c.observations[k], value)
	c.mu.Unlock()
}

// Value returns the current value of a counter or gauge series.
func (c *InMemoryCollector) Value(name string, labels ...string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[series(name, labels)]
}

// Observations returns a copy of the values observed by a histogram series.
func (c *InMemoryCollector) Observations(name string, labels ...string) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.observations[series(name, labels)]...)
}

// series renders name and label pairs as name{k=v,k=v}. A trailing unpaired
// label is ignored.
func series(name string, labels []string) string {
	if len(labels) < 2 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i+1 < len(labels); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(labels[i])
		b.WriteByte('=')
		b.WriteString(labels[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

// Timer observes elapsed wall time, in seconds, into a histogram.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer starts a timer for the histogram name.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{start: time.Now(), collector: collector, name: name, labels: labels}
}

// ObserveDuration records the time since NewTimer and returns it.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

var (
	defaultMu        sync.RWMutex
	defaultCollector Collector = NopCollector{}
)

// SetDefaultCollector replaces the process-wide collector picked up by
// assessors built without an explicit one. Nil restores the no-op collector.
func SetDefaultCollector(c Collector) {
	if c == nil {
		c = NopCollector{}
	}
	defaultMu.Lock()
	defaultCollector = c
	defaultMu.Unlock()
}

// GetDefaultCollector returns the process-wide collector.
func GetDefaultCollector() Collector {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCollector
}

var (
	_ Collector = NopCollector{}
	_ Collector = (*InMemoryCollector)(nil)
)
