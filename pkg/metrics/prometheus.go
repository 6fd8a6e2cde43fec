package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PrometheusConfig configures a PrometheusCollector.
type PrometheusConfig struct {
	// Namespace and Subsystem prefix every metric name, e.g. "vulndash".
	Namespace string
	Subsystem string

	// Runtime adds the Go runtime and process collectors to the registry.
	Runtime bool
}

// PrometheusCollector records into its own Prometheus registry. Every
// Definition is registered on construction; measurements for names that
// were never registered are dropped.
type PrometheusCollector struct {
	registry  *prometheus.Registry
	namespace string
	subsystem string

	mu         sync.RWMutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector builds a collector with the toolkit's metrics
// registered.
func NewPrometheusCollector(cfg PrometheusConfig) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		namespace:  cfg.Namespace,
		subsystem:  cfg.Subsystem,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	if cfg.Runtime {
		if err := c.registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("register go collector: %w", err)
		}
		if err := c.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("register process collector: %w", err)
		}
	}

	for _, def := range Definitions() {
		if err := c.Register(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds def to the registry. Registering a name twice is a no-op.
func (c *PrometheusCollector) Register(def Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.known(def.Name) {
		return nil
	}

	opts := prometheus.Opts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      def.Name,
		Help:      def.Help,
	}

	var err error
	switch def.Kind {
	case KindCounter:
		vec := prometheus.NewCounterVec(prometheus.CounterOpts(opts), def.Labels)
		if err = c.registry.Register(vec); err == nil {
			c.counters[def.Name] = vec
		}
	case KindGauge:
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), def.Labels)
		if err = c.registry.Register(vec); err == nil {
			c.gauges[def.Name] = vec
		}
	case KindHistogram:
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      opts.Name,
			Help:      opts.Help,
			Buckets:   def.Buckets,
		}, def.Labels)
		if err = c.registry.Register(vec); err == nil {
			c.histograms[def.Name] = vec
		}
	default:
		return fmt.Errorf("metric %s: unknown kind %q", def.Name, def.Kind)
	}
	if err != nil {
		return fmt.Errorf("register %s: %w", def.Name, err)
	}
	return nil
}

func (c *PrometheusCollector) known(name string) bool {
	_, counter := c.counters[name]
	_, gauge := c.gauges[name]
	_, histogram := c.histograms[name]
	return counter || gauge || histogram
}

func (c *PrometheusCollector) CounterInc(name string, labels ...string) {
	c.mu.RLock()
	vec, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		vec.WithLabelValues(labelValues(labels)...).Inc()
	}
}

func (c *PrometheusCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.RLock()
	vec, ok := c.gauges[name]
	c.mu.RUnlock()
	if ok {
		vec.WithLabelValues(labelValues(labels)...).Set(value)
	}
}

func (c *PrometheusCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.RLock()
	vec, ok := c.histograms[name]
	c.mu.RUnlock()
	if ok {
		vec.WithLabelValues(labelValues(labels)...).Observe(value)
	}
}

// WriteTextfile writes the registry to path in the text exposition format,
// for node_exporter's textfile collector.
func (c *PrometheusCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// labelValues keeps the values of alternating name/value pairs.
func labelValues(pairs []string) []string {
	values := make([]string, 0, len(pairs)/2)
	for i := 1; i < len(pairs); i += 2 {
		values = append(values, pairs[i])
	}
	return values
}

var _ Collector = (*PrometheusCollector)(nil)
