// Package metrics exports Command Queue and run pass metrics to Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/network"
)

const namespace = "konnekt"

// Metrics is a command.Observer that maintains Prometheus collectors on
// its own registry.
type Metrics struct {
	registry *prometheus.Registry

	commands   *prometheus.CounterVec
	pending    prometheus.Gauge
	duration   *prometheus.HistogramVec
	passes     prometheus.Counter
	processed  prometheus.Counter
	propagated prometheus.Counter

	mu      sync.Mutex
	started map[*command.Command]time.Time
	now     func() time.Time
}

// New creates Metrics with a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command transitions by kind and state.",
		}, []string{"kind", "state"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commands_pending",
			Help:      "Commands committed and not yet started or aborted.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from Busy to Success or Fail.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_passes_total",
			Help:      "Completed run passes.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "algorithms_processed_total",
			Help:      "Algorithm Process calls in completed run passes.",
		}),
		propagated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_propagated_total",
			Help:      "Connections that delivered a new package.",
		}),
		started: make(map[*command.Command]time.Time),
		now:     time.Now,
	}

	m.registry.MustRegister(
		m.commands, m.pending, m.duration,
		m.passes, m.processed, m.propagated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Waiting(c *command.Command) {
	m.count(c, command.StateQueued)
	m.pending.Inc()
}

func (m *Metrics) Busy(c *command.Command) {
	m.count(c, command.StateBusy)
	m.pending.Dec()

	m.mu.Lock()
	m.started[c] = m.now()
	m.mu.Unlock()
}

func (m *Metrics) Success(c *command.Command) {
	m.count(c, command.StateSuccess)
	m.finish(c)

	if report, ok := c.Result().(*network.RunReport); ok {
		m.passes.Inc()
		m.processed.Add(float64(len(report.Processed)))
		m.propagated.Add(float64(report.Propagated))
	}
}

// Abort only happens before a Command starts.
func (m *Metrics) Abort(c *command.Command) {
	m.count(c, command.StateAborted)
	m.pending.Dec()
}

func (m *Metrics) Fail(c *command.Command) {
	m.count(c, command.StateFailed)
	m.finish(c)
}

func (m *Metrics) count(c *command.Command, s command.State) {
	m.commands.WithLabelValues(kind(c), s.String()).Inc()
}

func (m *Metrics) finish(c *command.Command) {
	m.mu.Lock()
	start, ok := m.started[c]
	delete(m.started, c)
	m.mu.Unlock()

	if ok {
		m.duration.WithLabelValues(kind(c)).Observe(m.now().Sub(start).Seconds())
	}
}

func kind(c *command.Command) string {
	if k := c.Kind(); k != "" {
		return k
	}
	return command.KindGeneric
}
