package analysis

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/pyimport-graph/pkg/model"
)

const metricsNamespace = "pyimport_graph"

// Metrics are the Prometheus instruments updated by the runner. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scans        *prometheus.CounterVec
	filesParsed  prometheus.Counter
	filesCached  prometheus.Counter
	filesSkipped *prometheus.CounterVec
	scanSeconds  prometheus.Gauge
	nodes        prometheus.Gauge
	edges        prometheus.Gauge
	hubs         prometheus.Gauge
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_total",
			Help:      "Completed scans by result.",
		}, []string{"result"}),
		filesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_parsed_total",
			Help:      "Source files that contributed import pairs.",
		}),
		filesCached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_cached_total",
			Help:      "Source files served from the parse cache.",
		}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_skipped_total",
			Help:      "Source files skipped by reason.",
		}, []string{"reason"}),
		scanSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_scan_duration_seconds",
			Help:      "Wall time of the last successful run.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the current graph.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_edges",
			Help:      "Edges in the current graph.",
		}),
		hubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_hubs",
			Help:      "Hub nodes in the current graph.",
		}),
	}

	m.registry.MustRegister(
		m.scans, m.filesParsed, m.filesCached, m.filesSkipped,
		m.scanSeconds, m.nodes, m.edges, m.hubs,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(s *Snapshot, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues("ok").Inc()
	m.filesParsed.Add(float64(s.Scan.Parsed))
	m.filesCached.Add(float64(s.Scan.Cached))
	for _, reason := range []model.SkipReason{model.SkipParse, model.SkipRead, model.SkipBinary} {
		if n := s.Scan.SkippedBy(reason); n > 0 {
			m.filesSkipped.WithLabelValues(string(reason)).Add(float64(n))
		}
	}
	m.scanSeconds.Set(elapsed.Seconds())
	m.nodes.Set(float64(s.Graph.NodeCount()))
	m.edges.Set(float64(s.Graph.EdgeCount()))
	m.hubs.Set(float64(len(s.Graph.Hubs(s.Threshold))))
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.scans.WithLabelValues("error").Inc()
}
