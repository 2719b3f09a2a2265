package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client-side instrumentation
type Metrics struct {
	// API client metrics
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec

	// Detection metrics
	DetectionImages *prometheus.CounterVec
	DetectionLabels *prometheus.CounterVec
}

// New creates the metric vectors without registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_client",
			Name:      "requests_total",
			Help:      "Total number of backend requests by route and outcome",
		}, []string{"method", "route", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		DetectionImages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "images_total",
			Help:      "Images submitted to the classifier by outcome",
		}, []string{"outcome"}),
		DetectionLabels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "labels_total",
			Help:      "Classified regions by predicted label",
		}, []string{"label"}),
	}
}

// Register adds every vector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Requests,
		m.RequestLatency,
		m.DetectionImages,
		m.DetectionLabels,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Route collapses numeric path segments so that label cardinality stays
// bounded: "/api/patients/12/" becomes "/api/patients/{id}/".
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
