// Package metrics owns the Prometheus collectors of the client.
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recipebook",
			Subsystem: "client",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight API requests.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of API requests by method and outcome.",
		},
		[]string{"method", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipebook",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipebook",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session lifecycle events (login, logout, expire, verify).",
		},
		[]string{"event", "result"},
	)
)

// Status labels used for requests that never produced an HTTP status.
const (
	StatusCanceled = "canceled"
	StatusNetwork  = "network_error"
)

func init() {
	Registry.MustRegister(apiInFlight, apiRequests, apiDuration, sessionEvents)
}

// RequestStarted marks a request as in flight and returns a func that
// records its outcome. status is an HTTP status code or one of the Status
// labels above.
func RequestStarted(method string) func(status string) {
	start := time.Now()
	apiInFlight.Inc()
	return func(status string) {
		apiInFlight.Dec()
		apiRequests.WithLabelValues(method, status).Inc()
		apiDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}

// StatusLabel renders an HTTP status code as a label value.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}

// SessionEvent counts a session lifecycle event.
func SessionEvent(event string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	sessionEvents.WithLabelValues(event, result).Inc()
}

// Sample is one gathered series value. Histograms yield a _count and a _sum
// sample.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Samples gathers Registry and flattens it, sorted by name and labels.
func Samples() ([]Sample, error) {
	mfs, err := Registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range mfs {
		name := mf.GetName()
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			labels := strings.Join(pairs, ",")

			switch {
			case m.GetCounter() != nil:
				out = append(out, Sample{Name: name, Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetGauge() != nil:
				out = append(out, Sample{Name: name, Labels: labels, Value: m.GetGauge().GetValue()})
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				out = append(out,
					Sample{Name: name + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
					Sample{Name: name + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}
