package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	reg *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Chat metrics
	ChatReplies  *prometheus.CounterVec
	ChatWarnings prometheus.Counter

	// Voice metrics
	Transcriptions        *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	ActiveRecordings      prometheus.Gauge
	RecordedBytes         prometheus.Histogram
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoohealth_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yoohealth_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		ChatReplies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoohealth_chat_replies_total",
			Help: "Bot replies by the path that produced them",
		}, []string{"kind"}),
		ChatWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "yoohealth_chat_persistence_warnings_total",
			Help: "Chat messages that could not be persisted",
		}),

		Transcriptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoohealth_transcriptions_total",
			Help: "Speech-to-text requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "yoohealth_transcription_duration_seconds",
			Help:    "Time spent in the speech-to-text provider",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		ActiveRecordings: f.NewGauge(prometheus.GaugeOpts{
			Name: "yoohealth_active_recordings",
			Help: "Current number of capture sessions that are recording",
		}),
		RecordedBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "yoohealth_recorded_bytes",
			Help:    "Size of finalized recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
	}
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveReply(kind string, warnings int) {
	if m == nil {
		return
	}
	m.ChatReplies.WithLabelValues(kind).Inc()
	if warnings > 0 {
		m.ChatWarnings.Add(float64(warnings))
	}
}

func (m *Metrics) ObserveTranscription(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Transcriptions.WithLabelValues(provider, outcome).Inc()
	if d > 0 {
		m.TranscriptionDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordingStarted() {
	if m == nil {
		return
	}
	m.ActiveRecordings.Inc()
}

func (m *Metrics) RecordingEnded(bytes int) {
	if m == nil {
		return
	}
	m.ActiveRecordings.Dec()
	if bytes > 0 {
		m.RecordedBytes.Observe(float64(bytes))
	}
}
