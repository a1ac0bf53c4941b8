package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "robozinho"

// Turn outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeIgnored      = "ignored"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeUpstreamFail = "upstream_error"
	OutcomeTransport    = "transport_error"
)

// Metrics holds the server's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	turns              *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
	upstreamFailures   *prometheus.CounterVec
	framesPushed       prometheus.Counter
	audioBytes         prometheus.Counter
	deviceConfigMisses prometheus.Counter
	activeConnections  prometheus.Gauge
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent handling a turn, by mode.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"mode"}),
		upstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed calls to external services.",
		}, []string{"service"}),
		framesPushed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_pushed_total",
			Help:      "Audio frames pushed to streaming clients, terminators included.",
		}),
		audioBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Synthesized audio bytes delivered to clients.",
		}),
		deviceConfigMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_config_misses_total",
			Help:      "Turns whose device code had no stored configuration.",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket connections.",
		}),
	}
}

// ObserveTurn records the outcome and latency of a turn
func (m *Metrics) ObserveTurn(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(mode, outcome).Inc()
	m.turnDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// UpstreamFailure counts a failed external call
func (m *Metrics) UpstreamFailure(service string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(service).Inc()
}

// FramePushed counts one pushed frame carrying payloadBytes of audio
func (m *Metrics) FramePushed(payloadBytes int) {
	if m == nil {
		return
	}
	m.framesPushed.Inc()
	m.audioBytes.Add(float64(payloadBytes))
}

// AudioDelivered counts audio returned in a sync response
func (m *Metrics) AudioDelivered(n int) {
	if m == nil {
		return
	}
	m.audioBytes.Add(float64(n))
}

// DeviceConfigMiss counts a configuration lookup that found nothing
func (m *Metrics) DeviceConfigMiss() {
	if m == nil {
		return
	}
	m.deviceConfigMisses.Inc()
}

// ConnectionOpened tracks a new websocket connection
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

// ConnectionClosed tracks a closed websocket connection
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}
