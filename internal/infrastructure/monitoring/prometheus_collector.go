package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	participantsConnected *prometheus.GaugeVec
	viewerCount           prometheus.Gauge
	streamLive            prometheus.Gauge

	// Counters
	messagesRelayed  *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	chatMessages     prometheus.Counter
	micRequests      prometheus.Counter
	micDecisions     *prometheus.CounterVec

	// Histograms
	broadcastFanout prometheus.Histogram
}

// NewPrometheusCollector registers relay metrics against the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		participantsConnected: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "campuslive_participants_connected",
			Help: "Number of connected participants by role",
		}, []string{"role"}),

		viewerCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "campuslive_viewer_count",
			Help: "Current viewer count as published to participants",
		}),

		streamLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "campuslive_stream_live",
			Help: "Whether the stream session is live (1) or idle (0)",
		}),

		messagesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslive_messages_relayed_total",
			Help: "Total relayed point-to-point messages by kind",
		}, []string{"kind"}),

		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslive_delivery_failures_total",
			Help: "Total relay delivery failures by error code",
		}, []string{"code"}),

		chatMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "campuslive_chat_messages_total",
			Help: "Total chat messages fanned out",
		}),

		micRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "campuslive_mic_requests_total",
			Help: "Total microphone floor requests",
		}),

		micDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campuslive_mic_decisions_total",
			Help: "Total microphone floor decisions by outcome",
		}, []string{"decision"}),

		broadcastFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "campuslive_broadcast_fanout_size",
			Help:    "Number of recipients per broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (p *PrometheusCollector) RecordParticipantConnected(role string) {
	p.participantsConnected.WithLabelValues(role).Inc()
}

func (p *PrometheusCollector) RecordParticipantDisconnected(role string) {
	p.participantsConnected.WithLabelValues(role).Dec()
}

func (p *PrometheusCollector) SetViewerCount(count int) {
	p.viewerCount.Set(float64(count))
}

func (p *PrometheusCollector) SetStreamLive(live bool) {
	if live {
		p.streamLive.Set(1)
	} else {
		p.streamLive.Set(0)
	}
}

func (p *PrometheusCollector) RecordMessageRelayed(kind string) {
	p.messagesRelayed.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) RecordDeliveryFailure(code string) {
	p.deliveryFailures.WithLabelValues(code).Inc()
}

func (p *PrometheusCollector) RecordChatMessage() {
	p.chatMessages.Inc()
}

func (p *PrometheusCollector) RecordMicRequest() {
	p.micRequests.Inc()
}

func (p *PrometheusCollector) RecordMicDecision(decision string) {
	p.micDecisions.WithLabelValues(decision).Inc()
}

func (p *PrometheusCollector) RecordBroadcastFanout(recipients int) {
	p.broadcastFanout.Observe(float64(recipients))
}
